package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/notify"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/router"
	"github.com/roach88/ledgerguard/internal/store"
	"github.com/roach88/ledgerguard/internal/testutil"
)

var start = time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC)

const cleanAudit = `{"report": "ok", "riskAssessment": {"level": "LOW", "score": 5}, "validationResults": []}`

func newTestApp(t *testing.T, reports chan<- notify.Report) (*App, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	provider := testutil.NewScriptedProvider()
	provider.When("forensic auditor", testutil.Reply{Text: cleanAudit}).
		When("accounts-payable officer", testutil.Reply{Text: `{"subject": "Invoice rejected", "body": "Please reissue."}`}).
		When("client liaison", testutil.Reply{Text: `{"subject": "Invoice on hold", "body": "Your invoice is on hold."}`})

	deps := Deps{
		Settings:  config.Default(),
		Store:     st,
		Router:    router.New([]router.Profile{testutil.ScriptedProfile}, nil),
		Providers: map[string]reasoning.Provider{testutil.ScriptedProfile.Name: provider},
		Gateway:   testutil.NewRecordingGateway(),
		Clock:     testutil.NewFakeClock(start),
		IDs:       testutil.NewSequentialIDs("id"),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if reports != nil {
		deps.OnReport = func(r notify.Report) { reports <- r }
	}
	a := New(deps)
	t.Cleanup(a.Close)
	return a, st
}

func TestNew_AuditEndToEnd(t *testing.T) {
	reports := make(chan notify.Report, 4)
	a, st := newTestApp(t, reports)
	ctx := context.Background()

	require.NoError(t, st.PutInvoice(ctx, &domain.Invoice{
		ID: "inv-1", TenantID: "default", InvoiceNumber: "INV-1", InvoiceDate: "2025-02-10",
		Total: 50, Status: domain.StatusExtracted, CreatedAt: start, UpdatedAt: start,
	}))

	inv, err := a.Pipeline.Run(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNeedsReview, inv.Status)
	a.Pipeline.Wait()

	report := <-reports
	assert.Equal(t, domain.TriggerAuditFailed, report.Trigger)

	inbox, err := st.Notifications(ctx, "default", true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "inv-1", inbox[0].InvoiceID)

	entries, err := st.AuditLog(ctx, "inv-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].Action)
}

func TestDrafter_KeepsSelectionInSync(t *testing.T) {
	a, st := newTestApp(t, nil)
	ctx := context.Background()
	inv := &domain.Invoice{
		ID: "inv-1", TenantID: "default", InvoiceNumber: "INV-1", InvoiceDate: "2025-02-10",
		Total: 50, Status: domain.StatusNeedsReview, CreatedAt: start, UpdatedAt: start,
	}
	require.NoError(t, st.PutInvoice(ctx, inv))
	a.Pipeline.Selection().Open(inv)

	got, err := a.Drafter.Draft(ctx, "inv-1")
	require.NoError(t, err)

	stored, err := st.Invoice(ctx, "inv-1")
	require.NoError(t, err)
	open := a.Pipeline.Selection().Current()
	require.NotNil(t, stored.RejectionDrafts)
	require.NotNil(t, open.RejectionDrafts)
	assert.Equal(t, got, open.RejectionDrafts)
	assert.Equal(t, stored.RejectionDrafts, open.RejectionDrafts)
}

func TestHandler_ServesStoredInvoices(t *testing.T) {
	a, st := newTestApp(t, nil)
	ctx := context.Background()
	require.NoError(t, st.PutInvoice(ctx, &domain.Invoice{ID: "inv-1", TenantID: "default", Status: domain.StatusExtracted}))

	h := a.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/inv-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var inv domain.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, domain.StatusExtracted, inv.Status)
}

func TestSettings_UpsertRulePersists(t *testing.T) {
	a, st := newTestApp(t, nil)
	ctx := context.Background()

	_, err := a.Settings.UpsertRule(domain.TriggerAuditFailed, func(r *domain.NotificationRule) {
		r.Email = true
		r.Recipients = "ap@example.org"
	})
	require.NoError(t, err)

	saved, found, err := st.LoadSettings(ctx)
	require.NoError(t, err)
	require.True(t, found)
	rule, ok := saved.Rule(domain.TriggerAuditFailed)
	require.True(t, ok)
	assert.True(t, rule.Email)
	assert.Equal(t, "ap@example.org", rule.Recipients)
}

func TestMergePersisted(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	t.Run("nothing_saved", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, MergePersisted(ctx, st, cfg))
		assert.Equal(t, config.Default().NotificationRules, cfg.NotificationRules)
	})

	t.Run("saved_rules_win", func(t *testing.T) {
		saved := config.Default()
		saved.NotificationRules = []domain.NotificationRule{{Trigger: domain.TriggerInvoiceApproved, Email: true, Recipients: "ops@example.org"}}
		saved.Providers.Anthropic.APIKey = "stale"
		require.NoError(t, st.SaveSettings(ctx, saved, domain.SystemClock{}))

		cfg := config.Default()
		cfg.Providers.Anthropic.APIKey = "fresh"
		require.NoError(t, MergePersisted(ctx, st, cfg))
		assert.Equal(t, saved.NotificationRules, cfg.NotificationRules)
		assert.Equal(t, "fresh", cfg.Providers.Anthropic.APIKey)
	})
}

func TestClose_Idempotent(t *testing.T) {
	a, _ := newTestApp(t, nil)
	a.Close()
	a.Close()
}
