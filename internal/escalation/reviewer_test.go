package escalation_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/escalation"
	"github.com/roach88/ledgerguard/internal/store"
	"github.com/roach88/ledgerguard/internal/testutil"
)

var testNow = time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC)

const upholdReply = "```json\n" + `{
  "determination": "uphold",
  "confidence": 140,
  "finalVerdict": "The rate exceeds the guide and no quote was attached.",
  "citations": ["AI-PRICE", " ", "Price guide 01_019"],
  "auditLogEntry": "Upheld first-line hold on INV-0042."
}` + "\n```"

func setup(t *testing.T, level domain.RiskLevel) (*store.Store, *testutil.ScriptedProvider, *escalation.Reviewer) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "esc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	inv := &domain.Invoice{
		ID:            "inv-1",
		TenantID:      "t1",
		InvoiceNumber: "INV-0042",
		SupplierName:  "Bright Gardens Pty Ltd",
		ClientID:      "client-1",
		Total:         300,
		Status:        domain.StatusNeedsReview,
		AuditReport:   "Rate looks high.",
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if level != "" {
		inv.RiskAssessment = &domain.RiskAssessment{Level: level, Score: 70, Justification: "Rate high."}
	}
	require.NoError(t, st.PutInvoice(context.Background(), inv))
	require.NoError(t, st.PutClient(context.Background(), &domain.ClientProfile{ID: "client-1", Name: "Ada", FundingTier: "Level 3"}))

	p := testutil.NewScriptedProvider()
	r := escalation.New(st, st, testutil.NewScriptedClient(p),
		escalation.WithAuditLog(st),
		escalation.WithClock(testutil.NewFakeClock(testNow)),
		escalation.WithIDs(testutil.NewSequentialIDs("esc")))
	return st, p, r
}

func TestReview_AttachesAdvisoryReview(t *testing.T) {
	st, p, r := setup(t, domain.RiskMedium)
	p.Reply(upholdReply)

	review, err := r.Review(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, domain.DeterminationUphold, review.Determination)
	assert.Equal(t, 100, review.Confidence)
	assert.Equal(t, []string{"AI-PRICE", "Price guide 01_019"}, review.Citations)
	assert.Equal(t, testNow, review.ReviewedAt)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "scripted-complex", calls[0].Model)
	assert.Contains(t, calls[0].Prompt, "Rate looks high.")
	assert.Contains(t, calls[0].Prompt, `"fundingTier": "Level 3"`)

	stored, err := st.Invoice(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNeedsReview, stored.Status)
	assert.Equal(t, review, stored.ChiefAuditorReview)

	entries, err := st.AuditLog(context.Background(), "inv-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Upheld first-line hold on INV-0042.", entries[0].Detail)
}

func TestReview_OverrideDoesNotChangeStatus(t *testing.T) {
	st, p, r := setup(t, domain.RiskHigh)
	p.Reply(`{"determination": "OVERRIDE_APPROVE", "confidence": 80, "finalVerdict": "Quote on file.", "citations": [], "auditLogEntry": ""}`)

	_, err := r.Review(context.Background(), "inv-1")
	require.NoError(t, err)

	stored, err := st.Invoice(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNeedsReview, stored.Status)
	assert.Equal(t, domain.DeterminationOverrideApprove, stored.ChiefAuditorReview.Determination)
}

func TestReview_AtMostOnce(t *testing.T) {
	_, p, r := setup(t, domain.RiskMedium)
	p.Reply(upholdReply).Reply(upholdReply)

	_, err := r.Review(context.Background(), "inv-1")
	require.NoError(t, err)

	_, err = r.Review(context.Background(), "inv-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)
	assert.Equal(t, 1, p.CallCount())
}

func TestReview_IneligibleRisk(t *testing.T) {
	for _, level := range []domain.RiskLevel{domain.RiskLow, ""} {
		t.Run(string(level), func(t *testing.T) {
			_, p, r := setup(t, level)

			_, err := r.Review(context.Background(), "inv-1")
			assert.ErrorIs(t, err, domain.ErrNotEligible)
			assert.Zero(t, p.CallCount())
		})
	}
}

func TestReview_FailuresSurfaceAsEscalationErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply testutil.Reply
	}{
		{"transport", testutil.Reply{Err: &domain.TransportError{Provider: "scripted", StatusCode: 503, Err: errors.New("overloaded")}}},
		{"not json", testutil.Reply{Text: "I think it is fine."}},
		{"bad determination", testutil.Reply{Text: `{"determination": "MAYBE", "confidence": 50}`}},
		{"missing confidence", testutil.Reply{Text: `{"determination": "UPHOLD"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, p, r := setup(t, domain.RiskHigh)
			p.When("", tt.reply)

			_, err := r.Review(context.Background(), "inv-1")
			require.Error(t, err)
			assert.True(t, domain.IsEscalationError(err))

			stored, err := st.Invoice(context.Background(), "inv-1")
			require.NoError(t, err)
			assert.Nil(t, stored.ChiefAuditorReview)
		})
	}
}

func TestReview_UnknownInvoice(t *testing.T) {
	_, _, r := setup(t, domain.RiskHigh)
	_, err := r.Review(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// reviewedFirst is a Writer that finds a review already stored, as when a
// concurrent escalation commits between eligibility and attach.
type reviewedFirst struct {
	st *store.Store
}

func (w reviewedFirst) Amend(ctx context.Context, id string, fn func(*domain.Invoice) error) (*domain.Invoice, error) {
	inv, err := w.st.Invoice(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.ChiefAuditorReview = &domain.ChiefAuditorReview{Determination: domain.DeterminationRequireMoreEvidence}
	if err := fn(inv); err != nil {
		return nil, err
	}
	return inv, w.st.PutInvoice(ctx, inv)
}

func TestReview_WriterRefusesSecondReview(t *testing.T) {
	st, p, _ := setup(t, domain.RiskMedium)
	p.Reply(upholdReply)
	r := escalation.New(st, st, testutil.NewScriptedClient(p),
		escalation.WithAuditLog(st),
		escalation.WithWriter(reviewedFirst{st: st}),
		escalation.WithClock(testutil.NewFakeClock(testNow)),
		escalation.WithIDs(testutil.NewSequentialIDs("esc")))

	_, err := r.Review(context.Background(), "inv-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)

	stored, err := st.Invoice(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Nil(t, stored.ChiefAuditorReview)

	entries, err := st.AuditLog(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
