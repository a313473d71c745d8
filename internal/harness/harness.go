package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/ledgerguard/internal/app"
	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/notify"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/router"
	"github.com/roach88/ledgerguard/internal/store"
	"github.com/roach88/ledgerguard/internal/testutil"
)

// Harness executes one scenario against a fully wired App.
type Harness struct {
	app      *app.App
	clock    *testutil.FakeClock
	provider *testutil.ScriptedProvider

	mu         sync.Mutex
	deliveries []DeliveryRecord
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fake clock,
// sequential IDs, a scripted reasoning provider, and a recording email
// gateway, so identical scenarios produce identical results.
//
// Execution flow:
//  1. Create fresh in-memory database and wire the App
//  2. Import fixtures
//  3. Execute steps, waiting for notifications after each one
//  4. Check expectations and collect the audit trail
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	now := scenario.Now
	if now.IsZero() {
		now = DefaultNow
	}
	cfg := settingsFor(scenario)

	h := &Harness{
		clock:    testutil.NewFakeClock(now),
		provider: scriptProvider(scenario.Replies),
	}
	h.app = app.New(app.Deps{
		Settings:  cfg,
		Store:     st,
		Router:    router.New([]router.Profile{testutil.ScriptedProfile}, nil),
		Providers: map[string]reasoning.Provider{testutil.ScriptedProfile.Name: h.provider},
		Gateway:   testutil.NewRecordingGateway(scenario.RejectEmails...),
		Clock:     h.clock,
		IDs:       testutil.NewSequentialIDs("id"),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnReport:  h.collect,
	})
	defer h.app.Close()

	if _, err := st.Import(ctx, &scenario.Fixtures, cfg.Audit.DefaultTenant, now); err != nil {
		return nil, fmt.Errorf("failed to import fixtures: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		rec := h.execute(ctx, step)
		h.app.Pipeline.Wait()
		result.Steps = append(result.Steps, rec)
		if step.Expect != nil {
			for _, msg := range checkExpect(i, rec, step.Expect) {
				result.AddError(msg)
			}
		}
	}
	h.app.Close()

	h.mu.Lock()
	result.Notifications = append(result.Notifications, h.deliveries...)
	h.mu.Unlock()
	if scenario.Notifications != nil {
		for _, msg := range checkNotifications(scenario.Notifications, result.Notifications) {
			result.AddError(msg)
		}
	}

	for _, inv := range scenario.Fixtures.Invoices {
		entries, err := st.AuditLog(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read audit log for %s: %w", inv.ID, err)
		}
		trail := []string{}
		for _, e := range entries {
			trail = append(trail, e.Actor+":"+e.Action)
		}
		result.AuditTrail[inv.ID] = trail
	}
	return result, nil
}

func settingsFor(scenario *Scenario) *config.Settings {
	cfg := config.Default()
	if scenario.Settings.Cooldown > 0 {
		cfg.Audit.Cooldown = scenario.Settings.Cooldown
	}
	cfg.Policy.Text = scenario.Settings.PolicyText
	if len(scenario.Settings.NotificationRules) > 0 {
		cfg.NotificationRules = scenario.Settings.NotificationRules
	}
	return cfg
}

func scriptProvider(replies []ScriptedReply) *testutil.ScriptedProvider {
	p := testutil.NewScriptedProvider()
	for _, r := range replies {
		reply := testutil.Reply{Text: r.Text}
		if r.Error != "" {
			reply.Err = &domain.TransportError{Provider: testutil.ScriptedProfile.Name, Err: errors.New(r.Error)}
		}
		p.When(r.Match, reply)
	}
	return p
}

// execute runs one step and snapshots the invoice it touched.
func (h *Harness) execute(ctx context.Context, step Step) StepRecord {
	op, id := step.Op()
	rec := StepRecord{Op: op, Invoice: id}

	var err error
	switch op {
	case OpAdvance:
		h.clock.Advance(step.Advance)
		return rec
	case OpAudit:
		_, err = h.app.Pipeline.Run(ctx, id)
	case OpEscalate:
		var review *domain.ChiefAuditorReview
		review, err = h.app.Reviewer.Review(ctx, id)
		if review != nil {
			rec.Determination = string(review.Determination)
		}
	case OpDraft:
		_, err = h.app.Drafter.Draft(ctx, id)
	case OpApprove:
		_, err = h.app.Pipeline.Approve(ctx, id, step.Actor)
	case OpReject:
		_, err = h.app.Pipeline.Reject(ctx, id, step.Actor)
	}
	rec.Error = domain.CodeOf(err)

	inv, lookupErr := h.app.Store.Invoice(ctx, id)
	if lookupErr != nil {
		return rec
	}
	rec.Status = string(inv.Status)
	if inv.RiskAssessment != nil {
		rec.Risk = string(inv.RiskAssessment.Level)
	}
	for _, r := range inv.ValidationResults {
		rec.Results = append(rec.Results, r.RuleID+":"+string(r.Result))
	}
	return rec
}

// collect runs on the dispatcher goroutine.
func (h *Harness) collect(report notify.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, d := range report.Deliveries {
		h.deliveries = append(h.deliveries, DeliveryRecord{
			Trigger:   string(report.Trigger),
			Invoice:   report.InvoiceID,
			Channel:   d.Channel,
			Recipient: d.Recipient,
			OK:        d.OK,
		})
	}
}
