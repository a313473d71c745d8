package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/metrics"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/rules"
)

// Actor recorded on audit-log entries written by the automatic pipeline.
const ActorPipeline = "pipeline"

// Repository loads and replaces whole invoices.
type Repository interface {
	Invoice(ctx context.Context, id string) (*domain.Invoice, error)
	PutInvoice(ctx context.Context, inv *domain.Invoice) error
}

// ClientRegistry resolves client funding profiles. Unknown IDs yield
// (nil, nil).
type ClientRegistry interface {
	Client(ctx context.Context, id string) (*domain.ClientProfile, error)
}

// Evaluator runs the deterministic rule checks.
type Evaluator interface {
	Evaluate(ctx context.Context, inv *domain.Invoice) rules.Outcome
}

// DeepAuditor runs the reasoning-tier audit. It never fails; a degraded
// output carries the synthetic AI-ERROR result.
type DeepAuditor interface {
	Audit(ctx context.Context, b reasoning.Bundle) reasoning.AuditOutput
}

// SpendAnalyzer projects quarter-end spend after a budget breach.
type SpendAnalyzer interface {
	Analyze(ctx context.Context, inv *domain.Invoice, po *domain.PurchaseOrder) *domain.SpendingAnalysis
}

// AuditLog appends hash-chained audit entries.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
}

// Notifier accepts trigger notifications without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, trigger domain.Trigger, inv *domain.Invoice)
	Wait()
}

// Pipeline drives audits and the explicit approve/reject actions.
//
// Thread-safety: all methods are safe for concurrent use. Runs for
// different invoices proceed in parallel; a second run for the same
// invoice is refused with domain.ErrAuditInFlight.
type Pipeline struct {
	invoices  Repository
	clients   ClientRegistry
	evaluator Evaluator
	auditor   DeepAuditor

	velocity  SpendAnalyzer
	gate      *reasoning.RetryGate
	settings  *config.Shared
	auditLog  AuditLog
	notifier  Notifier
	selection *Selection
	clock     domain.Clock
	ids       domain.IDGenerator
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool

	// writeMu serialises every read-modify-write of a stored invoice made
	// through commit or Amend.
	writeMu sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVelocity enables the spend-velocity analysis on budget breaches.
func WithVelocity(v SpendAnalyzer) Option {
	return func(p *Pipeline) {
		p.velocity = v
	}
}

// WithGate sets the retry gate consulted before each run. It must be the
// gate the auditor arms.
func WithGate(g *reasoning.RetryGate) Option {
	return func(p *Pipeline) {
		p.gate = g
	}
}

// WithSettings supplies the policy corpus passed to the deep audit.
func WithSettings(s *config.Shared) Option {
	return func(p *Pipeline) {
		p.settings = s
	}
}

// WithAuditLog records one entry per run and per action.
func WithAuditLog(l AuditLog) Option {
	return func(p *Pipeline) {
		p.auditLog = l
	}
}

// WithNotifier enables trigger notifications.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithSelection keeps sel in sync with every committed invoice.
func WithSelection(sel *Selection) Option {
	return func(p *Pipeline) {
		p.selection = sel
	}
}

// WithClock overrides the wall clock.
func WithClock(c domain.Clock) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// WithIDs overrides the audit-entry ID generator.
func WithIDs(g domain.IDGenerator) Option {
	return func(p *Pipeline) {
		p.ids = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New creates a Pipeline over the given collaborators.
func New(invoices Repository, clients ClientRegistry, evaluator Evaluator, auditor DeepAuditor, opts ...Option) *Pipeline {
	p := &Pipeline{
		invoices:  invoices,
		clients:   clients,
		evaluator: evaluator,
		auditor:   auditor,
		selection: NewSelection(),
		clock:     domain.SystemClock{},
		ids:       domain.UUIDv7Generator{},
		logger:    slog.Default(),
		inFlight:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Selection returns the open-view tracker kept in sync by the pipeline.
func (p *Pipeline) Selection() *Selection {
	return p.selection
}

// Wait blocks until every notification submitted so far was dispatched.
func (p *Pipeline) Wait() {
	if p.notifier != nil {
		p.notifier.Wait()
	}
}

// acquire marks id as in flight. The returned release must be called once.
func (p *Pipeline) acquire(id string) (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight[id] {
		return nil, false
	}
	p.inFlight[id] = true
	return func() {
		p.mu.Lock()
		delete(p.inFlight, id)
		p.mu.Unlock()
	}, true
}

// InFlight reports whether a run or action for id is outstanding.
func (p *Pipeline) InFlight(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight[id]
}

// Run audits one invoice and returns the committed result.
//
// Errors: domain.ErrAuditInFlight when a run is outstanding,
// *domain.CooldownError while the retry gate is closed,
// domain.ErrTerminalStatus for POSTED or FAILED invoices, and
// domain.ErrNotFound for unknown IDs. A degraded deep audit is not an
// error; it is reported through the AI-ERROR result.
func (p *Pipeline) Run(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	release, ok := p.acquire(invoiceID)
	if !ok {
		metrics.AuditRejectedTotal.WithLabelValues("in_flight").Inc()
		return nil, domain.ErrAuditInFlight
	}
	defer release()

	if p.gate != nil {
		if remaining := p.gate.Remaining(invoiceID); remaining > 0 {
			metrics.AuditRejectedTotal.WithLabelValues("cooldown").Inc()
			return nil, &domain.CooldownError{InvoiceID: invoiceID, Remaining: remaining}
		}
	}

	inv, err := p.invoices.Invoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", invoiceID, err)
	}
	if inv.Status.IsTerminal() {
		metrics.AuditRejectedTotal.WithLabelValues("terminal").Inc()
		return nil, fmt.Errorf("audit %s (%s): %w", invoiceID, inv.Status, domain.ErrTerminalStatus)
	}

	logger := p.logger.With("invoiceId", inv.ID, "tenantId", inv.TenantID)
	start := time.Now()

	outcome := p.evaluator.Evaluate(ctx, inv)
	out := p.auditor.Audit(ctx, p.bundle(ctx, logger, inv, outcome.PurchaseOrder))
	agg := Aggregate(inv.Status, inv.ValidationResults, outcome.Results, out.Results)

	if agg.StatusChanged(inv.Status) && !domain.CanTransition(inv.Status, agg.Status) {
		return nil, fmt.Errorf("audit %s: %s -> %s: %w", invoiceID, inv.Status, agg.Status, domain.ErrInvalidStatus)
	}

	updated := inv.Clone()
	updated.ValidationResults = agg.Results
	updated.Status = agg.Status
	risk := out.RiskAssessment
	updated.RiskAssessment = &risk
	if outcome.PurchaseOrder != nil {
		updated.MatchedPONumber = outcome.PurchaseOrder.PONumber
	}
	if !out.Degraded() {
		updated.AuditReport = out.Report
		hash, err := domain.FactsHash(updated, outcome.PurchaseOrder)
		if err != nil {
			return nil, fmt.Errorf("audit %s: %w", invoiceID, err)
		}
		updated.FactsHash = hash
	}

	switch {
	case agg.BudgetFailed && outcome.PurchaseOrder != nil && p.velocity != nil:
		updated.SpendingAnalysis = p.velocity.Analyze(ctx, updated, outcome.PurchaseOrder)
	case !out.Degraded():
		updated.SpendingAnalysis = nil
	}
	updated.UpdatedAt = p.clock.Now()

	if err := p.commit(ctx, updated); err != nil {
		return nil, fmt.Errorf("audit %s: %w", invoiceID, err)
	}
	p.record(ctx, logger, updated, "audit", fmt.Sprintf("status %s -> %s; risk %s/%d; results %d",
		inv.Status, updated.Status, risk.Level, risk.Score, len(updated.ValidationResults)))

	metrics.AuditRunsTotal.WithLabelValues(string(updated.Status)).Inc()
	metrics.AuditDuration.Observe(time.Since(start).Seconds())
	logger.Info("audit completed",
		"from", inv.Status,
		"to", updated.Status,
		"blocking", agg.BlockingFailure,
		"degraded", out.Degraded(),
		"risk", risk.Level)

	if !agg.ReasoningError && agg.BlockingFailure {
		p.notify(ctx, domain.TriggerAuditFailed, updated)
	}
	if risk.Level == domain.RiskHigh {
		p.notify(ctx, domain.TriggerHighRiskDetected, updated)
	}
	return updated, nil
}

// Approve posts an invoice awaiting a decision and notifies
// INVOICE_APPROVED.
func (p *Pipeline) Approve(ctx context.Context, invoiceID, actor string) (*domain.Invoice, error) {
	return p.decide(ctx, invoiceID, actor, domain.StatusPosted, domain.TriggerInvoiceApproved)
}

// Reject fails a non-terminal invoice and notifies INVOICE_REJECTED.
func (p *Pipeline) Reject(ctx context.Context, invoiceID, actor string) (*domain.Invoice, error) {
	return p.decide(ctx, invoiceID, actor, domain.StatusFailed, domain.TriggerInvoiceRejected)
}

func (p *Pipeline) decide(ctx context.Context, invoiceID, actor string, to domain.Status, trigger domain.Trigger) (*domain.Invoice, error) {
	release, ok := p.acquire(invoiceID)
	if !ok {
		return nil, domain.ErrAuditInFlight
	}
	defer release()

	inv, err := p.invoices.Invoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", trigger, invoiceID, err)
	}
	if inv.Status.IsTerminal() {
		return nil, fmt.Errorf("%s %s (%s): %w", trigger, invoiceID, inv.Status, domain.ErrTerminalStatus)
	}
	if !domain.CanTransition(inv.Status, to) {
		return nil, fmt.Errorf("%s %s: %s -> %s: %w", trigger, invoiceID, inv.Status, to, domain.ErrInvalidStatus)
	}

	updated := inv.Clone()
	updated.Status = to
	updated.UpdatedAt = p.clock.Now()
	if err := p.commit(ctx, updated); err != nil {
		return nil, fmt.Errorf("%s %s: %w", trigger, invoiceID, err)
	}

	logger := p.logger.With("invoiceId", inv.ID, "tenantId", inv.TenantID)
	if actor == "" {
		actor = "operator"
	}
	p.recordAs(ctx, logger, updated, actor, string(trigger), fmt.Sprintf("status %s -> %s", inv.Status, to))
	logger.Info("invoice decided", "from", inv.Status, "to", to, "actor", actor)

	p.notify(ctx, trigger, updated)
	return updated, nil
}

// bundle gathers the deep-audit context. Missing client profiles and
// unreadable policy files are logged and left out.
func (p *Pipeline) bundle(ctx context.Context, logger *slog.Logger, inv *domain.Invoice, po *domain.PurchaseOrder) reasoning.Bundle {
	b := reasoning.Bundle{Invoice: inv, PurchaseOrder: po}

	if inv.ClientID != "" && p.clients != nil {
		client, err := p.clients.Client(ctx, inv.ClientID)
		if err != nil {
			logger.Warn("client lookup failed", "clientId", inv.ClientID, "error", err)
		}
		b.Client = client
	}

	if p.settings != nil {
		policy := p.settings.Snapshot().Policy
		b.PolicyText = policy.Text
		docs, err := reasoning.LoadDocuments(policy.Files)
		if err != nil {
			logger.Warn("policy documents unavailable", "error", err)
		} else {
			b.PolicyFiles = docs
		}
	}
	return b
}

// commit replaces the stored invoice and the open view together.
//
// The escalation review and the rejection drafts are written outside a run.
// When inv was loaded before one of them landed, the stored value is kept.
func (p *Pipeline) commit(ctx context.Context, inv *domain.Invoice) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	current, err := p.invoices.Invoice(ctx, inv.ID)
	switch {
	case err == nil:
		if inv.ChiefAuditorReview == nil {
			inv.ChiefAuditorReview = current.ChiefAuditorReview
		}
		if inv.RejectionDrafts == nil {
			inv.RejectionDrafts = current.RejectionDrafts
		}
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return p.put(ctx, inv)
}

func (p *Pipeline) put(ctx context.Context, inv *domain.Invoice) error {
	if err := p.invoices.PutInvoice(ctx, inv); err != nil {
		return err
	}
	if p.selection != nil {
		p.selection.Sync(inv)
	}
	return nil
}

// Amend loads the stored invoice, applies fn, and commits the result with
// the open view. Amend and audit commits never interleave, so a field set
// by fn survives a run that loaded the invoice earlier. Nothing is written
// when fn returns an error.
func (p *Pipeline) Amend(ctx context.Context, invoiceID string, fn func(inv *domain.Invoice) error) (*domain.Invoice, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	inv, err := p.invoices.Invoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := fn(inv); err != nil {
		return nil, err
	}
	if err := p.put(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, inv *domain.Invoice, action, detail string) {
	p.recordAs(ctx, logger, inv, ActorPipeline, action, detail)
}

// recordAs appends an audit entry. The invoice is already committed, so a
// failure is logged rather than returned.
func (p *Pipeline) recordAs(ctx context.Context, logger *slog.Logger, inv *domain.Invoice, actor, action, detail string) {
	if p.auditLog == nil {
		return
	}
	_, err := p.auditLog.AppendAudit(ctx, domain.AuditEntry{
		ID:        p.ids.Generate(),
		TenantID:  inv.TenantID,
		InvoiceID: inv.ID,
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		Ts:        p.clock.Now(),
	})
	if err != nil {
		logger.Error("audit log append failed", "action", action, "error", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, trigger domain.Trigger, inv *domain.Invoice) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(ctx, trigger, inv.Clone())
}
