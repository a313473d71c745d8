// Package escalation requests the advisory chief-auditor second opinion.
//
// A review is available once per invoice, only while its risk is MEDIUM or
// HIGH. The determination is attached to the invoice as metadata; it never
// changes the invoice status.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/metrics"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/router"
)

const systemPrompt = `You are the chief auditor reviewing an escalated care-services invoice.
A first-line audit has already rated it. Weigh the evidence independently and
decide whether the first-line verdict stands.

Return ONLY valid JSON with exactly these keys:
{
  "determination": "UPHOLD|OVERRIDE_APPROVE|REQUIRE_MORE_EVIDENCE",
  "confidence": 0-100,
  "finalVerdict": "one paragraph for the reviewer",
  "citations": ["rule, policy clause or price-guide item relied on"],
  "auditLogEntry": "one line suitable for the permanent audit log"
}`

// Repository loads and replaces whole invoices.
type Repository interface {
	Invoice(ctx context.Context, id string) (*domain.Invoice, error)
	PutInvoice(ctx context.Context, inv *domain.Invoice) error
}

// ClientRegistry resolves client funding profiles.
type ClientRegistry interface {
	Client(ctx context.Context, id string) (*domain.ClientProfile, error)
}

// AuditLog appends hash-chained audit entries.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
}

// View is an open copy of an invoice kept in sync after a review.
type View interface {
	Sync(inv *domain.Invoice) bool
}

// Writer applies a change to the stored invoice, serialised with every
// other writer of the same store.
type Writer interface {
	Amend(ctx context.Context, invoiceID string, fn func(inv *domain.Invoice) error) (*domain.Invoice, error)
}

// Reviewer runs escalation reviews.
type Reviewer struct {
	invoices  Repository
	clients   ClientRegistry
	completer reasoning.Completer
	auditLog  AuditLog
	view      View
	writer    Writer
	clock     domain.Clock
	ids       domain.IDGenerator
	logger    *slog.Logger

	// mu serialises the final eligibility check and write so two
	// concurrent reviews cannot both attach.
	mu sync.Mutex
}

// Option configures a Reviewer.
type Option func(*Reviewer)

// WithAuditLog records the review's audit-log line.
func WithAuditLog(l AuditLog) Option {
	return func(r *Reviewer) { r.auditLog = l }
}

// WithView keeps an open invoice view in sync.
func WithView(v View) Option {
	return func(r *Reviewer) { r.view = v }
}

// WithWriter routes the final write through w instead of the repository.
func WithWriter(w Writer) Option {
	return func(r *Reviewer) { r.writer = w }
}

// WithClock overrides the wall clock.
func WithClock(c domain.Clock) Option {
	return func(r *Reviewer) { r.clock = c }
}

// WithIDs overrides the audit-entry ID generator.
func WithIDs(g domain.IDGenerator) Option {
	return func(r *Reviewer) { r.ids = g }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reviewer) { r.logger = l }
}

// New creates a Reviewer.
func New(invoices Repository, clients ClientRegistry, completer reasoning.Completer, opts ...Option) *Reviewer {
	r := &Reviewer{
		invoices:  invoices,
		clients:   clients,
		completer: completer,
		clock:     domain.SystemClock{},
		ids:       domain.UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type reply struct {
	Determination string   `json:"determination"`
	Confidence    *int     `json:"confidence"`
	FinalVerdict  string   `json:"finalVerdict"`
	Citations     []string `json:"citations"`
	AuditLogEntry string   `json:"auditLogEntry"`
}

// Eligible reports whether inv may be escalated now.
func Eligible(inv *domain.Invoice) error {
	if inv.ChiefAuditorReview != nil {
		return domain.ErrAlreadyReviewed
	}
	if inv.RiskAssessment == nil {
		return domain.ErrNotEligible
	}
	switch inv.RiskAssessment.Level {
	case domain.RiskMedium, domain.RiskHigh:
		return nil
	default:
		return domain.ErrNotEligible
	}
}

// Review requests the second opinion and attaches it to the invoice.
//
// Errors: domain.ErrNotEligible and domain.ErrAlreadyReviewed when the
// invoice does not qualify; *domain.EscalationServiceError when the
// reasoning call or its reply fails. Nothing is persisted on error.
func (r *Reviewer) Review(ctx context.Context, invoiceID string) (*domain.ChiefAuditorReview, error) {
	inv, err := r.invoices.Invoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("escalate %s: %w", invoiceID, err)
	}
	if err := Eligible(inv); err != nil {
		return nil, fmt.Errorf("escalate %s: %w", invoiceID, err)
	}
	logger := r.logger.With("invoiceId", inv.ID, "tenantId", inv.TenantID)

	var client *domain.ClientProfile
	if inv.ClientID != "" && r.clients != nil {
		client, err = r.clients.Client(ctx, inv.ClientID)
		if err != nil {
			logger.Warn("client lookup failed", "clientId", inv.ClientID, "error", err)
		}
	}

	text, route, err := r.completer.Complete(ctx, router.TierComplex, reasoning.Request{
		System: systemPrompt,
		Prompt: prompt(inv, client),
	})
	if err != nil {
		return nil, r.fail(logger, invoiceID, err)
	}
	var out reply
	if err := reasoning.DecodeJSON(text, &out); err != nil {
		return nil, r.fail(logger, invoiceID, err)
	}
	review, err := r.normalise(out)
	if err != nil {
		return nil, r.fail(logger, invoiceID, err)
	}

	if err := r.attach(ctx, invoiceID, review); err != nil {
		return nil, err
	}

	metrics.EscalationsTotal.WithLabelValues(string(review.Determination)).Inc()
	logger.Info("escalation review attached",
		"route", route.String(),
		"determination", review.Determination,
		"confidence", review.Confidence)
	return review, nil
}

func (r *Reviewer) normalise(out reply) (*domain.ChiefAuditorReview, error) {
	det := domain.Determination(strings.ToUpper(strings.TrimSpace(out.Determination)))
	if !domain.ValidDeterminations[det] {
		return nil, fmt.Errorf("invalid determination %q", out.Determination)
	}
	if out.Confidence == nil {
		return nil, errors.New("missing confidence")
	}
	confidence := min(max(*out.Confidence, 0), 100)

	citations := make([]string, 0, len(out.Citations))
	for _, c := range out.Citations {
		if c = strings.TrimSpace(c); c != "" {
			citations = append(citations, c)
		}
	}
	return &domain.ChiefAuditorReview{
		Determination: det,
		Confidence:    confidence,
		FinalVerdict:  strings.TrimSpace(out.FinalVerdict),
		Citations:     citations,
		AuditLogEntry: strings.TrimSpace(out.AuditLogEntry),
		ReviewedAt:    r.clock.Now(),
	}, nil
}

// attach re-reads the invoice so fields written by a concurrent audit are
// kept, then stores the review alone. With a Writer the re-read and the
// write are also serialised with audit commits, which keep a stored review
// when they carry none.
func (r *Reviewer) attach(ctx context.Context, invoiceID string, review *domain.ChiefAuditorReview) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apply := func(inv *domain.Invoice) error {
		if inv.ChiefAuditorReview != nil {
			return domain.ErrAlreadyReviewed
		}
		inv.ChiefAuditorReview = review
		inv.UpdatedAt = r.clock.Now()
		return nil
	}

	var current *domain.Invoice
	var err error
	if r.writer != nil {
		current, err = r.writer.Amend(ctx, invoiceID, apply)
	} else {
		current, err = r.invoices.Invoice(ctx, invoiceID)
		if err == nil {
			err = apply(current)
		}
		if err == nil {
			err = r.invoices.PutInvoice(ctx, current)
		}
	}
	if err != nil {
		return fmt.Errorf("escalate %s: %w", invoiceID, err)
	}
	if r.view != nil {
		r.view.Sync(current)
	}

	if r.auditLog != nil {
		detail := review.AuditLogEntry
		if detail == "" {
			detail = fmt.Sprintf("determination %s (confidence %d)", review.Determination, review.Confidence)
		}
		if _, err := r.auditLog.AppendAudit(ctx, domain.AuditEntry{
			ID:        r.ids.Generate(),
			TenantID:  current.TenantID,
			InvoiceID: current.ID,
			Actor:     "chief-auditor",
			Action:    "escalation",
			Detail:    detail,
			Ts:        r.clock.Now(),
		}); err != nil {
			r.logger.Error("audit log append failed", "invoiceId", invoiceID, "error", err)
		}
	}
	return nil
}

func (r *Reviewer) fail(logger *slog.Logger, invoiceID string, cause error) error {
	metrics.EscalationsTotal.WithLabelValues("error").Inc()
	err := &domain.EscalationServiceError{InvoiceID: invoiceID, Err: cause}
	logger.Error("escalation review failed", "error", err)
	return err
}

func prompt(inv *domain.Invoice, client *domain.ClientProfile) string {
	var sb strings.Builder
	reasoning.RenderSection(&sb, "First-line risk assessment", inv.RiskAssessment)
	reasoning.RenderSection(&sb, "Validation results", inv.ValidationResults)
	sb.WriteString("## First-line audit report\n")
	if strings.TrimSpace(inv.AuditReport) == "" {
		sb.WriteString("none\n\n")
	} else {
		sb.WriteString(inv.AuditReport)
		sb.WriteString("\n\n")
	}
	summary := *inv
	summary.ValidationResults = nil
	summary.RiskAssessment = nil
	summary.AuditReport = ""
	summary.RejectionDrafts = nil
	summary.SpendingAnalysis = nil
	reasoning.RenderSection(&sb, "Invoice", &summary)
	reasoning.RenderSection(&sb, "Client funding profile", client)
	if inv.SpendingAnalysis != nil {
		reasoning.RenderSection(&sb, "Spend velocity projection", inv.SpendingAnalysis)
	}
	return sb.String()
}
