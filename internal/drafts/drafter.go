// Package drafts writes the two rejection messages for an invoice: a
// technical one for the supplier and a plain-language one for the client.
//
// Drafts are generated once. Later requests return the stored pair
// unchanged without calling the provider. The stored invoice and any open
// view are updated together.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/metrics"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/router"
)

const vendorSystemPrompt = `You are an accounts-payable officer writing to a care-services supplier.
Explain precisely which compliance rule the invoice failed, quote the figures
involved, and ask for a corrected invoice or a credit note. Be courteous and
technical. Return ONLY valid JSON: {"subject": "...", "body": "..."}`

const clientSystemPrompt = `You are a client liaison writing to a person who receives care services.
In plain, kind, non-technical language explain that an invoice for their
services is on hold, what happens next, and that they may raise a complaint
with the independent quality and safeguards commission if they are unhappy.
Do not quote rule IDs. Return ONLY valid JSON: {"subject": "...", "body": "..."}`

// Repository loads and replaces whole invoices.
type Repository interface {
	Invoice(ctx context.Context, id string) (*domain.Invoice, error)
	PutInvoice(ctx context.Context, inv *domain.Invoice) error
}

// ClientRegistry resolves the client's contact address.
type ClientRegistry interface {
	Client(ctx context.Context, id string) (*domain.ClientProfile, error)
}

// View is an open copy of an invoice kept in sync after drafting.
type View interface {
	Sync(inv *domain.Invoice) bool
}

// Writer applies a change to the stored invoice, serialised with every
// other writer of the same store.
type Writer interface {
	Amend(ctx context.Context, invoiceID string, fn func(inv *domain.Invoice) error) (*domain.Invoice, error)
}

// Drafter generates and caches rejection drafts.
type Drafter struct {
	invoices  Repository
	clients   ClientRegistry
	completer reasoning.Completer
	view      View
	writer    Writer
	clock     domain.Clock
	logger    *slog.Logger
}

// Option configures a Drafter.
type Option func(*Drafter)

// WithView keeps an open invoice view in sync.
func WithView(v View) Option {
	return func(d *Drafter) { d.view = v }
}

// WithWriter routes the final write through w instead of the repository.
func WithWriter(w Writer) Option {
	return func(d *Drafter) { d.writer = w }
}

// WithClock overrides the wall clock.
func WithClock(c domain.Clock) Option {
	return func(d *Drafter) { d.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Drafter) { d.logger = l }
}

// New creates a Drafter.
func New(invoices Repository, clients ClientRegistry, completer reasoning.Completer, opts ...Option) *Drafter {
	d := &Drafter{
		invoices:  invoices,
		clients:   clients,
		completer: completer,
		clock:     domain.SystemClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type draftReply struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Draft returns the invoice's rejection drafts, generating and persisting
// them on first use. Provider and persistence failures are returned.
func (d *Drafter) Draft(ctx context.Context, invoiceID string) (*domain.RejectionDrafts, error) {
	inv, err := d.invoices.Invoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("draft rejection %s: %w", invoiceID, err)
	}
	if inv.RejectionDrafts != nil {
		metrics.DraftsTotal.WithLabelValues("cache").Inc()
		return inv.RejectionDrafts, nil
	}
	logger := d.logger.With("invoiceId", inv.ID, "tenantId", inv.TenantID)

	var client *domain.ClientProfile
	if inv.ClientID != "" && d.clients != nil {
		client, err = d.clients.Client(ctx, inv.ClientID)
		if err != nil {
			logger.Warn("client lookup failed", "clientId", inv.ClientID, "error", err)
		}
	}

	reasons := RejectionContext(inv)
	var vendor, toClient draftReply
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.generate(gctx, vendorSystemPrompt, vendorPrompt(inv, reasons), &vendor)
	})
	g.Go(func() error {
		return d.generate(gctx, clientSystemPrompt, clientPrompt(inv, client, reasons), &toClient)
	})
	if err := g.Wait(); err != nil {
		metrics.DraftsTotal.WithLabelValues("error").Inc()
		logger.Error("rejection drafting failed", "error", err)
		return nil, fmt.Errorf("draft rejection %s: %w", invoiceID, err)
	}

	drafts := &domain.RejectionDrafts{
		Vendor:      domain.Message{To: inv.SupplierEmail, Subject: vendor.Subject, Body: vendor.Body},
		Client:      domain.Message{Subject: toClient.Subject, Body: toClient.Body},
		GeneratedAt: d.clock.Now(),
	}
	if client != nil {
		drafts.Client.To = client.Email
	}

	stored, err := d.store(ctx, inv, drafts)
	if err != nil {
		return nil, fmt.Errorf("draft rejection %s: %w", invoiceID, err)
	}
	if d.view != nil {
		d.view.Sync(stored)
	}
	metrics.DraftsTotal.WithLabelValues("generated").Inc()
	logger.Info("rejection drafts generated")
	return stored.RejectionDrafts, nil
}

// store attaches drafts to the invoice and returns the stored copy. A pair
// written by a concurrent request first is kept.
func (d *Drafter) store(ctx context.Context, loaded *domain.Invoice, drafts *domain.RejectionDrafts) (*domain.Invoice, error) {
	apply := func(inv *domain.Invoice) error {
		if inv.RejectionDrafts == nil {
			inv.RejectionDrafts = drafts
			inv.UpdatedAt = d.clock.Now()
		}
		return nil
	}
	if d.writer != nil {
		return d.writer.Amend(ctx, loaded.ID, apply)
	}
	apply(loaded)
	if err := d.invoices.PutInvoice(ctx, loaded); err != nil {
		return nil, err
	}
	return loaded, nil
}

func (d *Drafter) generate(ctx context.Context, system, prompt string, out *draftReply) error {
	text, _, err := d.completer.Complete(ctx, router.TierFast, reasoning.Request{System: system, Prompt: prompt})
	if err != nil {
		return err
	}
	if err := reasoning.DecodeJSON(text, out); err != nil {
		return err
	}
	if strings.TrimSpace(out.Subject) == "" || strings.TrimSpace(out.Body) == "" {
		return errors.New("draft reply missing subject or body")
	}
	return nil
}

// RejectionContext lists every blocking failure's details followed by the
// risk justification.
func RejectionContext(inv *domain.Invoice) string {
	var lines []string
	for _, r := range inv.ValidationResults {
		if r.IsBlockingFailure() {
			lines = append(lines, fmt.Sprintf("- %s: %s", r.RuleID, r.Details))
		}
	}
	if inv.RiskAssessment != nil && inv.RiskAssessment.Justification != "" {
		lines = append(lines, "Risk assessment: "+inv.RiskAssessment.Justification)
	}
	if len(lines) == 0 {
		return "No specific failure was recorded; the reviewer rejected the invoice."
	}
	return strings.Join(lines, "\n")
}

func vendorPrompt(inv *domain.Invoice, reasons string) string {
	return fmt.Sprintf("Supplier: %s\nInvoice number: %s\nInvoice date: %s\nTotal: %s\nPO: %s\n\nReasons for rejection:\n%s\n",
		inv.SupplierName, inv.InvoiceNumber, inv.InvoiceDate,
		domain.FormatCents(domain.Cents(inv.Total)), inv.PONumber(), reasons)
}

func clientPrompt(inv *domain.Invoice, client *domain.ClientProfile, reasons string) string {
	name := "the client"
	if client != nil && client.Name != "" {
		name = client.Name
	}
	return fmt.Sprintf("Client: %s\nProvider of the services: %s\nAmount: %s\n\nWhy it is on hold (for your understanding only):\n%s\n",
		name, inv.SupplierName, domain.FormatCents(domain.Cents(inv.Total)), reasons)
}
