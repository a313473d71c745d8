package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Registry resolves purchase orders. A nil PO with a nil error means the
// number is unknown.
type Registry interface {
	PurchaseOrder(ctx context.Context, poNumber string) (*domain.PurchaseOrder, error)
}

// Outcome is the result of one rule-engine pass.
type Outcome struct {
	Results       []domain.ValidationResult
	PONumber      string
	PurchaseOrder *domain.PurchaseOrder
}

// Engine runs the deterministic checks.
type Engine struct {
	registry    Registry
	catalog     *Catalog
	lookupDelay time.Duration
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookupDelay models registry latency with a bounded wait before the
// PO lookup.
func WithLookupDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.lookupDelay = d
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a rule engine.
func New(registry Registry, catalog *Catalog, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		catalog:  catalog,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalog == nil {
		e.catalog = NewCatalog(nil, nil)
	}
	return e
}

// Evaluate runs the checks against inv. It does not mutate inv.
func (e *Engine) Evaluate(ctx context.Context, inv *domain.Invoice) Outcome {
	poNumber := strings.TrimSpace(inv.PONumber())
	if poNumber == "" {
		return Outcome{Results: []domain.ValidationResult{
			domain.Fail(domain.RulePOPresent, domain.SeverityBlocking, "no purchase order number on invoice"),
		}}
	}

	out := Outcome{PONumber: poNumber}

	po, err := e.lookup(ctx, poNumber)
	if err != nil {
		e.logger.Warn("purchase order lookup failed", "invoiceId", inv.ID, "poNumber", poNumber, "error", err)
		out.Results = append(out.Results, domain.Fail(domain.RulePOLookup, domain.SeverityBlocking,
			fmt.Sprintf("purchase order %s could not be looked up: %v", poNumber, err)))
		return out
	}
	if po == nil {
		out.Results = append(out.Results, domain.Fail(domain.RulePOLookup, domain.SeverityBlocking,
			fmt.Sprintf("unknown PO %s", poNumber)))
		return out
	}
	out.PurchaseOrder = po
	out.Results = append(out.Results,
		domain.Pass(domain.RulePOLookup, domain.SeverityInfo, fmt.Sprintf("matched PO %s", poNumber)),
		checkBudget(inv, po),
		checkServicePeriod(inv, po),
		e.checkCategories(inv, po),
	)
	return out
}

func (e *Engine) lookup(ctx context.Context, poNumber string) (*domain.PurchaseOrder, error) {
	if e.lookupDelay > 0 {
		timer := time.NewTimer(e.lookupDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if e.registry == nil {
		return nil, fmt.Errorf("no purchase order registry")
	}
	return e.registry.PurchaseOrder(ctx, poNumber)
}

func checkBudget(inv *domain.Invoice, po *domain.PurchaseOrder) domain.ValidationResult {
	remaining := domain.Cents(po.RemainingBalance())
	total := domain.Cents(inv.Total)
	if total > remaining {
		return domain.Fail(domain.RuleBudget, domain.SeverityBlocking,
			fmt.Sprintf("invoice total %s exceeds remaining PO balance %s by %s",
				domain.FormatCents(total), domain.FormatCents(remaining), domain.FormatCents(total-remaining)))
	}
	return domain.Pass(domain.RuleBudget, domain.SeverityInfo,
		fmt.Sprintf("remaining balance after this invoice: %s", domain.FormatCents(remaining-total)))
}

func checkServicePeriod(inv *domain.Invoice, po *domain.PurchaseOrder) domain.ValidationResult {
	date, err := domain.ParseDate(inv.InvoiceDate)
	if err != nil {
		return domain.Fail(domain.RuleServicePeriod, domain.SeverityWarning,
			fmt.Sprintf("invoice date %q could not be parsed", inv.InvoiceDate))
	}
	from, errFrom := domain.ParseDate(po.ValidFrom)
	to, errTo := domain.ParseDate(po.ValidTo)
	if errFrom != nil || errTo != nil {
		return domain.Fail(domain.RuleServicePeriod, domain.SeverityWarning,
			fmt.Sprintf("PO validity window %q to %q could not be parsed", po.ValidFrom, po.ValidTo))
	}
	if date.Before(from) || date.After(to) {
		return domain.Fail(domain.RuleServicePeriod, domain.SeverityBlocking,
			fmt.Sprintf("invoice date %s is outside PO validity %s to %s",
				date.Format(domain.DateLayout), from.Format(domain.DateLayout), to.Format(domain.DateLayout)))
	}
	return domain.Pass(domain.RuleServicePeriod, domain.SeverityInfo, "invoice date within PO validity window")
}

func (e *Engine) checkCategories(inv *domain.Invoice, po *domain.PurchaseOrder) domain.ValidationResult {
	approved := make(map[string]bool, len(po.ApprovedCategories))
	for _, c := range po.ApprovedCategories {
		approved[fold(c)] = true
	}

	var offending []string
	for i, item := range inv.LineItems {
		category, known := e.catalog.Resolve(item)
		switch {
		case !known && item.ServiceCode != "":
			offending = append(offending, fmt.Sprintf("line %d %q: service code %s not in catalog", i+1, item.Description, item.ServiceCode))
		case !known:
			// Unclassifiable free text is left to the deep audit.
		case !approved[category]:
			offending = append(offending, fmt.Sprintf("line %d %q: %s not approved on PO", i+1, item.Description, category))
		}
	}
	if len(offending) > 0 {
		return domain.Fail(domain.RuleCarePlan, domain.SeverityBlocking,
			"services outside approved care plan: "+strings.Join(offending, "; "))
	}
	return domain.Pass(domain.RuleCarePlan, domain.SeverityInfo, "all line items within approved categories")
}
