package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/metrics"
)

// Gateway sends one email. It returns false on any configuration or
// transport problem instead of failing.
type Gateway interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// Inbox stores in-app notifications.
type Inbox interface {
	Enqueue(ctx context.Context, n domain.Notification) error
}

// RuleSource looks up the rule configured for a trigger.
type RuleSource interface {
	Rule(trigger domain.Trigger) (domain.NotificationRule, bool)
}

// ClientRegistry resolves client profiles for courtesy emails.
type ClientRegistry interface {
	Client(ctx context.Context, id string) (*domain.ClientProfile, error)
}

// Engine dispatches notifications for one trigger at a time.
type Engine struct {
	rules   RuleSource
	inbox   Inbox
	gateway Gateway
	clients ClientRegistry
	clock   domain.Clock
	ids     domain.IDGenerator
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClients enables the client courtesy email on approval.
func WithClients(c ClientRegistry) Option {
	return func(e *Engine) {
		e.clients = c
	}
}

// WithClock overrides the wall clock.
func WithClock(c domain.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDs overrides the notification ID generator.
func WithIDs(g domain.IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an Engine. A nil inbox or gateway disables that channel.
func NewEngine(rules RuleSource, inbox Inbox, gateway Gateway, opts ...Option) *Engine {
	e := &Engine{
		rules:   rules,
		inbox:   inbox,
		gateway: gateway,
		clock:   domain.SystemClock{},
		ids:     domain.UUIDv7Generator{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch delivers trigger for inv on every enabled channel.
func (e *Engine) Dispatch(ctx context.Context, trigger domain.Trigger, inv *domain.Invoice) Report {
	logger := e.logger.With("invoiceId", inv.ID, "tenantId", inv.TenantID, "trigger", trigger)
	report := Report{Trigger: trigger, InvoiceID: inv.ID}
	subject, body := Compose(trigger, inv)

	rule, ok := e.rules.Rule(trigger)
	if !ok {
		logger.Debug("no notification rule configured")
	}

	if ok && rule.InApp && e.inbox != nil {
		err := e.inbox.Enqueue(ctx, domain.Notification{
			ID:        e.ids.Generate(),
			TenantID:  inv.TenantID,
			InvoiceID: inv.ID,
			Trigger:   trigger,
			Message:   subject,
			CreatedAt: e.clock.Now(),
		})
		e.deliver(logger, &report, ChannelInApp, "inbox", err)
	}

	if ok && rule.Email && e.gateway != nil {
		for _, to := range ParseRecipients(rule.Recipients) {
			e.send(ctx, logger, &report, ChannelEmail, to, subject, body)
		}
	}

	if trigger == domain.TriggerInvoiceApproved {
		e.courtesy(ctx, logger, &report, inv)
	}
	return report
}

// courtesy emails the client about an approval when their address is
// known, regardless of the staff rule.
func (e *Engine) courtesy(ctx context.Context, logger *slog.Logger, report *Report, inv *domain.Invoice) {
	if e.clients == nil || e.gateway == nil || inv.ClientID == "" {
		return
	}
	client, err := e.clients.Client(ctx, inv.ClientID)
	if err != nil {
		logger.Warn("courtesy email skipped: client lookup failed", "clientId", inv.ClientID, "error", err)
		return
	}
	if client == nil || strings.TrimSpace(client.Email) == "" {
		return
	}
	subject, body := ComposeCourtesy(client, inv)
	e.send(ctx, logger, report, ChannelCourtesy, strings.TrimSpace(client.Email), subject, body)
}

func (e *Engine) send(ctx context.Context, logger *slog.Logger, report *Report, channel, to, subject, body string) {
	var err error
	if !e.gateway.Send(ctx, to, subject, body) {
		err = ErrNotSent
	}
	e.deliver(logger, report, channel, to, err)
}

func (e *Engine) deliver(logger *slog.Logger, report *Report, channel, recipient string, err error) {
	report.Deliveries = append(report.Deliveries, Delivery{Channel: channel, Recipient: recipient, OK: err == nil})
	metrics.NotificationsTotal.WithLabelValues(string(report.Trigger), channel, metrics.Result(err)).Inc()
	if err == nil {
		return
	}
	derr := &domain.NotificationDispatchError{
		Trigger:   report.Trigger,
		Recipient: recipient,
		InvoiceID: report.InvoiceID,
		Err:       err,
	}
	report.Failures = append(report.Failures, derr)
	logger.Warn("notification not delivered", "channel", channel, "recipient", recipient, "error", err)
}

// ParseRecipients splits a comma-separated list, trimming blanks.
func ParseRecipients(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

var triggerVerbs = map[domain.Trigger]string{
	domain.TriggerAuditFailed:      "failed its compliance audit",
	domain.TriggerHighRiskDetected: "was rated high risk",
	domain.TriggerInvoiceApproved:  "was approved for payment",
	domain.TriggerInvoiceRejected:  "was rejected",
}

// Compose renders the staff-facing subject and body for trigger.
func Compose(trigger domain.Trigger, inv *domain.Invoice) (string, string) {
	number := inv.InvoiceNumber
	if number == "" {
		number = inv.ID
	}
	subject := fmt.Sprintf("Invoice %s from %s %s", number, inv.SupplierName, triggerVerbs[trigger])

	var b strings.Builder
	fmt.Fprintf(&b, "Invoice: %s (%s)\n", number, inv.ID)
	fmt.Fprintf(&b, "Supplier: %s\n", inv.SupplierName)
	fmt.Fprintf(&b, "Total: %s\n", domain.FormatCents(domain.Cents(inv.Total)))
	fmt.Fprintf(&b, "Status: %s\n", inv.Status)
	if inv.RiskAssessment != nil {
		fmt.Fprintf(&b, "Risk: %s (%d)\n", inv.RiskAssessment.Level, inv.RiskAssessment.Score)
		if inv.RiskAssessment.Justification != "" {
			fmt.Fprintf(&b, "\n%s\n", inv.RiskAssessment.Justification)
		}
	}
	for _, r := range inv.ValidationResults {
		if r.IsBlockingFailure() {
			fmt.Fprintf(&b, "- %s: %s\n", r.RuleID, r.Details)
		}
	}
	return subject, b.String()
}

// ComposeCourtesy renders the client-facing approval email.
func ComposeCourtesy(client *domain.ClientProfile, inv *domain.Invoice) (string, string) {
	subject := fmt.Sprintf("Your invoice from %s has been approved", inv.SupplierName)
	body := fmt.Sprintf("Hello %s,\n\nThe invoice from %s for %s has been approved and will be paid from your plan.\n",
		client.Name, inv.SupplierName, domain.FormatCents(domain.Cents(inv.Total)))
	return subject, body
}
