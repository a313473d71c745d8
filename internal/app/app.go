// Package app wires the stores, reasoning tiers, and pipeline stages into
// one process-wide object shared by the CLI, the HTTP server, and the
// scenario harness.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roach88/ledgerguard/internal/audit"
	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/drafts"
	"github.com/roach88/ledgerguard/internal/escalation"
	"github.com/roach88/ledgerguard/internal/metrics"
	"github.com/roach88/ledgerguard/internal/notify"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/router"
	"github.com/roach88/ledgerguard/internal/rules"
	"github.com/roach88/ledgerguard/internal/server"
	"github.com/roach88/ledgerguard/internal/store"
)

// Deps are the inputs to New. Only Settings and Store are required; the
// rest fall back to the production implementations.
type Deps struct {
	Settings  *config.Settings
	Store     *store.Store
	Router    *router.Router
	Providers map[string]reasoning.Provider
	Gateway   notify.Gateway
	Clock     domain.Clock
	IDs       domain.IDGenerator
	Logger    *slog.Logger

	// OnReport observes every finished notification report.
	OnReport func(notify.Report)
}

// App holds the wired components.
type App struct {
	Store      *store.Store
	Settings   *config.Shared
	Gate       *reasoning.RetryGate
	Pipeline   *audit.Pipeline
	Reviewer   *escalation.Reviewer
	Drafter    *drafts.Drafter
	Dispatcher *notify.Engine
	Notifier   *notify.Async

	logger *slog.Logger
}

// New builds an App. Close must be called to drain pending notifications.
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = domain.SystemClock{}
	}
	if d.IDs == nil {
		d.IDs = domain.UUIDv7Generator{}
	}
	if d.Router == nil {
		d.Router = router.FromSettings(d.Settings)
	}
	if d.Providers == nil {
		d.Providers = reasoning.NewProviders(d.Settings, nil)
	}
	if d.Gateway == nil {
		d.Gateway = notify.GatewayFromSettings(d.Settings.Email, d.Logger)
	}
	metrics.Register()

	st := d.Store
	clock := d.Clock
	shared := config.NewShared(d.Settings, func(s *config.Settings) error {
		return st.SaveSettings(context.Background(), s, clock)
	})

	completer := reasoning.NewClient(d.Router, d.Providers, d.Logger)
	gate := reasoning.NewRetryGate(d.Settings.Audit.Cooldown, d.Clock)

	dispatcher := notify.NewEngine(shared, st, d.Gateway,
		notify.WithClients(st),
		notify.WithClock(d.Clock),
		notify.WithIDs(d.IDs),
		notify.WithLogger(d.Logger),
	)
	var asyncOpts []notify.AsyncOption
	if d.OnReport != nil {
		asyncOpts = append(asyncOpts, notify.WithReportHook(d.OnReport))
	}
	notifier := notify.NewAsync(dispatcher, d.Logger, asyncOpts...)

	evaluator := rules.New(st,
		rules.NewCatalog(d.Settings.Catalog.ServiceCodes, d.Settings.Catalog.Keywords),
		rules.WithLookupDelay(d.Settings.Audit.LookupDelay),
		rules.WithLogger(d.Logger),
	)
	pipeline := audit.New(st, st, evaluator, reasoning.NewAuditor(completer, gate, d.Logger),
		audit.WithGate(gate),
		audit.WithVelocity(reasoning.NewVelocityAnalyzer(completer, d.Clock, d.Logger)),
		audit.WithSettings(shared),
		audit.WithAuditLog(st),
		audit.WithNotifier(notifier),
		audit.WithClock(d.Clock),
		audit.WithIDs(d.IDs),
		audit.WithLogger(d.Logger),
	)

	return &App{
		Store:    st,
		Settings: shared,
		Gate:     gate,
		Pipeline: pipeline,
		Reviewer: escalation.New(st, st, completer,
			escalation.WithAuditLog(st),
			escalation.WithView(pipeline.Selection()),
			escalation.WithWriter(pipeline),
			escalation.WithClock(d.Clock),
			escalation.WithIDs(d.IDs),
			escalation.WithLogger(d.Logger),
		),
		Drafter: drafts.New(st, st, completer,
			drafts.WithView(pipeline.Selection()),
			drafts.WithWriter(pipeline),
			drafts.WithClock(d.Clock),
			drafts.WithLogger(d.Logger),
		),
		Dispatcher: dispatcher,
		Notifier:   notifier,
		logger:     d.Logger,
	}
}

// Handler returns the HTTP API backed by this App.
func (a *App) Handler() http.Handler {
	return server.New(server.Services{
		Pipeline:      a.Pipeline,
		Escalator:     a.Reviewer,
		Drafter:       a.Drafter,
		Invoices:      a.Store,
		Inbox:         a.Store,
		Selection:     a.Pipeline.Selection(),
		Settings:      a.Settings,
		DefaultTenant: a.Settings.Snapshot().Audit.DefaultTenant,
	}, a.logger)
}

// Close waits for queued notifications and stops the dispatcher.
func (a *App) Close() {
	a.Notifier.Close()
}

// MergePersisted overlays notification rules saved in the store onto cfg.
// Provider keys, email credentials, and paths always come from the file and
// environment; rules edited at runtime survive restarts.
func MergePersisted(ctx context.Context, st *store.Store, cfg *config.Settings) error {
	saved, found, err := st.LoadSettings(ctx)
	if err != nil {
		return fmt.Errorf("load persisted settings: %w", err)
	}
	if found && len(saved.NotificationRules) > 0 {
		cfg.NotificationRules = saved.NotificationRules
	}
	return nil
}
