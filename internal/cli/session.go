package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/ledgerguard/internal/app"
	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/store"
)

// session is an opened store plus the App wired over it.
type session struct {
	settings *config.Settings
	store    *store.Store
	app      *app.App
	logger   *slog.Logger
}

// newLogger configures logging based on the verbose flag.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadSettings reads settings from --config and applies --db.
func loadSettings(opts *RootOptions) (*config.Settings, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

// openSession loads settings, opens the database, merges persisted rules
// and wires the App. Callers must Close the session.
func openSession(ctx context.Context, opts *RootOptions, logw io.Writer) (*session, error) {
	cfg, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(logw, opts.Verbose)

	logger.Debug("opening database", "path", cfg.Database.Path)
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if err := app.MergePersisted(ctx, st, cfg); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load persisted settings", err)
	}

	a := app.New(app.Deps{Settings: cfg, Store: st, Logger: logger})
	return &session{settings: cfg, store: st, app: a, logger: logger}, nil
}

// Close drains pending notifications, then closes the database.
func (s *session) Close() {
	s.app.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
}
