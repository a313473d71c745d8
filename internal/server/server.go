// Package server exposes the pipeline operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/ledgerguard/internal/audit"
	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
)

// Pipeline runs audits and decisions.
type Pipeline interface {
	Run(ctx context.Context, invoiceID string) (*domain.Invoice, error)
	Approve(ctx context.Context, invoiceID, actor string) (*domain.Invoice, error)
	Reject(ctx context.Context, invoiceID, actor string) (*domain.Invoice, error)
}

// Escalator requests second opinions.
type Escalator interface {
	Review(ctx context.Context, invoiceID string) (*domain.ChiefAuditorReview, error)
}

// Drafter produces rejection drafts.
type Drafter interface {
	Draft(ctx context.Context, invoiceID string) (*domain.RejectionDrafts, error)
}

// Invoices reads stored invoices.
type Invoices interface {
	Invoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, tenantID string) ([]*domain.Invoice, error)
}

// Inbox reads and acknowledges in-app notifications.
type Inbox interface {
	Notifications(ctx context.Context, tenantID string, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Services are the collaborators behind the routes.
type Services struct {
	Pipeline      Pipeline
	Escalator     Escalator
	Drafter       Drafter
	Invoices      Invoices
	Inbox         Inbox
	Selection     *audit.Selection
	Settings      *config.Shared
	DefaultTenant string
}

// Server is the HTTP surface.
type Server struct {
	svc    Services
	logger *slog.Logger
	router chi.Router
}

// New builds the router.
func New(svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if svc.Selection == nil {
		svc.Selection = audit.NewSelection()
	}
	s := &Server{svc: svc, logger: logger}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/invoices", func(api chi.Router) {
		api.Get("/", s.listInvoices)
		api.Get("/{id}", s.getInvoice)
		api.Post("/{id}/audit", s.runAudit)
		api.Post("/{id}/escalation", s.escalate)
		api.Post("/{id}/rejection-drafts", s.draftRejection)
		api.Post("/{id}/approve", s.approve)
		api.Post("/{id}/reject", s.reject)
	})

	r.Get("/selection", s.getSelection)
	r.Put("/selection/{id}", s.openSelection)
	r.Delete("/selection", s.closeSelection)

	r.Get("/notifications", s.listNotifications)
	r.Post("/notifications/{id}/read", s.markRead)

	r.Get("/notification-rules", s.listRules)
	r.Put("/notification-rules/{trigger}", s.putRule)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) tenant(r *http.Request) string {
	if t := r.URL.Query().Get("tenant"); t != "" {
		return t
	}
	return s.svc.DefaultTenant
}

func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.svc.Invoices.ListInvoices(r.Context(), s.tenant(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.Invoices.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) runAudit(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.Pipeline.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) escalate(w http.ResponseWriter, r *http.Request) {
	review, err := s.svc.Escalator.Review(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) draftRejection(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.svc.Drafter.Draft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

type decisionRequest struct {
	Actor string `json:"actor"`
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.svc.Pipeline.Approve)
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.svc.Pipeline.Reject)
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request, action func(context.Context, string, string) (*domain.Invoice, error)) {
	var req decisionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	inv, err := action(r.Context(), chi.URLParam(r, "id"), req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request) {
	inv := s.svc.Selection.Current()
	if inv == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) openSelection(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.Invoices.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.svc.Selection.Open(inv)
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) closeSelection(w http.ResponseWriter, r *http.Request) {
	s.svc.Selection.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	items, err := s.svc.Inbox.Notifications(r.Context(), s.tenant(r), unread)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Inbox.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rules": s.svc.Settings.Rules()})
}

// rulePatch carries optional rule fields; absent fields keep their value.
type rulePatch struct {
	InApp      *bool   `json:"inApp"`
	Email      *bool   `json:"email"`
	Recipients *string `json:"recipients"`
}

func (s *Server) putRule(w http.ResponseWriter, r *http.Request) {
	trigger := domain.Trigger(chi.URLParam(r, "trigger"))
	if !trigger.IsValid() {
		writeError(w, http.StatusBadRequest, "UNKNOWN_TRIGGER", "unknown trigger "+string(trigger))
		return
	}
	var patch rulePatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	rule, err := s.svc.Settings.UpsertRule(trigger, func(rule *domain.NotificationRule) {
		if patch.InApp != nil {
			rule.InApp = *patch.InApp
		}
		if patch.Email != nil {
			rule.Email = *patch.Email
		}
		if patch.Recipients != nil {
			rule.Recipients = *patch.Recipients
		}
	})
	if err != nil {
		s.logger.Error("saving notification rule failed", "trigger", trigger, "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// readJSON decodes an optional JSON body. An empty body leaves v untouched.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
