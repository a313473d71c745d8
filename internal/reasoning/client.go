package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/metrics"
	"github.com/roach88/ledgerguard/internal/router"
)

// Completer routes a tiered request to a provider and returns its reply.
type Completer interface {
	Complete(ctx context.Context, tier router.Tier, req Request) (string, router.Route, error)
}

// Client is the Completer backed by a Router and a provider registry.
type Client struct {
	router    *router.Router
	providers map[string]Provider
	logger    *slog.Logger
}

// NewClient creates a client. providers is keyed by router profile name.
func NewClient(r *router.Router, providers map[string]Provider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{router: r, providers: providers, logger: logger}
}

// Complete routes tier, fills in the model and invokes the provider.
func (c *Client) Complete(ctx context.Context, tier router.Tier, req Request) (string, router.Route, error) {
	route, err := c.router.Route(tier, "")
	if err != nil {
		return "", route, err
	}
	provider, ok := c.providers[route.Provider]
	if !ok {
		return "", route, &domain.ConfigurationError{
			Tier: string(tier), Provider: route.Provider, Message: "no adapter registered for provider",
		}
	}

	req.Model = route.Model
	start := time.Now()
	text, err := provider.Invoke(ctx, req)
	metrics.ReasoningCallDuration.WithLabelValues(route.Provider, string(tier)).Observe(time.Since(start).Seconds())
	metrics.ReasoningCallsTotal.WithLabelValues(route.Provider, string(tier), metrics.Result(err)).Inc()
	if err != nil {
		c.logger.Warn("reasoning call failed", "route", route.String(), "error", err)
		return "", route, err
	}
	c.logger.Debug("reasoning call completed", "route", route.String(), "bytes", len(text))
	return text, route, nil
}

// DecodeJSON extracts the JSON object from a model reply, tolerating
// markdown code fences and surrounding prose.
func DecodeJSON(text string, out any) error {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	if !strings.HasPrefix(cleaned, "{") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end < start {
			return fmt.Errorf("parse model JSON: no object in reply (raw: %s)", truncate(text, 200))
		}
		cleaned = cleaned[start : end+1]
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parse model JSON: %w (raw: %s)", err, truncate(text, 200))
	}
	return nil
}
