// Package config loads, validates and shares the settings object that is
// injected into every pipeline component.
//
// Settings come from three layers, later layers winning:
//
//  1. Default() built-ins
//  2. an optional YAML file
//  3. LEDGERGUARD_* environment variables (API keys, database path, addr)
//
// The merged object is validated against an embedded CUE schema before use.
package config

import (
	"strings"
	"time"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Provider names in registration order.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderPerplexity = "perplexity"
)

// ProviderOrder is the registration order used when no preference applies.
var ProviderOrder = []string{ProviderAnthropic, ProviderOpenAI, ProviderPerplexity}

// Settings is the full process configuration.
type Settings struct {
	Database          DatabaseSettings          `json:"database" yaml:"database" mapstructure:"database"`
	Server            ServerSettings            `json:"server" yaml:"server" mapstructure:"server"`
	Providers         ProvidersSettings         `json:"providers" yaml:"providers" mapstructure:"providers"`
	ComplexPreference []string                  `json:"complexPreference" yaml:"complexPreference" mapstructure:"complexPreference"`
	Audit             AuditSettings             `json:"audit" yaml:"audit" mapstructure:"audit"`
	Policy            PolicySettings            `json:"policy" yaml:"policy" mapstructure:"policy"`
	Catalog           CatalogSettings           `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	NotificationRules []domain.NotificationRule `json:"notificationRules" yaml:"notificationRules" mapstructure:"notificationRules"`
	Email             EmailSettings             `json:"email" yaml:"email" mapstructure:"email"`
}

// DatabaseSettings locates the SQLite store.
type DatabaseSettings struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// ProvidersSettings holds one entry per supported reasoning provider.
type ProvidersSettings struct {
	Anthropic  ProviderSettings `json:"anthropic" yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     ProviderSettings `json:"openai" yaml:"openai" mapstructure:"openai"`
	Perplexity ProviderSettings `json:"perplexity" yaml:"perplexity" mapstructure:"perplexity"`
}

// ProviderSettings is one provider's credential and tier→model table.
// Model keys are lower-case tier names (fast, standard, complex, research).
type ProviderSettings struct {
	APIKey     string            `json:"apiKey" yaml:"apiKey" mapstructure:"apiKey"`
	BaseURL    string            `json:"baseUrl" yaml:"baseUrl" mapstructure:"baseUrl"`
	LiveSearch bool              `json:"liveSearch" yaml:"liveSearch" mapstructure:"liveSearch"`
	Models     map[string]string `json:"models" yaml:"models" mapstructure:"models"`
}

// Configured reports whether the provider can be called.
func (p ProviderSettings) Configured() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// Provider returns the named provider's settings.
func (s *Settings) Provider(name string) (ProviderSettings, bool) {
	switch name {
	case ProviderAnthropic:
		return s.Providers.Anthropic, true
	case ProviderOpenAI:
		return s.Providers.OpenAI, true
	case ProviderPerplexity:
		return s.Providers.Perplexity, true
	}
	return ProviderSettings{}, false
}

// AuditSettings tunes the pipeline driver.
type AuditSettings struct {
	Cooldown      time.Duration `json:"cooldown" yaml:"cooldown" mapstructure:"cooldown"`
	LookupDelay   time.Duration `json:"lookupDelay" yaml:"lookupDelay" mapstructure:"lookupDelay"`
	DefaultTenant string        `json:"defaultTenant" yaml:"defaultTenant" mapstructure:"defaultTenant"`
}

// PolicySettings carries free-text policy and attached policy files, passed
// verbatim to the deep audit.
type PolicySettings struct {
	Text  string       `json:"text" yaml:"text" mapstructure:"text"`
	Files []PolicyFile `json:"files" yaml:"files" mapstructure:"files"`
}

// PolicyFile is an attached policy document.
type PolicyFile struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	MimeType string `json:"mimeType" yaml:"mimeType" mapstructure:"mimeType"`
	Path     string `json:"path" yaml:"path" mapstructure:"path"`
}

// CatalogSettings maps service codes and description keywords to approved
// service categories.
type CatalogSettings struct {
	ServiceCodes map[string]string   `json:"serviceCodes" yaml:"serviceCodes" mapstructure:"serviceCodes"`
	Keywords     map[string][]string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
}

// EmailSettings configures the SMTP gateway. An empty host selects the log
// gateway.
type EmailSettings struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	From     string `json:"from" yaml:"from" mapstructure:"from"`
}

// Rule returns the notification rule for a trigger.
func (s *Settings) Rule(trigger domain.Trigger) (domain.NotificationRule, bool) {
	for _, r := range s.NotificationRules {
		if r.Trigger == trigger {
			return r, true
		}
	}
	return domain.NotificationRule{}, false
}

// UpsertRule looks up the rule for trigger, creating a disabled one if
// absent, then applies patch. At most one rule exists per trigger.
func (s *Settings) UpsertRule(trigger domain.Trigger, patch func(*domain.NotificationRule)) domain.NotificationRule {
	for i := range s.NotificationRules {
		if s.NotificationRules[i].Trigger == trigger {
			patch(&s.NotificationRules[i])
			return s.NotificationRules[i]
		}
	}
	s.NotificationRules = append(s.NotificationRules, domain.NotificationRule{Trigger: trigger})
	r := &s.NotificationRules[len(s.NotificationRules)-1]
	patch(r)
	return *r
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	c := *s
	c.ComplexPreference = append([]string(nil), s.ComplexPreference...)
	c.NotificationRules = append([]domain.NotificationRule(nil), s.NotificationRules...)
	c.Policy.Files = append([]PolicyFile(nil), s.Policy.Files...)
	c.Providers.Anthropic.Models = cloneMap(s.Providers.Anthropic.Models)
	c.Providers.OpenAI.Models = cloneMap(s.Providers.OpenAI.Models)
	c.Providers.Perplexity.Models = cloneMap(s.Providers.Perplexity.Models)
	c.Catalog.ServiceCodes = cloneMap(s.Catalog.ServiceCodes)
	if s.Catalog.Keywords != nil {
		c.Catalog.Keywords = make(map[string][]string, len(s.Catalog.Keywords))
		for k, v := range s.Catalog.Keywords {
			c.Catalog.Keywords[k] = append([]string(nil), v...)
		}
	}
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
