package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Default cooldown before a degraded deep audit may be retried.
const DefaultCooldown = 5 * time.Second

// Default returns the built-in settings. Providers ship without API keys and
// are therefore unconfigured until a key is supplied.
func Default() *Settings {
	return &Settings{
		Database: DatabaseSettings{Path: "ledgerguard.db"},
		Server:   ServerSettings{Addr: ":8080"},
		Providers: ProvidersSettings{
			Anthropic: ProviderSettings{
				BaseURL: "https://api.anthropic.com",
				Models: map[string]string{
					"fast":     "claude-3-5-haiku-latest",
					"standard": "claude-sonnet-4-20250514",
					"complex":  "claude-opus-4-20250514",
				},
			},
			OpenAI: ProviderSettings{
				BaseURL: "https://api.openai.com/v1",
				Models: map[string]string{
					"fast":     "gpt-4o-mini",
					"standard": "gpt-4o",
					"complex":  "o3",
				},
			},
			Perplexity: ProviderSettings{
				BaseURL:    "https://api.perplexity.ai",
				LiveSearch: true,
				Models: map[string]string{
					"standard": "sonar",
					"research": "sonar-pro",
				},
			},
		},
		ComplexPreference: []string{ProviderAnthropic, ProviderOpenAI},
		Audit: AuditSettings{
			Cooldown:      DefaultCooldown,
			DefaultTenant: "default",
		},
		Catalog: CatalogSettings{
			ServiceCodes: map[string]string{
				"01_011_0107_1_1": "personal_care",
				"01_013_0107_1_1": "personal_care",
				"01_020_0120_1_1": "cleaning",
				"01_019_0120_1_1": "gardening",
				"04_104_0125_6_1": "community_access",
				"02_051_0108_1_1": "transport",
				"15_056_0128_1_3": "therapy",
			},
			Keywords: map[string][]string{
				"gardening":        {"garden", "lawn", "mowing", "hedge", "weeding", "yard"},
				"cleaning":         {"cleaning", "vacuum", "laundry", "housework"},
				"personal_care":    {"personal care", "showering", "dressing", "grooming"},
				"transport":        {"transport", "taxi", "travel", "kilometres"},
				"community_access": {"community", "social outing", "group activity"},
				"therapy":          {"therapy", "physiotherapy", "occupational", "speech"},
			},
		},
		NotificationRules: []domain.NotificationRule{
			{Trigger: domain.TriggerAuditFailed, InApp: true},
			{Trigger: domain.TriggerHighRiskDetected, InApp: true},
			{Trigger: domain.TriggerInvoiceApproved, InApp: true},
			{Trigger: domain.TriggerInvoiceRejected, InApp: true},
		},
		Email: EmailSettings{Port: 587, From: "audit@ledgerguard.local"},
	}
}

// WriteDefault writes the default settings as YAML to path, creating parent
// directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal default settings: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
