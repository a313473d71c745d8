package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEDGERGUARD"

// envKeys are the settings that may be overridden from the environment.
// Viper only resolves env vars for keys it knows about, so they are bound
// explicitly.
var envKeys = []string{
	"database.path",
	"server.addr",
	"providers.anthropic.apiKey",
	"providers.anthropic.baseUrl",
	"providers.openai.apiKey",
	"providers.openai.baseUrl",
	"providers.perplexity.apiKey",
	"providers.perplexity.baseUrl",
	"audit.cooldown",
	"audit.defaultTenant",
	"email.host",
	"email.port",
	"email.username",
	"email.password",
	"email.from",
}

// Load merges the YAML file at path (optional; "" or a missing file means
// defaults only) and LEDGERGUARD_* environment variables over Default(),
// then validates the result.
func Load(path string) (*Settings, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
