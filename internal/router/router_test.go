package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
)

func testProfiles() []Profile {
	return []Profile{
		{Name: "anthropic", Models: map[Tier]string{TierFast: "haiku", TierStandard: "sonnet", TierComplex: "opus"}},
		{Name: "openai", Models: map[Tier]string{TierFast: "mini", TierComplex: "o3"}},
		{Name: "perplexity", LiveSearch: true, Models: map[Tier]string{TierResearch: "sonar-pro"}},
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name      string
		pref      []string
		tier      Tier
		preferred string
		want      Route
	}{
		{"fast uses first registered", nil, TierFast, "", Route{"anthropic", "haiku", TierFast}},
		{"research prefers live search", nil, TierResearch, "", Route{"perplexity", "sonar-pro", TierResearch}},
		{"complex follows preference", []string{"openai", "anthropic"}, TierComplex, "", Route{"openai", "o3", TierComplex}},
		{"complex falls back to registration order", nil, TierComplex, "", Route{"anthropic", "opus", TierComplex}},
		{"explicit provider honoured", nil, TierFast, "openai", Route{"openai", "mini", TierFast}},
		{"skips provider without tier model", []string{"perplexity"}, TierComplex, "", Route{"anthropic", "opus", TierComplex}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testProfiles(), tt.pref)
			got, err := r.Route(tt.tier, tt.preferred)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoute_FailsClosed(t *testing.T) {
	_, err := New(nil, nil).Route(TierComplex, "")
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "no provider configured")

	r := New(testProfiles(), nil)
	_, err = r.Route(TierFast, "mistral")
	assert.True(t, domain.IsConfigurationError(err))

	_, err = r.Route(TierStandard, "openai")
	assert.True(t, domain.IsConfigurationError(err))
}

func TestFromSettings_OnlyKeyedProviders(t *testing.T) {
	s := config.Default()
	s.Providers.OpenAI.APIKey = "sk-openai"
	s.Providers.Perplexity.APIKey = "pplx"

	r := FromSettings(s)

	profiles := r.Profiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, "openai", profiles[0].Name)
	assert.Equal(t, "gpt-4o", profiles[0].Models[TierStandard])

	got, err := r.Route(TierComplex, "")
	require.NoError(t, err)
	assert.Equal(t, "openai", got.Provider)

	got, err = r.Route(TierResearch, "")
	require.NoError(t, err)
	assert.Equal(t, "perplexity", got.Provider)
}

func TestParseTier(t *testing.T) {
	tier, ok := ParseTier("complex")
	assert.True(t, ok)
	assert.Equal(t, TierComplex, tier)

	_, ok = ParseTier("ultra")
	assert.False(t, ok)
}
