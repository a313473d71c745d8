// Package router maps an abstract task-complexity tier to a concrete
// provider and model. Selection is a pure function of the registered
// profiles and the operator's preferences.
package router

import (
	"fmt"
	"strings"

	"github.com/roach88/ledgerguard/internal/config"
	"github.com/roach88/ledgerguard/internal/domain"
)

// Tier classifies a reasoning task by complexity.
type Tier string

const (
	// TierFast is for low-latency, low-cost interactive tasks.
	TierFast Tier = "FAST"
	// TierStandard is for retrieval or tool-augmented tasks.
	TierStandard Tier = "STANDARD"
	// TierComplex is for deep multi-step reasoning.
	TierComplex Tier = "COMPLEX"
	// TierResearch is for time-sensitive external lookups.
	TierResearch Tier = "RESEARCH"
)

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TierFast, TierStandard, TierComplex, TierResearch:
		return t, true
	}
	return "", false
}

// Profile describes one configured provider.
type Profile struct {
	Name       string
	Models     map[Tier]string
	LiveSearch bool
}

// Route is the router's decision.
type Route struct {
	Provider string
	Model    string
	Tier     Tier
}

// Router selects a provider for each request.
type Router struct {
	profiles          []Profile
	complexPreference []string
}

// New creates a router over profiles in registration order. complexPreference
// orders provider names for the COMPLEX tier.
func New(profiles []Profile, complexPreference []string) *Router {
	return &Router{
		profiles:          append([]Profile(nil), profiles...),
		complexPreference: append([]string(nil), complexPreference...),
	}
}

// FromSettings registers every provider that has an API key, in
// config.ProviderOrder.
func FromSettings(s *config.Settings) *Router {
	var profiles []Profile
	for _, name := range config.ProviderOrder {
		ps, _ := s.Provider(name)
		if !ps.Configured() {
			continue
		}
		p := Profile{Name: name, LiveSearch: ps.LiveSearch, Models: make(map[Tier]string)}
		for key, model := range ps.Models {
			if tier, ok := ParseTier(key); ok && model != "" {
				p.Models[tier] = model
			}
		}
		profiles = append(profiles, p)
	}
	return New(profiles, s.ComplexPreference)
}

// Profiles returns the registered profiles.
func (r *Router) Profiles() []Profile {
	return append([]Profile(nil), r.profiles...)
}

// Route picks the provider and model for tier. A non-empty preferred
// provider is honoured if it is configured for the tier and fails otherwise;
// it is never silently replaced.
func (r *Router) Route(tier Tier, preferred string) (Route, error) {
	if preferred != "" {
		p, ok := r.profile(preferred)
		if !ok {
			return Route{}, &domain.ConfigurationError{
				Tier: string(tier), Provider: preferred, Message: "provider not configured",
			}
		}
		model, ok := p.Models[tier]
		if !ok {
			return Route{}, &domain.ConfigurationError{
				Tier: string(tier), Provider: preferred, Message: "provider has no model for tier",
			}
		}
		return Route{Provider: p.Name, Model: model, Tier: tier}, nil
	}

	for _, p := range r.candidates(tier) {
		if model, ok := p.Models[tier]; ok {
			return Route{Provider: p.Name, Model: model, Tier: tier}, nil
		}
	}
	return Route{}, &domain.ConfigurationError{Tier: string(tier), Message: "no provider configured"}
}

// candidates orders the profiles to try for tier.
func (r *Router) candidates(tier Tier) []Profile {
	switch tier {
	case TierResearch:
		var live, rest []Profile
		for _, p := range r.profiles {
			if p.LiveSearch {
				live = append(live, p)
			} else {
				rest = append(rest, p)
			}
		}
		return append(live, rest...)
	case TierComplex:
		ordered := make([]Profile, 0, len(r.profiles))
		seen := make(map[string]bool)
		for _, name := range r.complexPreference {
			if p, ok := r.profile(name); ok && !seen[name] {
				ordered = append(ordered, p)
				seen[name] = true
			}
		}
		for _, p := range r.profiles {
			if !seen[p.Name] {
				ordered = append(ordered, p)
			}
		}
		return ordered
	default:
		return r.profiles
	}
}

func (r *Router) profile(name string) (Profile, bool) {
	for _, p := range r.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// String describes a route for logs.
func (rt Route) String() string {
	return fmt.Sprintf("%s/%s (%s)", rt.Provider, rt.Model, rt.Tier)
}
