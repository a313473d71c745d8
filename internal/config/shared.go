package config

import (
	"sync"

	"github.com/roach88/ledgerguard/internal/domain"
)

// SaveFunc persists a settings snapshot.
type SaveFunc func(*Settings) error

// Shared is the process-wide, read-mostly settings object. Readers get
// snapshots; writers patch under the lock and persist through save.
type Shared struct {
	mu   sync.RWMutex
	s    *Settings
	save SaveFunc
}

// NewShared wraps s. A nil save keeps changes in memory only.
func NewShared(s *Settings, save SaveFunc) *Shared {
	return &Shared{s: s, save: save}
}

// Snapshot returns a deep copy of the current settings.
func (sh *Shared) Snapshot() *Settings {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.s.Clone()
}

// Rule returns the notification rule for trigger.
func (sh *Shared) Rule(trigger domain.Trigger) (domain.NotificationRule, bool) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.s.Rule(trigger)
}

// Rules returns every notification rule.
func (sh *Shared) Rules() []domain.NotificationRule {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return append([]domain.NotificationRule(nil), sh.s.NotificationRules...)
}

// UpsertRule patches the rule for trigger and persists the settings. On a
// save failure the in-memory change is rolled back.
func (sh *Shared) UpsertRule(trigger domain.Trigger, patch func(*domain.NotificationRule)) (domain.NotificationRule, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	prev := sh.s.Clone()
	rule := sh.s.UpsertRule(trigger, patch)
	if sh.save != nil {
		if err := sh.save(sh.s); err != nil {
			sh.s = prev
			return domain.NotificationRule{}, err
		}
	}
	return rule, nil
}
