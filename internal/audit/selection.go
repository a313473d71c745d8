package audit

import (
	"sync"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Selection is the invoice currently open for review, if any. It mirrors
// the detail view of an operator session and must never diverge from the
// stored copy after a run.
type Selection struct {
	mu      sync.RWMutex
	current *domain.Invoice
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Open makes inv the selected invoice.
func (s *Selection) Open(inv *domain.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = inv.Clone()
}

// Close clears the selection.
func (s *Selection) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns a copy of the selected invoice, or nil.
func (s *Selection) Current() *domain.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Sync replaces the selected invoice with inv when their IDs match and
// reports whether it did.
func (s *Selection) Sync(inv *domain.Invoice) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != inv.ID {
		return false
	}
	s.current = inv.Clone()
	return true
}
