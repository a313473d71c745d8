package reasoning

import (
	"sync"
	"time"

	"github.com/roach88/ledgerguard/internal/domain"
)

// RetryGate holds, per invoice, the earliest time a degraded deep audit may
// be retried. It is a pure time gate: nothing is scheduled or cancelled.
type RetryGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	clock    domain.Clock
	next     map[string]time.Time
}

// NewRetryGate creates a gate with the given cooldown.
func NewRetryGate(cooldown time.Duration, clock domain.Clock) *RetryGate {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &RetryGate{cooldown: cooldown, clock: clock, next: make(map[string]time.Time)}
}

// Arm starts the cooldown for invoiceID and returns the next eligible time.
func (g *RetryGate) Arm(invoiceID string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	at := g.clock.Now().Add(g.cooldown)
	g.next[invoiceID] = at
	return at
}

// Remaining returns how long until invoiceID may be retried; zero when
// eligible now.
func (g *RetryGate) Remaining(invoiceID string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	at, ok := g.next[invoiceID]
	if !ok {
		return 0
	}
	left := at.Sub(g.clock.Now())
	if left <= 0 {
		delete(g.next, invoiceID)
		return 0
	}
	return left
}

// NextEligible returns the armed time for invoiceID, if any.
func (g *RetryGate) NextEligible(invoiceID string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	at, ok := g.next[invoiceID]
	return at, ok
}

// Clear disarms the gate for invoiceID.
func (g *RetryGate) Clear(invoiceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.next, invoiceID)
}
