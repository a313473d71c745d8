package testutil

import (
	"context"
	"sync"
)

// SentEmail is one recorded gateway send.
type SentEmail struct {
	To      string
	Subject string
	Body    string
	OK      bool
}

// RecordingGateway records every send. Addresses listed in Reject report
// failure.
type RecordingGateway struct {
	mu     sync.Mutex
	Reject map[string]bool
	sent   []SentEmail
}

// NewRecordingGateway creates a gateway that rejects the given addresses.
func NewRecordingGateway(reject ...string) *RecordingGateway {
	g := &RecordingGateway{Reject: make(map[string]bool)}
	for _, addr := range reject {
		g.Reject[addr] = true
	}
	return g
}

// Send implements the email gateway contract.
func (g *RecordingGateway) Send(_ context.Context, to, subject, body string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ok := !g.Reject[to]
	g.sent = append(g.sent, SentEmail{To: to, Subject: subject, Body: body, OK: ok})
	return ok
}

// Sent returns every attempted send in order.
func (g *RecordingGateway) Sent() []SentEmail {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]SentEmail(nil), g.sent...)
}
