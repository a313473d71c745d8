package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/reasoning"
	"github.com/roach88/ledgerguard/internal/router"
)

// Reply is one scripted provider response.
type Reply struct {
	Text string
	Err  error
}

type scriptRule struct {
	match   string
	replies []Reply
}

// ScriptedProvider is a reasoning.Provider that returns canned replies.
//
// Replies are grouped by a substring matched against the request's system
// prompt and prompt; the first rule with a match and a pending reply wins.
// An empty match catches every request. Concurrent callers therefore get
// deterministic replies as long as their prompts differ.
type ScriptedProvider struct {
	mu    sync.Mutex
	rules []*scriptRule
	calls []reasoning.Request
	hold  <-chan struct{}
}

// NewScriptedProvider creates a provider with no replies.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{}
}

// When queues replies for requests containing match.
func (p *ScriptedProvider) When(match string, replies ...Reply) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.rules {
		if r.match == match {
			r.replies = append(r.replies, replies...)
			return p
		}
	}
	p.rules = append(p.rules, &scriptRule{match: match, replies: replies})
	return p
}

// Reply queues a text reply for any request.
func (p *ScriptedProvider) Reply(text string) *ScriptedProvider {
	return p.When("", Reply{Text: text})
}

// Fail queues a transport failure for any request.
func (p *ScriptedProvider) Fail(err error) *ScriptedProvider {
	return p.When("", Reply{Err: &domain.TransportError{Provider: "scripted", Err: err}})
}

// Hold makes every Invoke block until ch is closed or the context ends.
func (p *ScriptedProvider) Hold(ch <-chan struct{}) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hold = ch
	return p
}

// Invoke implements reasoning.Provider.
func (p *ScriptedProvider) Invoke(ctx context.Context, req reasoning.Request) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	hold := p.hold
	p.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return "", &domain.TransportError{Provider: "scripted", Err: ctx.Err()}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	haystack := req.System + "\n" + req.Prompt
	for _, r := range p.rules {
		if len(r.replies) == 0 || !strings.Contains(haystack, r.match) {
			continue
		}
		next := r.replies[0]
		r.replies = r.replies[1:]
		return next.Text, next.Err
	}
	return "", &domain.TransportError{Provider: "scripted", Err: fmt.Errorf("no scripted reply left")}
}

// Calls returns every request received, in arrival order.
func (p *ScriptedProvider) Calls() []reasoning.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]reasoning.Request(nil), p.calls...)
}

// CallCount returns the number of requests received.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// ScriptedProfile serves every tier under the provider name "scripted".
var ScriptedProfile = router.Profile{
	Name: "scripted",
	Models: map[router.Tier]string{
		router.TierFast:     "scripted-fast",
		router.TierStandard: "scripted-standard",
		router.TierComplex:  "scripted-complex",
		router.TierResearch: "scripted-research",
	},
}

// NewScriptedClient wires p behind a router that sends every tier to it.
func NewScriptedClient(p *ScriptedProvider) *reasoning.Client {
	r := router.New([]router.Profile{ScriptedProfile}, nil)
	return reasoning.NewClient(r, map[string]reasoning.Provider{"scripted": p}, nil)
}
