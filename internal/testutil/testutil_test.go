package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerguard/internal/domain"
	"github.com/roach88/ledgerguard/internal/reasoning"
)

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	c.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), c.Now())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("n")
	assert.Equal(t, "n-0001", g.Generate())
	assert.Equal(t, "n-0002", g.Generate())
}

func TestScriptedProvider_MatchesBySubstring(t *testing.T) {
	p := NewScriptedProvider().
		When("vendor", Reply{Text: "v"}).
		Reply("default")

	got, err := p.Invoke(context.Background(), reasoning.Request{Prompt: "write to the vendor"})
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	got, err = p.Invoke(context.Background(), reasoning.Request{Prompt: "write to the vendor"})
	require.NoError(t, err)
	assert.Equal(t, "default", got)

	_, err = p.Invoke(context.Background(), reasoning.Request{Prompt: "anything"})
	assert.True(t, domain.IsTransportError(err))
	assert.Equal(t, 3, p.CallCount())
}

func TestScriptedProvider_Fail(t *testing.T) {
	p := NewScriptedProvider().Fail(errors.New("503"))
	_, err := p.Invoke(context.Background(), reasoning.Request{})
	assert.True(t, domain.IsTransportError(err))
}

func TestRecordingGateway_Reject(t *testing.T) {
	g := NewRecordingGateway("bad@x.io")
	assert.False(t, g.Send(context.Background(), "bad@x.io", "s", "b"))
	assert.True(t, g.Send(context.Background(), "ok@x.io", "s", "b"))
	assert.Len(t, g.Sent(), 2)
}
