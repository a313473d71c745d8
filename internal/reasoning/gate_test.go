package reasoning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestRetryGate_CountsDown(t *testing.T) {
	clock := &stepClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	g := NewRetryGate(5*time.Second, clock)

	assert.Zero(t, g.Remaining("inv-1"))

	g.Arm("inv-1")
	assert.Equal(t, 5*time.Second, g.Remaining("inv-1"))
	assert.Zero(t, g.Remaining("inv-2"))

	clock.now = clock.now.Add(3 * time.Second)
	assert.Equal(t, 2*time.Second, g.Remaining("inv-1"))

	clock.now = clock.now.Add(2 * time.Second)
	assert.Zero(t, g.Remaining("inv-1"))
	_, armed := g.NextEligible("inv-1")
	assert.False(t, armed)
}

func TestRetryGate_Clear(t *testing.T) {
	g := NewRetryGate(time.Minute, nil)
	g.Arm("inv-1")
	g.Clear("inv-1")
	assert.Zero(t, g.Remaining("inv-1"))
}
