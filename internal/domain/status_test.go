package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusPosted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	assert.False(t, StatusNeedsReview.IsTerminal())
}

func TestStatus_IsValid(t *testing.T) {
	assert.True(t, StatusExtracted.IsValid())
	assert.False(t, Status("PAID").IsValid())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusReceived, StatusExtracted, true},
		{StatusExtracted, StatusApproved, true},
		{StatusNeedsReview, StatusApproved, true},
		{StatusApproved, StatusNeedsReview, true},
		{StatusApproved, StatusPosted, true},
		{StatusNeedsReview, StatusFailed, true},
		{StatusExtracted, StatusPosted, false},
		{StatusPosted, StatusApproved, false},
		{StatusFailed, StatusNeedsReview, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-14")
	assert.NoError(t, err)
	assert.Equal(t, 14, d.Day())

	d, err = ParseDate("14/03/2025")
	assert.NoError(t, err)
	assert.Equal(t, 3, int(d.Month()))

	_, err = ParseDate("next tuesday")
	assert.Error(t, err)
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	gen := UUIDv7Generator{}
	a := gen.Generate()
	b := gen.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, a[:8], b[:8])
}
