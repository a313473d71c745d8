package reasoning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProject_MidQuarter(t *testing.T) {
	// Q1 2025 has 90 days; 2025-02-14 is day 45.
	a := Project(time.Date(2025, 2, 14, 15, 0, 0, 0, time.UTC), 5600, 5491.43)

	assert.Equal(t, "2025-01-01", a.QuarterStart)
	assert.Equal(t, "2025-03-31", a.QuarterEnd)
	assert.Equal(t, "2025-02-14", a.AsOf)
	assert.Equal(t, 45, a.DaysElapsed)
	assert.Equal(t, 90, a.DaysInQuarter)
	assert.InDelta(t, 124.44, a.DailyBurnRate, 0.001)
	assert.InDelta(t, 11200.00, a.ProjectedQuarterSpend, 0.001)
	assert.InDelta(t, 5708.57, a.ProjectedVariance, 0.001)
	assert.Equal(t, "2025-02-14", a.ExhaustionDate)
}

func TestProject_ExhaustionWithinQuarter(t *testing.T) {
	// 10 days into Q2 having spent 1000: 100/day exhausts 3000 on day 30.
	a := Project(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), 1000, 3000)

	assert.Equal(t, "2025-04-01", a.QuarterStart)
	assert.Equal(t, "2025-06-30", a.QuarterEnd)
	assert.Equal(t, 91, a.DaysInQuarter)
	assert.Equal(t, "2025-04-30", a.ExhaustionDate)
}

func TestProject_NoExhaustionThisQuarter(t *testing.T) {
	a := Project(time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC), 310, 5000)

	assert.Equal(t, 31, a.DaysElapsed)
	assert.Empty(t, a.ExhaustionDate)
	assert.Less(t, a.ProjectedVariance, 0.0)
}
