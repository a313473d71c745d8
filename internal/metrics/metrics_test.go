package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
	assert.True(t, prometheus.DefaultRegisterer.Unregister(AuditDuration))
	assert.NoError(t, prometheus.DefaultRegisterer.Register(AuditDuration))
}

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(DraftsTotal.WithLabelValues("cache"))
	DraftsTotal.WithLabelValues("cache").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DraftsTotal.WithLabelValues("cache")))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
}
