// Package metrics exposes Prometheus instruments for each pipeline stage.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics for monitoring the audit pipeline
var (
	AuditRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerguard_audit_runs_total",
			Help: "Completed audit runs by resulting status",
		},
		[]string{"status"},
	)

	AuditRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerguard_audit_rejected_total",
			Help: "Audit requests refused before running, by reason",
		},
		[]string{"reason"},
	)

	AuditDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledgerguard_audit_duration_seconds",
			Help:    "Duration of a full audit run",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReasoningCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerguard_reasoning_calls_total",
			Help: "Reasoning provider calls by provider, tier and result",
		},
		[]string{"provider", "tier", "result"},
	)

	ReasoningCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerguard_reasoning_call_duration_seconds",
			Help:    "Duration of reasoning provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "tier"},
	)

	ReasoningDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerguard_reasoning_degraded_total",
			Help: "Deep audits that degraded to the synthetic error result",
		},
	)

	EscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerguard_escalations_total",
			Help: "Escalation reviews by determination (or error)",
		},
		[]string{"determination"},
	)

	DraftsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerguard_rejection_drafts_total",
			Help: "Rejection draft requests by source (cache or generated)",
		},
		[]string{"source"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerguard_notifications_total",
			Help: "Notification deliveries by trigger, channel and result",
		},
		[]string{"trigger", "channel", "result"},
	)
)

var registerOnce sync.Once

// Register registers all metrics with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(AuditRunsTotal)
		prometheus.MustRegister(AuditRejectedTotal)
		prometheus.MustRegister(AuditDuration)
		prometheus.MustRegister(ReasoningCallsTotal)
		prometheus.MustRegister(ReasoningCallDuration)
		prometheus.MustRegister(ReasoningDegradedTotal)
		prometheus.MustRegister(EscalationsTotal)
		prometheus.MustRegister(DraftsTotal)
		prometheus.MustRegister(NotificationsTotal)
	})
}

// Result labels a success or failure.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
