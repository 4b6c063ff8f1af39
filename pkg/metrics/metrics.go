package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docworker", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docworker", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// InvocationsTotal counts invocations by operation and outcome (success|error).
	InvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docworker", Name: "invocations_total", Help: "Number of pipeline invocations by operation and outcome."},
		[]string{"operation", "outcome"},
	)

	// StageDuration records how long each pipeline stage took.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "docworker", Name: "stage_duration_seconds", Help: "Duration of a pipeline stage.", Buckets: prometheus.DefBuckets},
		[]string{"stage"},
	)

	// RedactionsApplied counts redactions successfully applied and rasterized.
	RedactionsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docworker", Name: "redactions_applied_total", Help: "Number of redactions applied and rasterized."},
	)

	// PagesDeleted counts pages removed across all invocations.
	PagesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docworker", Name: "pages_deleted_total", Help: "Number of pages deleted across all invocations."},
	)

	// DocumentsSplit counts derived documents produced by the split stage.
	DocumentsSplit = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docworker", Name: "documents_split_total", Help: "Number of derived documents produced by splitting."},
	)

	// DeadlineAborts counts invocations aborted for exceeding their wall-clock budget.
	DeadlineAborts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docworker", Name: "deadline_aborts_total", Help: "Number of invocations aborted for exceeding the deadline."},
	)
)

// RegisterCollectors registers every package-level collector with reg. Called
// once from main before the metrics endpoint is exposed.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(InvocationsTotal)
	reg.MustRegister(StageDuration)
	reg.MustRegister(RedactionsApplied)
	reg.MustRegister(PagesDeleted)
	reg.MustRegister(DocumentsSplit)
	reg.MustRegister(DeadlineAborts)
}
