package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagboard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tagboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// BulkUpdateTransitions counts committed status transitions.
	BulkUpdateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagboard_bulk_update_transitions_total",
		Help: "Total bulk update request status transitions",
	}, []string{"from", "to"})

	// BulkUpdateApprovalFailures counts approvals that failed and were compensated.
	BulkUpdateApprovalFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagboard_bulk_update_approval_failures_total",
		Help: "Total failed bulk update request approvals by error kind",
	}, []string{"kind"})

	// BulkUpdateApplyDuration records how long applying a script takes.
	BulkUpdateApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tagboard_bulk_update_apply_duration_seconds",
		Help:    "Time spent applying bulk update scripts",
		Buckets: prometheus.DefBuckets,
	})

	// RateLimitRejections counts requests turned away by a named limit.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagboard_rate_limit_rejections_total",
		Help: "Total requests rejected by rate limits",
	}, []string{"limit"})

	// DirectivesApplied counts applied script directives by kind.
	DirectivesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tagboard_directives_applied_total",
		Help: "Total script directives applied by kind",
	}, []string{"kind"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		ObserveQuery(operation, table, start)
	}
}

// RecordTransition increments the transition counter.
func RecordTransition(from, to string) {
	BulkUpdateTransitions.WithLabelValues(from, to).Inc()
}

// RecordApprovalFailure increments the approval failure counter.
func RecordApprovalFailure(kind string) {
	BulkUpdateApprovalFailures.WithLabelValues(kind).Inc()
}

// TrackApply returns a function that records apply duration when called.
func TrackApply() func() {
	start := time.Now()
	return func() {
		BulkUpdateApplyDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordDirective increments the applied directive counter.
func RecordDirective(kind string) {
	DirectivesApplied.WithLabelValues(kind).Inc()
}
