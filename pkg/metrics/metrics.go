package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Database query latency in seconds.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// Statements slower than the configured threshold.
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of slow database queries",
		},
		[]string{"command"},
	)

	// Authorization denials by action.
	PermissionDeniedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_permission_denied_count",
			Help: "Total number of authorization denials",
		},
		[]string{"action"},
	)

	// Requests rejected before business logic (bad/missing/expired token).
	AuthFailureCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failure_count",
			Help: "Total number of failed authentications",
		},
		[]string{"reason"}, // missing_token, invalid_token, unknown_user
	)

	// Domain events published to the broker.
	EventPublishedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_published_count",
			Help: "Total number of domain events published",
		},
		[]string{"routing_key", "status"}, // status: success, failed
	)
)

// RecordHTTPRequestDuration records one HTTP request observation.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records one database query observation.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a statement that crossed the slow threshold.
func IncrementSlowQuery(command string) {
	SlowQueryCount.WithLabelValues(command).Inc()
}

// IncrementPermissionDenied counts a policy denial for an action.
func IncrementPermissionDenied(action string) {
	PermissionDeniedCount.WithLabelValues(action).Inc()
}

// IncrementAuthFailure counts a rejected authentication attempt.
func IncrementAuthFailure(reason string) {
	AuthFailureCount.WithLabelValues(reason).Inc()
}

// IncrementEventPublished counts a published (or failed) domain event.
func IncrementEventPublished(routingKey, status string) {
	EventPublishedCount.WithLabelValues(routingKey, status).Inc()
}
