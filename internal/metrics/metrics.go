// Package metrics exposes wikitool's Prometheus instrumentation:
// counters for API calls and sync outcomes, a histogram for
// rate-limiter wait time. Grounded on the qrank webserver's direct use
// of prometheus.Register and prometheus.NewGaugeFunc.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// APIRequests counts MediaWiki API calls by endpoint action and result.
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wikitool",
			Name:      "api_requests_total",
			Help:      "MediaWiki API requests by action and result.",
		},
		[]string{"action", "result"},
	)

	// APIRetries counts retried requests by action.
	APIRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wikitool",
			Name:      "api_retries_total",
			Help:      "MediaWiki API requests retried after a transient failure.",
		},
		[]string{"action"},
	)

	// RateLimiterWaitSeconds observes time spent blocked on the rate limiter.
	RateLimiterWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wikitool",
			Name:      "rate_limiter_wait_seconds",
			Help:      "Time spent waiting for the rate limiter before an API call.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SyncOperations is the pull/push outcome counter, labeled by
	// operation and classification. MustRegister registers it; nothing
	// in this module increments it.
	SyncOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wikitool",
			Name:      "sync_operations_total",
			Help:      "Sync operations by type (pull/push) and classification (synced/conflict/error).",
		},
		[]string{"operation", "classification"},
	)
)

// MustRegister registers wikitool's collectors with reg. Call once at
// startup; registering twice (e.g. in tests) panics, matching
// prometheus.MustRegister's own contract.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(APIRequests, APIRetries, RateLimiterWaitSeconds, SyncOperations)
}
