package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ecochain_pickup_transitions_total", Help: "Successful pickup state transitions"},
		[]string{"event"},
	)
	ConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ecochain_pickup_conflicts_total", Help: "Conditional writes that lost a race"},
		[]string{"operation"},
	)
	RewardsIssued = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ecochain_rewards_issued_total", Help: "Reward increments applied"},
	)
	RewardFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ecochain_reward_failures_total", Help: "Reward increments that failed and were not retried"},
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ecochain_store_errors_total", Help: "Document store failures"},
		[]string{"operation"},
	)
	EventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ecochain_event_publish_failures_total", Help: "Lifecycle events that could not be published"},
	)
	DroppedRequestLogs = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ecochain_request_logs_dropped_total", Help: "Request log entries dropped on a full buffer"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ecochain_http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ecochain_http_request_duration_seconds", Help: "HTTP request latency", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Transitions,
			ConflictsTotal,
			RewardsIssued,
			RewardFailures,
			StoreErrors,
			EventPublishFailures,
			DroppedRequestLogs,
			HTTPRequests,
			HTTPDuration,
		)
	})
}
