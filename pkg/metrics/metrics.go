package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccessChecks counts access-resolver evaluations and their outcome (allowed|denied|error).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_access_checks_total",
			Help: "Total number of access resolver evaluations",
		},
		[]string{"module", "result"},
	)

	// StockMutations counts inventory writes by operation (set|increase|decrease).
	StockMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_stock_mutations_total",
			Help: "Total number of variant stock mutations",
		},
		[]string{"op"},
	)

	// StockNotifications counts emitted stock alerts by type, including deduplicated skips.
	StockNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_stock_notifications_total",
			Help: "Stock threshold notifications by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kestrel_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
