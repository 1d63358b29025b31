// Package metrics provides Prometheus collectors for the access layer:
// statement outcomes, pool occupancy, and checkout wait times. Collectors are
// registered with the default registry; exposing them over HTTP is left to
// the embedding process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StatementsTotal counts executed statements by service, verb, and outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polybase_statements_total",
			Help: "Total statements executed, labeled by service, verb, and status",
		},
		[]string{"service", "verb", "status"},
	)

	// PoolConnections tracks pool occupancy by service and connection state.
	PoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polybase_pool_connections",
			Help: "Current pooled connections, labeled by service and state (idle, checked_out)",
		},
		[]string{"service", "state"},
	)

	// PoolAcquireWait observes how long checkouts waited for a connection.
	PoolAcquireWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polybase_pool_acquire_wait_seconds",
			Help:    "Time spent waiting to acquire a pooled connection",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"service"},
	)
)

// RecordStatement records one statement outcome.
func RecordStatement(service, verb string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	StatementsTotal.WithLabelValues(service, verb, status).Inc()
}

// SetPoolOccupancy updates the pool gauges for a service.
func SetPoolOccupancy(service string, idle, checkedOut int) {
	PoolConnections.WithLabelValues(service, "idle").Set(float64(idle))
	PoolConnections.WithLabelValues(service, "checked_out").Set(float64(checkedOut))
}

// ObserveAcquireWait records one checkout wait duration.
func ObserveAcquireWait(service string, wait time.Duration) {
	PoolAcquireWait.WithLabelValues(service).Observe(wait.Seconds())
}
