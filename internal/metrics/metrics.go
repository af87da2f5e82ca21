// Package metrics holds the prometheus collectors for the data layer. HTTP
// server metrics live in the middleware package.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DownstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_bff_downstream_requests_total",
			Help: "Requests sent to the events backend by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	DownstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_bff_downstream_request_duration_seconds",
			Help:    "Events backend request latency",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_bff_cache_lookups_total",
			Help: "Response cache lookups by backend and result (hit, miss, error)",
		},
		[]string{"backend", "result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_bff_cache_invalidations_total",
			Help: "Wholesale response cache invalidations",
		},
		[]string{"backend"},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_bff_mutations_total",
			Help: "Event mutations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	SupersededResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_bff_superseded_responses_total",
			Help: "Fetch responses discarded because a newer request for the same key was dispatched",
		},
	)

	RefreshCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_bff_refresh_cycles_total",
			Help: "Background refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	ExpiringPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "admin_bff_expiring_pending_events",
			Help: "Pending events close to their start time, by expiry tier",
		},
		[]string{"tier"},
	)
)

// ObserveDownstream records one backend call. A transport error is counted
// with outcome "error", otherwise with the status code.
func ObserveDownstream(method string, status int, err error, d time.Duration) {
	outcome := "error"
	if err == nil {
		outcome = strconv.Itoa(status)
	}
	DownstreamRequests.WithLabelValues(method, outcome).Inc()
	DownstreamDuration.WithLabelValues(method).Observe(d.Seconds())
}

func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
