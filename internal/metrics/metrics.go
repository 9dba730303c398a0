package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: analyze requests served straight from the facts cache.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nutrilog_cache_hits_total",
			Help: "Total number of analyze requests served from the facts cache.",
		},
	)

	// Counter: upstream estimator completions attempted.
	EstimatorCallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nutrilog_estimator_calls_total",
			Help: "Total number of external estimator calls.",
		},
	)

	// Counter: analyze requests that ended in an estimation failure.
	EstimationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nutrilog_estimation_failures_total",
			Help: "Total number of analyze requests that failed estimation.",
		},
	)

	// Histogram: HTTP request latency in seconds.
	RequestLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nutrilog_request_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"path", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics. sizeFn feeds the
// cache size gauge from the cache's own Stats snapshot.
func Register(sizeFn func() float64) {
	prometheus.MustRegister(
		CacheHitsTotal,
		EstimatorCallsTotal,
		EstimationFailuresTotal,
		RequestLatencySeconds,
	)

	if sizeFn != nil {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "nutrilog_cache_entries",
				Help: "Current number of live entries in the facts cache.",
			},
			sizeFn,
		))
	}
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}
