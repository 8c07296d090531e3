// Package metrics exposes Prometheus collectors for the news service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ingestItemsTotal           *prometheus.CounterVec
	runsTotal                  *prometheus.CounterVec
	retentionDeletedTotal      prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeRuns                 *prometheus.GaugeVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		ingestItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newstide_ingest_items_total",
				Help: "Total items processed by ingestion, labeled by source and outcome (new/duplicate/error).",
			},
			[]string{"source", "outcome"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newstide_runs_total",
				Help: "Total pipeline runs recorded in the ledger, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		retentionDeletedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newstide_retention_removed_total",
				Help: "Total articles removed or archived by retention sweeps.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeRuns = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "newstide_active_runs",
				Help: "Runs currently in flight, labeled by kind.",
			},
			[]string{"kind"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveItem increments the per-source item counter.
func ObserveItem(source, outcome string) {
	ingestItemsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveRun increments the run counter for the given kind and status.
func ObserveRun(kind, status string) {
	runsTotal.WithLabelValues(kind, status).Inc()
}

// AddRemoved adds to the retention removal counter.
func AddRemoved(n int64) {
	if n > 0 {
		retentionDeletedTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RunStarted increments the in-flight gauge for a run kind.
func RunStarted(kind string) {
	activeRuns.WithLabelValues(kind).Inc()
}

// RunFinished decrements the in-flight gauge for a run kind.
func RunFinished(kind string) {
	activeRuns.WithLabelValues(kind).Dec()
}
