// Package metrics provides Prometheus instrumentation for the indexer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal counts handled events by kind and outcome.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aco_indexer_events_total",
		Help: "Total number of events handled",
	}, []string{"kind", "outcome"})

	// HandlerLatency tracks handler execution time by event kind.
	HandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aco_indexer_handler_latency_seconds",
		Help:    "Event handler latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// RevertedReads counts contract reads that reverted, by method.
	RevertedReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aco_indexer_reverted_reads_total",
		Help: "Contract reads that reverted",
	}, []string{"method"})

	// SwapsRecorded counts newly created swap records by type.
	SwapsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aco_indexer_swaps_recorded_total",
		Help: "Swap records created",
	}, []string{"type"})

	// ValuationPasses counts pool valuation passes by outcome.
	ValuationPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aco_indexer_valuation_passes_total",
		Help: "Pool valuation passes",
	}, []string{"outcome"})

	// ActiveOptions tracks the size of the active option set.
	ActiveOptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aco_indexer_active_options",
		Help: "Number of options in the active option set",
	})

	// ContractsRegistered counts RegisterContract commands by template.
	ContractsRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aco_indexer_contracts_registered_total",
		Help: "Contracts registered for event delivery",
	}, []string{"template"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aco_indexer_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aco_indexer_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aco_indexer_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
// pattern maps a request to its route pattern to bound label cardinality.
func Middleware(pattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			duration := time.Since(start).Seconds()

			path := pattern(r)
			HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
			HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
