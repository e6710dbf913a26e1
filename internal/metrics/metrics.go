// Package metrics provides Prometheus instrumentation for the risk engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HealthComputationsTotal counts account health computations, partitioned
	// by whether they came from a legacy recomputation or a cache refresh.
	HealthComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_health_computations_total",
		Help: "Total number of account health computations",
	}, []string{"source"})

	// SkippedBalancesTotal counts balances left out of a computation because
	// their bank or price was missing.
	SkippedBalancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_skipped_balances_total",
		Help: "Balances skipped for missing market data",
	}, []string{"reason"})

	// RefreshLatency tracks health cache refresh latency.
	RefreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "risk_refresh_latency_seconds",
		Help:    "Health cache refresh latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// TrackedAccounts tracks the number of accounts with a health cache.
	TrackedAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_tracked_accounts",
		Help: "Number of accounts holding a health cache",
	})

	// CapacityRejections counts health-check selections that did not fit.
	CapacityRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "risk_health_check_capacity_rejections_total",
		Help: "Health-check selections rejected for exceeding capacity",
	})

	// InvalidBankRejections counts bank snapshots rejected at load time.
	InvalidBankRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "risk_invalid_bank_rejections_total",
		Help: "Bank snapshots rejected by validation",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "risk_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "risk_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "risk_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
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
