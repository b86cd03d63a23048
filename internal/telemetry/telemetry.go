// Package telemetry exposes Prometheus collectors and the HTTP metrics middleware.
package telemetry

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
	fitmentsExtractedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ymm_fitments_extracted_total",
			Help: "Total number of fitment tuples extracted, labeled by extraction path.",
		},
		[]string{"path"},
	)

	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ymm_extractions_total",
			Help: "Total number of products run through the extractor, labeled by path and strategy.",
		},
		[]string{"path", "strategy"},
	)

	syncOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ymm_sync_outcomes_total",
			Help: "Total number of per-tuple sync outcomes, labeled by action.",
		},
		[]string{"action"},
	)

	syncDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ymm_sync_duration_seconds",
			Help:    "Histogram of batch sync latencies.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ymm_webhook_deliveries_total",
			Help: "Total number of webhook deliveries, labeled by disposition.",
		},
		[]string{"disposition"},
	)

	forwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ymm_forwards_total",
			Help: "Total number of relayed webhook payloads, labeled by result.",
		},
		[]string{"result"},
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
)

// Handler returns the standard Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}
		ObserveHTTPRequest(r.Method, routePattern, rec.statusCode, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveExtraction records one extractor run and the number of tuples it produced.
func ObserveExtraction(path, strategy string, tuples int) {
	if strategy == "" {
		strategy = "none"
	}
	extractionsTotal.WithLabelValues(path, strategy).Inc()
	if tuples > 0 {
		fitmentsExtractedTotal.WithLabelValues(path).Add(float64(tuples))
	}
}

// ObserveSyncOutcome records the action taken for one tuple.
func ObserveSyncOutcome(action string) {
	syncOutcomesTotal.WithLabelValues(action).Inc()
}

// ObserveSyncDuration records how long a batch sync took.
func ObserveSyncDuration(d time.Duration) {
	syncDurationSeconds.Observe(d.Seconds())
}

// ObserveDelivery records what happened to an inbound webhook delivery.
func ObserveDelivery(disposition string) {
	deliveriesTotal.WithLabelValues(disposition).Inc()
}

// ObserveForward records the result of relaying a webhook payload.
func ObserveForward(result string) {
	forwardsTotal.WithLabelValues(result).Inc()
}
