// Package metrics provides Prometheus HTTP metrics middleware and forum counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

var (
	PostsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schan_posts_created_total",
			Help: "Posts created, opening posts included",
		},
		[]string{"board"},
	)

	ThreadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schan_threads_created_total",
			Help: "Threads created",
		},
		[]string{"board"},
	)

	ThreadsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schan_threads_evicted_total",
			Help: "Threads dropped by the per-board thread cap",
		},
		[]string{"board"},
	)

	PostsTrimmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schan_posts_trimmed_total",
			Help: "Posts dropped by the per-thread post cap",
		},
		[]string{"board"},
	)

	CaptchaFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schan_captcha_failures_total",
			Help: "Rejected captcha submissions",
		},
		[]string{"reason"},
	)

	MediaFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schan_media_compression_fallbacks_total",
			Help: "Uploads stored uncompressed because recompression failed",
		},
	)

	OrphanedMediaDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schan_orphaned_media_deleted_total",
			Help: "Uploaded files removed because no post references them",
		},
	)

	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schan_moderation_actions_total",
			Help: "Moderation actions performed",
		},
		[]string{"action", "role"},
	)
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records Prometheus metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := newResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		// Use chi's route pattern if available to avoid high cardinality
		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
