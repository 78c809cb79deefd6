package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsight_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsight_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	analyticsDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsight_analytics_duration_seconds",
			Help:    "Analytics computation latency by operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)
	ingestMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsight_ingest_messages_total",
			Help: "Job-log messages consumed, by result.",
		},
		[]string{"result"},
	)
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsight_cache_lookups_total",
			Help: "Report cache lookups, by result.",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpLatency, analyticsDuration, ingestMessages, cacheLookups)
	})
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request count and latency labelled by chi route pattern
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := strconv.Itoa(lrw.statusCode)
		httpRequests.WithLabelValues(r.Method, route, status).Inc()
		httpLatency.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// ObserveAnalytics records how long an analytics operation took
func ObserveAnalytics(operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	analyticsDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

// Ingest results
const (
	IngestAccepted = "accepted"
	IngestRejected = "rejected"
	IngestFailed   = "failed"
)

// IncIngest counts one consumed message
func IncIngest(result string) {
	ingestMessages.WithLabelValues(result).Inc()
}

// IncCache counts a cache hit or miss
func IncCache(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
