package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatched = "unmatched"

// Route classes used as a low-cardinality metric label.
const (
	classExecute = "execute"
	classStream  = "stream"
	classQuery   = "query"
	classOps     = "ops"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_http_requests_total",
			Help: "HTTP requests by route class, route pattern, method and status class.",
		},
		[]string{"class", "route", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "runbox_http_request_duration_seconds",
			Help: "Latency of non-streaming HTTP requests by route class.",
			// Synchronous executions are bounded by compile + run timeouts.
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"class", "route"},
	)

	executionsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runbox_http_executions_in_flight",
			Help: "Execution requests currently being handled.",
		},
	)

	logStreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runbox_http_log_streams_active",
			Help: "Open server-sent event log streams.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, executionsInFlight, logStreamsActive)
}

// metricsMiddleware counts every request under its chi route pattern.
// Log streams stay open for the life of an execution and are kept out of the
// latency histogram.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := routePattern(r)
		class := routeClass(r.Method, route)
		httpRequestsTotal.WithLabelValues(class, route, r.Method, statusClass(status)).Inc()
		if class != classStream {
			httpRequestDuration.WithLabelValues(class, route).Observe(time.Since(start).Seconds())
		}
	})
}

// trackGauge keeps g raised while the wrapped handler runs.
func trackGauge(g prometheus.Gauge) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.Inc()
			defer g.Dec()
			next.ServeHTTP(w, r)
		})
	}
}

// routePattern extracts the matched chi route pattern, falling back to "unmatched".
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

func routeClass(method, route string) string {
	switch {
	case route == unmatched:
		return unmatched
	case method == http.MethodPost && (route == "/v1/execute" || route == "/v1/executions/async"):
		return classExecute
	case route == "/v1/executions/{id}/logs":
		return classStream
	case route == "/healthz" || route == "/metrics":
		return classOps
	default:
		return classQuery
	}
}

// statusClass collapses a status code to "2xx", "4xx" and so on.
func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// metricsHandler returns the Prometheus metrics handler.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
