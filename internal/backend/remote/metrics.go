package remote

import "github.com/prometheus/client_golang/prometheus"

var (
	catalogFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_remote_catalog_fetches_total",
			Help: "Total number of runtime catalog fetches, by result.",
		},
		[]string{"result"},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_remote_executions_total",
			Help: "Total number of executions delegated to the remote provider.",
		},
		[]string{"outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runbox_remote_request_seconds",
			Help:    "Duration of provider HTTP calls, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(catalogFetches)
	prometheus.MustRegister(executionsTotal)
	prometheus.MustRegister(requestDuration)

	catalogFetches.WithLabelValues("ok")
	catalogFetches.WithLabelValues("error")
	for _, o := range []string{"ok", "compile_error", "remote_unavailable", "remote_execution_failed", "unsupported_remote_language"} {
		executionsTotal.WithLabelValues(o)
	}
}
