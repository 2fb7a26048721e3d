package local

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/runbox/internal/language"
)

// Metric label values for execution outcome.
var outcomeLabels = []string{"ok", "compile_error", "timeout", "missing_toolchain", "internal"}

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_local_executions_total",
			Help: "Total number of executions handled by the local backend.",
		},
		[]string{"language", "outcome"},
	)

	phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runbox_local_phase_seconds",
			Help:    "Duration of local compile and run phases, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"language", "phase"},
	)

	activeWorkspaces = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "runbox_local_active_workspaces",
			Help: "Number of execution workspaces currently on disk.",
		},
	)

	cleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runbox_local_workspace_cleanup_failures_total",
			Help: "Total number of workspaces that could not be removed.",
		},
	)

	killFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "runbox_local_kill_failures_total",
			Help: "Total number of failed attempts to kill a timed-out process.",
		},
	)
)

func init() {
	prometheus.MustRegister(executionsTotal)
	prometheus.MustRegister(phaseDuration)
	prometheus.MustRegister(activeWorkspaces)
	prometheus.MustRegister(cleanupFailures)
	prometheus.MustRegister(killFailures)

	// Pre-initialize counter label combinations so they appear in /metrics
	// with value 0 from startup.
	for _, p := range language.DefaultProfiles() {
		if p.MarkupOnly {
			continue
		}
		for _, o := range outcomeLabels {
			executionsTotal.WithLabelValues(string(p.ID), o)
		}
	}
}
