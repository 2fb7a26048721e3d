package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/runbox/internal/model"
)

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_engine_dispatch_total",
			Help: "Total number of dispatched executions by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runbox_engine_fallbacks_total",
			Help: "Total number of remote fallbacks after a missing local toolchain.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal)
	prometheus.MustRegister(fallbacksTotal)

	for _, p := range []string{model.ProviderNone, model.ProviderLocal, model.ProviderRemote} {
		dispatchTotal.WithLabelValues(p, "ok")
	}
	fallbacksTotal.WithLabelValues("ok")
	fallbacksTotal.WithLabelValues("failed")
}
