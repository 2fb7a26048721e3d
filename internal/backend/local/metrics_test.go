package local

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsRegistered(t *testing.T) {
	// Histogram vectors only appear once a child exists.
	phaseDuration.WithLabelValues("python", "run").Observe(0.01)
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	expected := []string{
		"runbox_local_executions_total",
		"runbox_local_phase_seconds",
		"runbox_local_active_workspaces",
		"runbox_local_workspace_cleanup_failures_total",
		"runbox_local_kill_failures_total",
	}

	found := make(map[string]bool)
	for _, fam := range families {
		found[fam.GetName()] = true
	}
	for _, name := range expected {
		if !found[name] {
			t.Errorf("metric %q not registered", name)
		}
	}
}

func TestExecutionsTotalPreinitialized(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var fam *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "runbox_local_executions_total" {
			fam = f
			break
		}
	}
	if fam == nil {
		t.Fatal("executions_total metric family not found")
	}

	seen := make(map[string]bool)
	for _, m := range fam.GetMetric() {
		labels := make(map[string]string)
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		seen[labels["language"]+"/"+labels["outcome"]] = true
	}
	for _, key := range []string{"python/ok", "cpp/compile_error", "java/timeout", "go/missing_toolchain"} {
		if !seen[key] {
			t.Errorf("label combination %q not pre-initialized", key)
		}
	}
}
