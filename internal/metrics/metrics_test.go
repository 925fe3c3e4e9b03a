package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveToolRecordsSuccessAndError(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTool("adder", true, 10*time.Millisecond)
	m.ObserveTool("adder", false, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.ToolExecutionCounter.WithLabelValues("adder", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ToolExecutionCounter.WithLabelValues("adder", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestObservePlanAndRecoveryNilSafe(t *testing.T) {
	var m *Metrics
	// Nil receiver must not panic; this is how callers skip metrics when
	// none were configured.
	m.ObservePlan("completed")
	m.ObserveRecovery("recovered")
	m.ObserveEventDropped()
	m.ObserveLLM("anthropic", "plan", nil, time.Millisecond)
}

func TestObservePlanIncrementsOutcomeLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObservePlan("completed")
	m.ObservePlan("completed")
	m.ObservePlan("failed")

	if got := testutil.ToFloat64(m.PlanCounter.WithLabelValues("completed")); got != 2 {
		t.Errorf("completed count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PlanCounter.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed count = %v, want 1", got)
	}
}
