package scheduler

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordsRanSkippedAndAborted(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.incRan("s1", "a")
	m.incRan("s1", "a")
	m.incSkipped("s1", "b")
	m.incAborted("s1")
	m.observeNodeLatency("s1", "a", "success", 10*time.Millisecond)
	m.SetActiveNodes(3)

	if got := testutil.ToFloat64(m.ran.WithLabelValues("s1", "a")); got != 2 {
		t.Errorf("ran counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.skipped.WithLabelValues("s1", "b")); got != 1 {
		t.Errorf("skipped counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.aborted.WithLabelValues("s1")); got != 1 {
		t.Errorf("aborted counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.activeNodes); got != 3 {
		t.Errorf("activeNodes gauge = %v, want 3", got)
	}
	if count := testutil.CollectAndCount(m.nodeLatency); count != 1 {
		t.Errorf("nodeLatency observation count = %d, want 1", count)
	}
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.incRan("s1", "a")
	m.incSkipped("s1", "a")
	m.incAborted("s1")
	m.observeNodeLatency("s1", "a", "success", time.Millisecond)
	m.SetActiveNodes(1)
}

func TestNewMetricsWithExplicitRegistryIsEnabled(t *testing.T) {
	// A second NewMetrics call against the same (default) registerer with
	// identical metric names would panic on duplicate registration; passing
	// an explicit fresh registry here, as the other tests do, is what keeps
	// this package's tests independent of each other and of
	// prometheus.DefaultRegisterer's global state.
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	if m == nil || !m.enabled {
		t.Fatal("expected NewMetrics to return an enabled Metrics")
	}
}
