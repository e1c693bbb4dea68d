package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus-compatible counters and gauges for the
// superstep executor: how many nodes ran vs were skipped, how many are
// currently in flight, and how long each node takes. All metrics are
// namespaced "weavegraph".
type Metrics struct {
	activeNodes prometheus.Gauge
	ran         *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	nodeLatency *prometheus.HistogramVec
	aborted     *prometheus.CounterVec

	enabled bool
}

// NewMetrics registers the scheduler's metrics with registry. A nil registry
// falls back to prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		activeNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "weavegraph",
			Name:      "scheduler_active_nodes",
			Help:      "Number of node tasks currently executing within the current superstep",
		}),
		ran: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weavegraph",
			Name:      "scheduler_nodes_ran_total",
			Help:      "Cumulative count of nodes actually executed by the scheduler",
		}, []string{"session_id", "node_id"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weavegraph",
			Name:      "scheduler_nodes_skipped_total",
			Help:      "Cumulative count of frontier nodes skipped because no observed channel advanced",
		}, []string{"session_id", "node_id"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weavegraph",
			Name:      "scheduler_node_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"session_id", "node_id", "status"}),
		aborted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weavegraph",
			Name:      "scheduler_steps_aborted_total",
			Help:      "Supersteps that ended with Aborted=true under PolicyAbort",
		}, []string{"session_id"}),
	}
}

func (m *Metrics) incRan(sessionID, nodeID string) {
	if m == nil || !m.enabled {
		return
	}
	m.ran.WithLabelValues(sessionID, nodeID).Inc()
}

func (m *Metrics) incSkipped(sessionID, nodeID string) {
	if m == nil || !m.enabled {
		return
	}
	m.skipped.WithLabelValues(sessionID, nodeID).Inc()
}

func (m *Metrics) observeNodeLatency(sessionID, nodeID, status string, d time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	m.nodeLatency.WithLabelValues(sessionID, nodeID, status).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) incAborted(sessionID string) {
	if m == nil || !m.enabled {
		return
	}
	m.aborted.WithLabelValues(sessionID).Inc()
}

// SetActiveNodes reports the current in-flight node count.
func (m *Metrics) SetActiveNodes(n int) {
	if m == nil || !m.enabled {
		return
	}
	m.activeNodes.Set(float64(n))
}
