// Package metrics counts NApp operations and exports them as a Prometheus
// textfile, for node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one invocation.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	lastRun    prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kytos_utils",
				Name:      "napp_operations_total",
				Help:      "NApp operations by kind and outcome.",
			},
			[]string{"op", "outcome"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kytos_utils",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the metrics were last written.",
		}),
	}
	m.registry.MustRegister(m.operations, m.lastRun)
	return m
}

// Observe counts one operation outcome.
func (m *Metrics) Observe(op, outcome string) {
	m.operations.WithLabelValues(op, outcome).Inc()
}

// Registry exposes the collectors, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes every metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	m.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
