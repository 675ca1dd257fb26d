// Package metrics exposes container activity as Prometheus metrics.
//
// A Collector is both a prometheus.Collector and a container.Observer: pass it
// to container.WithObserver and register it with a prometheus.Registerer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/service"
)

// DefaultNamespace prefixes every metric name unless overridden.
const DefaultNamespace = "conductor"

// Collector is a prometheus.Collector that collects metrics about a service
// container.
type Collector struct {
	transitions   *prometheus.CounterVec
	controllers   *prometheus.GaugeVec
	taskDuration  *prometheus.HistogramVec
	startFailures *prometheus.CounterVec
}

var _ container.Observer = (*Collector)(nil)

// NewCollector returns a new Collector. An empty namespace selects
// DefaultNamespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c := &Collector{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_transitions_total",
				Help:      "The number of controller state transitions.",
			}, []string{"from", "to"},
		),
		controllers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "controllers",
				Help:      "The number of controllers in each state.",
			}, []string{"state"},
		),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "The time taken to run a controller task.",
				Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			}, []string{"kind"},
		),
		startFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "start_failures_total",
				Help:      "The number of failed service starts.",
			}, []string{"service"},
		),
	}
	// Export every state, even when no controller is in it.
	for _, s := range container.States() {
		c.controllers.WithLabelValues(s.String())
	}
	return c
}

// StateChanged is part of the container.Observer interface.
func (c *Collector) StateChanged(_ service.Name, from, to container.State) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
	// Controllers are created in NEW without a transition, and REMOVED
	// controllers are gone.
	if from != container.StateNew {
		c.controllers.WithLabelValues(from.String()).Dec()
	}
	if to != container.StateRemoved {
		c.controllers.WithLabelValues(to.String()).Inc()
	}
}

// TaskCompleted is part of the container.Observer interface.
func (c *Collector) TaskCompleted(kind container.TaskKind, elapsed time.Duration) {
	c.taskDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// StartFailed is part of the container.Observer interface.
func (c *Collector) StartFailed(name service.Name) {
	c.startFailures.WithLabelValues(name.String()).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.transitions.Describe(ch)
	c.controllers.Describe(ch)
	c.taskDuration.Describe(ch)
	c.startFailures.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.transitions.Collect(ch)
	c.controllers.Collect(ch)
	c.taskDuration.Collect(ch)
	c.startFailures.Collect(ch)
}
