package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for run execution and event delivery.
type Metrics struct {
	RunsStarted       prometheus.Counter
	RunsFinished      *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	EventsDelivered   prometheus.Counter
	ActiveSubscribers prometheus.Gauge
	registry          *prometheus.Registry
}

// New creates a metrics set registered on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "kanban_agent_runs_started_total",
			Help: "Number of agent runs that entered the running state.",
		}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_agent_runs_finished_total",
			Help: "Number of agent runs that reached a terminal state.",
		}, []string{"status"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kanban_events_published_total",
			Help: "Number of events published on the bus.",
		}, []string{"type"}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "kanban_events_delivered_total",
			Help: "Number of event deliveries into subscriber inboxes.",
		}),
		ActiveSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kanban_event_subscribers",
			Help: "Currently registered event subscribers.",
		}),
		registry: registry,
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
