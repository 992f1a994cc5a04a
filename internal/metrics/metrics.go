// Package metrics exposes the bridge's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the bridge collectors around a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	// TurnsTotal counts terminal turn events by status (finished, failed).
	TurnsTotal *prometheus.CounterVec
	// ToolInvocations counts dispatched tool calls by tool and outcome.
	ToolInvocations *prometheus.CounterVec
	// TurnDuration observes wall-clock turn duration in seconds.
	TurnDuration prometheus.Histogram
}

// New creates the collector set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agui",
			Name:      "turns_total",
			Help:      "Turns completed, by terminal status.",
		}, []string{"status"}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agui",
			Name:      "tool_invocations_total",
			Help:      "Tool invocations dispatched, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agui",
			Name:      "turn_duration_seconds",
			Help:      "Wall-clock duration of turns.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.TurnsTotal,
		m.ToolInvocations,
		m.TurnDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackActiveSessions registers a gauge sourced from fn, typically the
// session store's active count.
func (m *Metrics) TrackActiveSessions(fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "agui",
		Name:      "active_sessions",
		Help:      "Sessions currently resident in the store.",
	}, fn))
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
