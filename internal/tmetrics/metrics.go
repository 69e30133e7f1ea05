// Package tmetrics holds the prometheus collectors shared by the kernel and broadcaster.
package tmetrics

import (
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "topoview"

// Metrics is the set of collectors for one viewer.
type Metrics struct {
	Nodes      prometheus.Gauge
	Edges      prometheus.Gauge
	Dangling   prometheus.Gauge
	Components prometheus.Gauge

	ReportsApplied  prometheus.Counter
	ReportsSkipped  prometheus.Counter
	PeersRemoved    prometheus.Counter
	ForeignMessages prometheus.Counter
	BadMessages     prometheus.Counter
	Particles       prometheus.Counter

	Broadcasts      *prometheus.CounterVec
	BroadcastErrors prometheus.Counter
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "graph", Name: name, Help: help,
		})
	}
	counter := func(subsystem, name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}

	return &Metrics{
		Nodes:      gauge("nodes", "Peers in the adjacency table."),
		Edges:      gauge("edges", "Renderable edges in the adjacency table."),
		Dangling:   gauge("dangling_edges", "Recorded connections to peers without an entry."),
		Components: gauge("components", "Connected components of the rendered graph."),

		ReportsApplied:  counter("store", "reports_applied_total", "Connection-info reports that replaced an entry."),
		ReportsSkipped:  counter("store", "reports_skipped_total", "Connection-info reports dropped as unchanged."),
		PeersRemoved:    counter("store", "peers_removed_total", "Peers removed after a destroyed connection."),
		ForeignMessages: counter("kernel", "foreign_messages_total", "Messages ignored for another app ID or type."),
		BadMessages:     counter("kernel", "bad_messages_total", "Connection-info messages that failed to decode."),
		Particles:       counter("kernel", "particles_total", "Particles emitted for observed messages."),

		Broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "broadcast", Name: "sent_total",
			Help: "Connection-info broadcasts sent, by trigger.",
		}, []string{"trigger"}),
		BroadcastErrors: counter("broadcast", "errors_total", "Connection-info broadcasts the transport rejected."),
	}
}

// Nop returns metrics registered on a throwaway registry,
// for callers that do not export metrics.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveTable updates the graph gauges from t.
func (m *Metrics) ObserveTable(t *tgraph.Table) {
	s := tgraph.Stats(t)
	m.Nodes.Set(float64(s.Nodes))
	m.Edges.Set(float64(s.Edges))
	m.Dangling.Set(float64(s.DanglingEdges))
	m.Components.Set(float64(s.Components))
}
