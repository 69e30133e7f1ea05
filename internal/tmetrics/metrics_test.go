package tmetrics_test

import (
	"testing"

	"github.com/gordian-engine/topoview/internal/tmetrics"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveTable(t *testing.T) {
	t.Parallel()

	m := tmetrics.New(prometheus.NewRegistry())

	tbl := tgraph.EmptyTable().
		WithReport("a", tgraph.NewConnSet("b", "ghost")).
		WithReport("b", tgraph.NewConnSet("a")).
		WithReport("c", nil)
	m.ObserveTable(tbl)

	require.Equal(t, 3.0, testutil.ToFloat64(m.Nodes))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Edges))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Dangling))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Components))
}

func TestNew_registersOnce(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	tmetrics.New(reg)

	// A second set on the same registry collides.
	require.Panics(t, func() {
		tmetrics.New(reg)
	})

	// Independent Nop instances do not.
	require.NotPanics(t, func() {
		tmetrics.Nop()
		tmetrics.Nop()
	})
}
