package tterm_test

import (
	"sync"
	"testing"

	"github.com/gordian-engine/topoview/internal/ttest"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/trender/tterm"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/require"
)

type fakeArea struct {
	mu      sync.Mutex
	updates []string
	stopped bool
}

func (a *fakeArea) Update(text ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates = append(a.updates, pterm.RemoveColorFromString(text[0].(string)))
}

func (a *fakeArea) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	return nil
}

func (a *fakeArea) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updates[len(a.updates)-1]
}

func TestRenderer_drawsStatusAndNodes(t *testing.T) {
	t.Parallel()

	area := new(fakeArea)
	r := tterm.New(ttest.NewLogger(t), area)

	tbl := tgraph.EmptyTable().
		WithReport("me", tgraph.NewConnSet("peer-1")).
		WithReport("peer-1", tgraph.NewConnSet("me", "ghost"))
	r.Render(tgraph.Transform(tbl), tgraph.StatusOf(tbl, "me"))

	out := area.last()
	require.Contains(t, out, "Address: me")
	require.Contains(t, out, "Connections: 1")
	require.Contains(t, out, "Components: 1")
	require.Contains(t, out, "2 nodes, 2 edges, 0 particles")
	require.Contains(t, out, "peer-1")
	// Dangling targets never reach the renderer.
	require.NotContains(t, out, "ghost")
}

func TestRenderer_particleCounters(t *testing.T) {
	t.Parallel()

	area := new(fakeArea)
	r := tterm.New(ttest.NewLogger(t), area)

	tbl := tgraph.EmptyTable().
		WithReport("a", tgraph.NewConnSet("b")).
		WithReport("b", tgraph.NewConnSet("a"))
	r.Render(tgraph.Transform(tbl), tgraph.StatusOf(tbl, "a"))

	r.EmitParticle(tgraph.Edge{Source: "a", Target: "b"})
	r.EmitParticle(tgraph.Edge{Source: "a", Target: "b"})
	require.Contains(t, area.last(), "2 nodes, 2 edges, 2 particles")

	require.NoError(t, r.Stop())
	require.True(t, area.stopped)
}

func TestSprint_countsPerSource(t *testing.T) {
	t.Parallel()

	tbl := tgraph.EmptyTable().
		WithReport("a", tgraph.NewConnSet("b")).
		WithReport("b", nil)
	out, err := tterm.Sprint(
		tgraph.Transform(tbl), tgraph.StatusOf(tbl, "b"),
		map[tgraph.Address]int{"a": 7}, 7,
	)
	require.NoError(t, err)
	out = pterm.RemoveColorFromString(out)

	require.Contains(t, out, "Node")
	require.Contains(t, out, "Particles")
	require.Contains(t, out, "7")
}
