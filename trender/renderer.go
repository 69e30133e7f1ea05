package trender

import (
	"context"
	"slices"

	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tpubsub"
)

// Renderer draws the topology.
//
// Implementations must not retain the Graph's slices beyond the call
// unless they own them; every call receives a freshly transformed Graph.
type Renderer interface {
	// Render replaces the drawn graph.
	Render(g tgraph.Graph, st tgraph.Status)

	// EmitParticle animates one particle along e.
	EmitParticle(e tgraph.Edge)
}

// Source is the subset of [*topoview.Viewer] that [Follow] consumes.
type Source interface {
	Address() tgraph.Address
	Frames(ctx context.Context) (*tgraph.Table, *tpubsub.Stream[tgraph.Frame], error)
}

// Multi returns a Renderer that forwards every call to each of rs in order.
func Multi(rs ...Renderer) Renderer {
	return multi(rs)
}

type multi []Renderer

func (m multi) Render(g tgraph.Graph, st tgraph.Status) {
	for i, r := range m {
		if i < len(m)-1 {
			// Each renderer gets its own copy of the slices.
			r.Render(cloneGraph(g), st)
			continue
		}
		r.Render(g, st)
	}
}

func (m multi) EmitParticle(e tgraph.Edge) {
	for _, r := range m {
		r.EmitParticle(e)
	}
}

func cloneGraph(g tgraph.Graph) tgraph.Graph {
	return tgraph.Graph{
		Nodes: slices.Clone(g.Nodes),
		Edges: slices.Clone(g.Edges),
	}
}
