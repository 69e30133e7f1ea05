package tgraph

// Node is a renderable graph node.
type Node struct {
	ID Address `json:"id"`
}

// Edge is a directed renderable edge between two nodes.
type Edge struct {
	Source Address `json:"source"`
	Target Address `json:"target"`
}

// Graph is the shape consumed by renderers.
// The JSON field names match what force-graph libraries expect.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"links"`
}

// Transform projects t into a Graph.
//
// Every peer becomes a node, in table order.
// Every recorded connection becomes an edge,
// unless its target has no entry in t;
// renderers cannot handle edges to unknown nodes.
//
// The result is always newly allocated.
// Renderers attach state to the values they are given,
// so a Graph must not be handed to a second renderer call.
func Transform(t *Table) Graph {
	g := Graph{
		Nodes: make([]Node, 0, len(t.order)),
		Edges: []Edge{},
	}

	for _, a := range t.order {
		g.Nodes = append(g.Nodes, Node{ID: a})
		for _, b := range t.peers[a].Sorted() {
			if _, ok := t.peers[b]; !ok {
				continue
			}
			g.Edges = append(g.Edges, Edge{Source: a, Target: b})
		}
	}

	return g
}

// EdgesFrom returns the renderable edges of t whose source is addr,
// applying the same filter as [Transform].
func EdgesFrom(t *Table, addr Address) []Edge {
	cs, ok := t.peers[addr]
	if !ok {
		return nil
	}

	var out []Edge
	for _, b := range cs.Sorted() {
		if _, ok := t.peers[b]; ok {
			out = append(out, Edge{Source: addr, Target: b})
		}
	}
	return out
}
