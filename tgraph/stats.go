package tgraph

import "github.com/bits-and-blooms/bitset"

// GraphStats summarizes a table for status lines and metrics.
type GraphStats struct {
	Nodes int

	// Edges that survive the dangling-edge filter.
	Edges int

	// Recorded connections whose target has no entry in the table.
	DanglingEdges int

	// Connected components, treating edges as undirected.
	Components int
}

// Stats computes GraphStats for t.
func Stats(t *Table) GraphStats {
	n := len(t.order)
	idx := make(map[Address]uint, n)
	for i, a := range t.order {
		idx[a] = uint(i)
	}

	// Undirected adjacency as one bitset per node.
	adj := make([]*bitset.BitSet, n)
	for i := range adj {
		adj[i] = bitset.New(uint(n))
	}

	var s GraphStats
	s.Nodes = n
	for i, a := range t.order {
		for b := range t.peers[a] {
			j, ok := idx[b]
			if !ok {
				s.DanglingEdges++
				continue
			}
			s.Edges++
			adj[i].Set(j)
			adj[j].Set(uint(i))
		}
	}

	// Flood fill from each unvisited node.
	visited := bitset.New(uint(n))
	for i := range uint(n) {
		if visited.Test(i) {
			continue
		}
		s.Components++

		frontier := bitset.New(uint(n)).Set(i)
		for frontier.Any() {
			visited.InPlaceUnion(frontier)
			next := bitset.New(uint(n))
			for j, ok := frontier.NextSet(0); ok; j, ok = frontier.NextSet(j + 1) {
				next.InPlaceUnion(adj[j])
			}
			frontier = next.Difference(visited)
		}
	}

	return s
}
