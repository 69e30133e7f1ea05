// Package tterm renders the topology into a live terminal area using pterm.
package tterm

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/trender"
	"github.com/pterm/pterm"
)

// Area is the live region the renderer writes into.
// [*pterm.AreaPrinter] satisfies it.
type Area interface {
	Update(text ...any)
	Stop() error
}

// Renderer draws a header box with the local status,
// and a table of nodes with their renderable edges and particle counts.
type Renderer struct {
	log *slog.Logger

	mu sync.Mutex

	area Area

	g  tgraph.Graph
	st tgraph.Status

	// Particles seen per source node since the last redraw of that node's row.
	particles map[tgraph.Address]int
	total     int
}

var _ trender.Renderer = (*Renderer)(nil)

// Start starts a pterm area on stdout and returns a Renderer drawing into it.
func Start(log *slog.Logger) (*Renderer, error) {
	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start terminal area: %w", err)
	}
	return New(log, area), nil
}

// New returns a Renderer drawing into area.
func New(log *slog.Logger, area Area) *Renderer {
	return &Renderer{
		log:       log,
		area:      area,
		particles: map[tgraph.Address]int{},
	}
}

func (r *Renderer) Render(g tgraph.Graph, st tgraph.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.g = g
	r.st = st

	// Forget counters for nodes that are gone.
	present := make(map[tgraph.Address]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		present[n.ID] = struct{}{}
	}
	for a := range r.particles {
		if _, ok := present[a]; !ok {
			delete(r.particles, a)
		}
	}

	r.redraw()
}

func (r *Renderer) EmitParticle(e tgraph.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.particles[e.Source]++
	r.total++
	r.redraw()
}

// Stop stops the underlying area,
// leaving the last drawn frame on screen.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.area.Stop()
}

// redraw must be called with r.mu held.
func (r *Renderer) redraw() {
	out, err := Sprint(r.g, r.st, r.particles, r.total)
	if err != nil {
		r.log.Warn("Failed to render terminal frame", "err", err)
		return
	}
	r.area.Update(out)
}

// Sprint formats one terminal frame.
func Sprint(
	g tgraph.Graph, st tgraph.Status,
	particles map[tgraph.Address]int, totalParticles int,
) (string, error) {
	header := pterm.DefaultBox.
		WithTitle(pterm.LightCyan("topoview")).
		WithTitleTopLeft().
		WithHorizontalPadding(2).
		Sprintf(
			"%s %s\n%s %d\n%s %d\n%s %d nodes, %d edges, %d particles",
			pterm.Bold.Sprint("Address:"), st.Address,
			pterm.Bold.Sprint("Connections:"), st.Connections,
			pterm.Bold.Sprint("Components:"), st.Components,
			pterm.Bold.Sprint("Graph:"), len(g.Nodes), len(g.Edges), totalParticles,
		)

	targets := make(map[tgraph.Address][]string, len(g.Nodes))
	for _, e := range g.Edges {
		targets[e.Source] = append(targets[e.Source], e.Target)
	}

	data := pterm.TableData{{"Node", "Edges", "Particles"}}
	for _, n := range g.Nodes {
		id := n.ID
		if id == st.Address {
			id = pterm.LightGreen(id)
		}
		data = append(data, []string{
			id,
			strings.Join(targets[n.ID], ", "),
			fmt.Sprint(particles[n.ID]),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return "", fmt.Errorf("failed to render node table: %w", err)
	}

	return header + "\n" + table, nil
}
