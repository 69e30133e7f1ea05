// Package trendertest contains test doubles for [trender.Renderer].
package trendertest

import (
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/trender"
)

// Render is one recorded call to [trender.Renderer.Render].
type Render struct {
	Graph  tgraph.Graph
	Status tgraph.Status
}

// Recorder is a [trender.Renderer] that sends every call to a channel.
// Both channels are buffered; tests should drain them
// with ttest.ReceiveSoon or similar.
type Recorder struct {
	Renders   chan Render
	Particles chan tgraph.Edge
}

var _ trender.Renderer = (*Recorder)(nil)

// NewRecorder returns a Recorder whose channels hold up to size calls each.
func NewRecorder(size int) *Recorder {
	return &Recorder{
		Renders:   make(chan Render, size),
		Particles: make(chan tgraph.Edge, size),
	}
}

func (r *Recorder) Render(g tgraph.Graph, st tgraph.Status) {
	r.Renders <- Render{Graph: g, Status: st}
}

func (r *Recorder) EmitParticle(e tgraph.Edge) {
	r.Particles <- e
}
