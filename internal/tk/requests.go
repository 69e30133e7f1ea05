package tk

import (
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tpubsub"
)

type reportRequest struct {
	Addr  tgraph.Address
	Conns tgraph.ConnSet

	// Must be buffered.
	Resp chan bool
}

type removeRequest struct {
	Addr tgraph.Address

	// Must be buffered.
	Resp chan bool
}

type framesResponse struct {
	Table  *tgraph.Table
	Stream *tpubsub.Stream[tgraph.Frame]
}
