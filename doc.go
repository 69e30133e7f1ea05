// Package topoview renders a live view of a peer-to-peer network's topology.
//
// Every node periodically broadcasts the set of peers it is directly connected to.
// A [Viewer] collects those reports from the network into an adjacency table,
// and publishes a frame each time the table changes or a message is observed.
// Renderers in the trender packages follow those frames
// and draw nodes, edges, and a particle along each edge a message travels.
//
// The network itself is a [ttransport.Transport] supplied by the caller.
// The tmemnet package provides an in-process network for tests and simulation,
// and the tquic package adapts a QUIC mesh of statically configured peers.
package topoview
