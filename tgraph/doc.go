// Package tgraph holds the adjacency table describing
// which peers report active connections to which other peers,
// and the projection of that table into a renderable graph.
//
// A [*Table] is immutable.
// Every update produces a new table sharing unchanged parts with the old one,
// so a snapshot handed to an observer never changes underneath it.
// The [Store] owns the current table and applies the change-detection policy.
//
// [Transform] turns a table into a [Graph] of nodes and edges,
// suppressing any edge whose target is not itself a node.
// Renderers mutate the graphs they receive,
// so Transform always allocates a fresh graph.
package tgraph
