// Package ttransport describes the network transport that topoview consumes.
//
// Peer discovery, connection establishment, delivery and identity
// all belong to the transport.
// topoview only reads the local address and connection list,
// broadcasts messages, and reacts to the events in [EventKind].
//
// The [Hub] type is shared plumbing for transport implementations
// that need to fan events out to several subscribers.
package ttransport
