// Package tquic is a [ttransport.Transport] over QUIC.
//
// Each node listens on one UDP socket and dials a static list of peers,
// redialing any that drop.
// There is no peer discovery:
// the topology is exactly the set of configured links.
//
// After the QUIC handshake, both sides send a hello frame carrying
// the address they advertise, which becomes the peer's address in the topology.
// Every later frame travels on its own unidirectional stream
// as a single JSON document.
//
// Broadcasts flood to every connected peer,
// and each receiver relays messages it has not seen before.
// A bounded cache of recently seen message keys suppresses duplicates.
//
// Peers present ephemeral self-signed certificates that are not verified.
// The transport provides connectivity, not identity.
package tquic
