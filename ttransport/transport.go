package ttransport

import (
	"context"
	"encoding/json"
)

// Transport is a handle on a peer-to-peer network.
type Transport interface {
	// Address is the local node's identity on the network.
	Address() string

	// ActiveConnections returns the peers the local node
	// is directly connected to right now.
	ActiveConnections() []Connection

	// Broadcast sends msg to the whole network without waiting for delivery.
	// Subscribers of the local transport observe the message
	// as a [BroadcastMessageEvent].
	Broadcast(ctx context.Context, msg Outbound) error

	// Subscribe registers a new event subscription.
	// The caller must Close the subscription when done with it.
	Subscribe() *Subscription

	// Teardown releases all transport resources.
	// It must be called exactly once;
	// later calls return ErrTornDown.
	Teardown() error
}

// Connection describes a direct connection to another peer.
type Connection struct {
	Address string `json:"address"`
}

// Outbound is the application-level part of a message.
type Outbound struct {
	Type  string          `json:"type"`
	AppID string          `json:"appId"`
	Data  json.RawMessage `json:"data"`
}

// Message is an Outbound as seen by a receiver,
// annotated by the transport with routing details.
type Message struct {
	Outbound

	// Unique per originator; used by transports for deduplication.
	ID string `json:"id"`

	// Address of the node that originated the broadcast.
	Address string `json:"address"`
}

// EventKind enumerates the transport events.
type EventKind uint8

const (
	_ EventKind = iota

	// A message broadcast by another node arrived.
	MessageEvent

	// The local node broadcast a message.
	BroadcastMessageEvent

	// A direct connection was established.
	ConnectionEvent

	// A direct connection was lost.
	DestroyConnectionEvent
)

func (k EventKind) String() string {
	switch k {
	case MessageEvent:
		return "message"
	case BroadcastMessageEvent:
		return "broadcast-message"
	case ConnectionEvent:
		return "connection"
	case DestroyConnectionEvent:
		return "destroy-connection"
	default:
		return "unknown"
	}
}

// Event is a single transport event.
// Message is set for message kinds; Conn is set for connection kinds.
type Event struct {
	Kind EventKind

	Message Message
	Conn    Connection
}
