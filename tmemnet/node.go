package tmemnet

import (
	"context"
	"slices"

	"github.com/gordian-engine/topoview/ttransport"
)

// Node is one member of a [Network].
type Node struct {
	net  *Network
	addr string
	hub  *ttransport.Hub

	// Guarded by net.mu.
	conns    map[string]struct{}
	tornDown bool
}

var _ ttransport.Transport = (*Node)(nil)

func (n *Node) Address() string {
	return n.addr
}

// ActiveConnections returns the node's direct connections sorted by address.
func (n *Node) ActiveConnections() []ttransport.Connection {
	n.net.mu.Lock()
	keys := sortedKeys(n.conns)
	n.net.mu.Unlock()

	out := make([]ttransport.Connection, len(keys))
	for i, k := range keys {
		out[i] = ttransport.Connection{Address: k}
	}
	return slices.Clip(out)
}

func (n *Node) Broadcast(ctx context.Context, msg ttransport.Outbound) error {
	return n.net.flood(ctx, n, msg)
}

func (n *Node) Subscribe() *ttransport.Subscription {
	return n.hub.Subscribe()
}

// Teardown makes the node leave its network.
func (n *Node) Teardown() error {
	n.net.mu.Lock()
	down := n.tornDown
	n.net.mu.Unlock()
	if down {
		return ttransport.ErrTornDown
	}

	if err := n.net.Leave(n.addr); err != nil {
		// Lost a race with a concurrent Leave or Teardown.
		return ttransport.ErrTornDown
	}
	return nil
}
