package tmemnet

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/gordian-engine/topoview/ttransport"
)

// Network is a set of in-process nodes.
// All methods are safe for concurrent use.
type Network struct {
	mu    sync.Mutex
	nodes map[string]*Node
	seq   uint64
}

// New returns an empty Network.
func New() *Network {
	return &Network{nodes: map[string]*Node{}}
}

// Join adds a node with the given address and no connections.
func (n *Network) Join(addr string) (*Node, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.nodes[addr]; ok {
		return nil, AlreadyJoinedError{Address: addr}
	}

	node := &Node{
		net:   n,
		addr:  addr,
		hub:   ttransport.NewHub(),
		conns: map[string]struct{}{},
	}
	n.nodes[addr] = node
	return node, nil
}

// Addresses returns the addresses of every node currently in the network, sorted.
func (n *Network) Addresses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, 0, len(n.nodes))
	for a := range n.nodes {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Connected reports whether a and b are directly connected.
func (n *Network) Connected(a, b string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	na, ok := n.nodes[a]
	if !ok {
		return false
	}
	_, ok = na.conns[b]
	return ok
}

// Connect connects a and b, emitting a connection event on both ends.
// Connecting an already connected pair is a no-op.
func (n *Network) Connect(a, b string) error {
	if a == b {
		return SelfConnectError{Address: a}
	}

	n.mu.Lock()
	na, nb, err := n.pair(a, b)
	if err != nil {
		n.mu.Unlock()
		return err
	}
	if _, ok := na.conns[b]; ok {
		n.mu.Unlock()
		return nil
	}
	na.conns[b] = struct{}{}
	nb.conns[a] = struct{}{}
	n.mu.Unlock()

	na.hub.Publish(ttransport.Event{
		Kind: ttransport.ConnectionEvent,
		Conn: ttransport.Connection{Address: b},
	})
	nb.hub.Publish(ttransport.Event{
		Kind: ttransport.ConnectionEvent,
		Conn: ttransport.Connection{Address: a},
	})
	return nil
}

// Disconnect removes the connection between a and b,
// emitting a destroy-connection event on both ends.
// Disconnecting an unconnected pair is a no-op.
func (n *Network) Disconnect(a, b string) error {
	n.mu.Lock()
	na, nb, err := n.pair(a, b)
	if err != nil {
		n.mu.Unlock()
		return err
	}
	if _, ok := na.conns[b]; !ok {
		n.mu.Unlock()
		return nil
	}
	delete(na.conns, b)
	delete(nb.conns, a)
	n.mu.Unlock()

	na.hub.Publish(ttransport.Event{
		Kind: ttransport.DestroyConnectionEvent,
		Conn: ttransport.Connection{Address: b},
	})
	nb.hub.Publish(ttransport.Event{
		Kind: ttransport.DestroyConnectionEvent,
		Conn: ttransport.Connection{Address: a},
	})
	return nil
}

// Leave disconnects addr from every peer and removes it from the network.
// Its transport is torn down, closing every subscription.
func (n *Network) Leave(addr string) error {
	n.mu.Lock()
	node, ok := n.nodes[addr]
	if !ok {
		n.mu.Unlock()
		return ttransport.UnknownPeerError{Address: addr}
	}

	peers := make([]*Node, 0, len(node.conns))
	for p := range node.conns {
		peer := n.nodes[p]
		delete(peer.conns, addr)
		peers = append(peers, peer)
	}
	clear(node.conns)
	delete(n.nodes, addr)
	node.tornDown = true
	n.mu.Unlock()

	for _, p := range peers {
		p.hub.Publish(ttransport.Event{
			Kind: ttransport.DestroyConnectionEvent,
			Conn: ttransport.Connection{Address: addr},
		})
	}
	node.hub.Close()
	return nil
}

// pair must be called with n.mu held.
func (n *Network) pair(a, b string) (*Node, *Node, error) {
	na, ok := n.nodes[a]
	if !ok {
		return nil, nil, ttransport.UnknownPeerError{Address: a}
	}
	nb, ok := n.nodes[b]
	if !ok {
		return nil, nil, ttransport.UnknownPeerError{Address: b}
	}
	return na, nb, nil
}

// flood delivers msg from origin to every node reachable from it.
func (n *Network) flood(ctx context.Context, origin *Node, out ttransport.Outbound) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}

	n.mu.Lock()
	if origin.tornDown {
		n.mu.Unlock()
		return ttransport.ErrTornDown
	}
	n.seq++
	msg := ttransport.Message{
		Outbound: out,
		ID:       strconv.FormatUint(n.seq, 10),
		Address:  origin.addr,
	}

	// Breadth-first, so nearer nodes are delivered to first.
	seen := map[string]struct{}{origin.addr: {}}
	queue := []*Node{origin}
	var targets []*Node
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, p := range sortedKeys(cur.conns) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			next := n.nodes[p]
			targets = append(targets, next)
			queue = append(queue, next)
		}
	}
	n.mu.Unlock()

	origin.hub.Publish(ttransport.Event{
		Kind:    ttransport.BroadcastMessageEvent,
		Message: msg,
	})
	for _, t := range targets {
		t.hub.Publish(ttransport.Event{
			Kind:    ttransport.MessageEvent,
			Message: msg,
		})
	}
	return nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
