// Package ttransporttest contains test doubles for [ttransport.Transport].
package ttransporttest

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/gordian-engine/topoview/ttransport"
)

// Fake is a single-node transport controlled by the test.
//
// Broadcasts are recorded and echoed to subscribers
// as [ttransport.BroadcastMessageEvent].
// Use the Deliver and connection methods to inject events.
type Fake struct {
	addr string
	hub  *ttransport.Hub

	mu         sync.Mutex
	conns      []ttransport.Connection
	broadcasts []ttransport.Outbound
	seq        int
	tornDown   bool
	failWith   error

	// Every broadcast is also sent here if non-nil.
	// The send blocks, so size the buffer accordingly.
	Broadcasts chan ttransport.Outbound
}

var _ ttransport.Transport = (*Fake)(nil)

// NewFake returns a Fake with the given local address and no connections.
func NewFake(addr string) *Fake {
	return &Fake{
		addr: addr,
		hub:  ttransport.NewHub(),
	}
}

func (f *Fake) Address() string { return f.addr }

func (f *Fake) ActiveConnections() []ttransport.Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.conns)
}

func (f *Fake) Broadcast(ctx context.Context, msg ttransport.Outbound) error {
	f.mu.Lock()
	if f.tornDown {
		f.mu.Unlock()
		return ttransport.ErrTornDown
	}
	if f.failWith != nil {
		err := f.failWith
		f.mu.Unlock()
		return err
	}
	f.broadcasts = append(f.broadcasts, msg)
	f.seq++
	id := strconv.Itoa(f.seq)
	f.mu.Unlock()

	f.hub.Publish(ttransport.Event{
		Kind: ttransport.BroadcastMessageEvent,
		Message: ttransport.Message{
			Outbound: msg,
			ID:       id,
			Address:  f.addr,
		},
	})

	if f.Broadcasts != nil {
		select {
		case f.Broadcasts <- msg:
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
	return nil
}

func (f *Fake) Subscribe() *ttransport.Subscription {
	return f.hub.Subscribe()
}

func (f *Fake) Teardown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tornDown {
		return ttransport.ErrTornDown
	}
	f.tornDown = true
	f.hub.Close()
	return nil
}

// TornDown reports whether Teardown has been called.
func (f *Fake) TornDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tornDown
}

// FailBroadcasts makes every later Broadcast return err.
// Pass nil to restore normal behavior.
func (f *Fake) FailBroadcasts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// Sent returns a copy of every message broadcast so far.
func (f *Fake) Sent() []ttransport.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.broadcasts)
}

// Connect adds a direct connection and emits a ConnectionEvent.
func (f *Fake) Connect(addr string) {
	c := ttransport.Connection{Address: addr}
	f.mu.Lock()
	f.conns = append(f.conns, c)
	f.mu.Unlock()

	f.hub.Publish(ttransport.Event{Kind: ttransport.ConnectionEvent, Conn: c})
}

// Disconnect removes a direct connection and emits a DestroyConnectionEvent.
// The event is emitted even if addr was not connected.
func (f *Fake) Disconnect(addr string) {
	c := ttransport.Connection{Address: addr}
	f.mu.Lock()
	f.conns = slices.DeleteFunc(f.conns, func(x ttransport.Connection) bool {
		return x.Address == addr
	})
	f.mu.Unlock()

	f.hub.Publish(ttransport.Event{Kind: ttransport.DestroyConnectionEvent, Conn: c})
}

// Deliver emits a MessageEvent as though m arrived from the network.
func (f *Fake) Deliver(m ttransport.Message) {
	f.hub.Publish(ttransport.Event{Kind: ttransport.MessageEvent, Message: m})
}
