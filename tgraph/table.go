package tgraph

import (
	"maps"
	"slices"
)

// Address identifies a peer on the network.
// It is opaque to this package.
type Address = string

// ConnSet is the set of addresses a peer reports being connected to.
type ConnSet map[Address]struct{}

// NewConnSet returns a ConnSet containing addrs.
func NewConnSet(addrs ...Address) ConnSet {
	cs := make(ConnSet, len(addrs))
	for _, a := range addrs {
		cs[a] = struct{}{}
	}
	return cs
}

// Has reports whether a is in the set.
func (cs ConnSet) Has(a Address) bool {
	_, ok := cs[a]
	return ok
}

// Sorted returns the members of cs in ascending order.
func (cs ConnSet) Sorted() []Address {
	return slices.Sorted(maps.Keys(cs))
}

// Equal reports whether cs and other have exactly the same members.
func (cs ConnSet) Equal(other ConnSet) bool {
	if len(cs) != len(other) {
		return false
	}
	for a := range cs {
		if _, ok := other[a]; !ok {
			return false
		}
	}
	return true
}

// Table is an immutable adjacency table:
// for every peer we have a report for,
// the set of peers it said it was connected to.
//
// The zero value is not usable; start from [EmptyTable].
// Peers iterate in the order their first report arrived.
type Table struct {
	order []Address
	peers map[Address]ConnSet
}

// EmptyTable returns a table with no peers.
func EmptyTable() *Table {
	return &Table{peers: map[Address]ConnSet{}}
}

// Len returns the number of peers in the table.
func (t *Table) Len() int {
	return len(t.order)
}

// Has reports whether addr is a top-level peer in the table.
func (t *Table) Has(addr Address) bool {
	_, ok := t.peers[addr]
	return ok
}

// Peers returns the table's peers in insertion order.
// The returned slice is a copy.
func (t *Table) Peers() []Address {
	return slices.Clone(t.order)
}

// ConnSet returns the recorded connections for addr.
// The returned set must not be modified.
func (t *Table) ConnSet(addr Address) (ConnSet, bool) {
	cs, ok := t.peers[addr]
	return cs, ok
}

// Connections returns the number of connections recorded for addr,
// or zero if addr has no entry.
func (t *Table) Connections(addr Address) int {
	return len(t.peers[addr])
}

// Map returns a deep copy of the table as plain maps.
// This is mostly useful for tests and debug output.
func (t *Table) Map() map[Address]ConnSet {
	out := make(map[Address]ConnSet, len(t.peers))
	for a, cs := range t.peers {
		out[a] = maps.Clone(cs)
	}
	return out
}

// WithReport returns a new table where addr's connections are exactly conns.
// The receiver is unchanged.
// If addr is new, it is appended to the iteration order;
// otherwise it keeps its position.
//
// conns is copied, so the caller may keep using it.
func (t *Table) WithReport(addr Address, conns ConnSet) *Table {
	peers := maps.Clone(t.peers)
	peers[addr] = maps.Clone(conns)
	if peers[addr] == nil {
		// maps.Clone(nil) returns nil; keep a real empty set
		// so that the peer is still considered present.
		peers[addr] = ConnSet{}
	}

	order := t.order
	if _, had := t.peers[addr]; !had {
		order = append(slices.Clip(t.order), addr)
	}

	return &Table{order: order, peers: peers}
}

// WithoutPeer returns a new table without addr as a top-level peer
// and without addr in any other peer's connection set.
//
// If addr does not appear anywhere in t,
// WithoutPeer returns t itself and false.
func (t *Table) WithoutPeer(addr Address) (*Table, bool) {
	_, hadPeer := t.peers[addr]

	var referrers []Address
	for _, a := range t.order {
		if a == addr {
			continue
		}
		if t.peers[a].Has(addr) {
			referrers = append(referrers, a)
		}
	}

	if !hadPeer && len(referrers) == 0 {
		return t, false
	}

	peers := maps.Clone(t.peers)
	delete(peers, addr)

	// Inner sets are shared between table generations,
	// so any set we touch has to be copied first.
	for _, a := range referrers {
		cs := maps.Clone(peers[a])
		delete(cs, addr)
		peers[a] = cs
	}

	order := t.order
	if hadPeer {
		order = slices.DeleteFunc(slices.Clone(t.order), func(a Address) bool {
			return a == addr
		})
	}

	return &Table{order: order, peers: peers}, true
}
