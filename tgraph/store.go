package tgraph

// ChangeDetection decides whether an incoming report
// for a peer that already has an entry should replace that entry.
type ChangeDetection uint8

const (
	// CountChangeDetection only replaces an existing entry
	// when the number of connections differs.
	// A report with the same size but different members is dropped.
	// This avoids churning observers when peers re-announce an unchanged set,
	// at the cost of occasionally missing a membership swap.
	CountChangeDetection ChangeDetection = iota

	// MembershipChangeDetection replaces an existing entry
	// whenever the set of members differs.
	MembershipChangeDetection
)

func (d ChangeDetection) String() string {
	switch d {
	case CountChangeDetection:
		return "count"
	case MembershipChangeDetection:
		return "membership"
	default:
		return "unknown"
	}
}

// ParseChangeDetection parses the String form of a ChangeDetection.
func ParseChangeDetection(s string) (ChangeDetection, bool) {
	switch s {
	case "count", "":
		return CountChangeDetection, true
	case "membership":
		return MembershipChangeDetection, true
	default:
		return 0, false
	}
}

func (d ChangeDetection) unchanged(old, incoming ConnSet) bool {
	if d == MembershipChangeDetection {
		return old.Equal(incoming)
	}
	return len(old) == len(incoming)
}

// Store owns the current adjacency table.
//
// Store is not safe for concurrent use.
// In this module it is only touched from the kernel's main loop;
// the tables it hands out are immutable and may be shared freely.
type Store struct {
	t      *Table
	detect ChangeDetection
}

// NewStore returns an empty Store using the given change detection.
func NewStore(detect ChangeDetection) *Store {
	return &Store{
		t:      EmptyTable(),
		detect: detect,
	}
}

// ApplyReport replaces addr's connection set with conns.
//
// If addr already has an entry and the change detection considers conns unchanged,
// the current table is kept as-is and ApplyReport returns false.
// Otherwise the current table is replaced and ApplyReport returns true.
func (s *Store) ApplyReport(addr Address, conns ConnSet) bool {
	if old, ok := s.t.peers[addr]; ok && s.detect.unchanged(old, conns) {
		return false
	}

	s.t = s.t.WithReport(addr, conns)
	return true
}

// RemovePeer removes addr as a top-level peer
// and purges it from every other peer's connection set.
// Removing an absent peer is a no-op and returns false.
func (s *Store) RemovePeer(addr Address) bool {
	var changed bool
	s.t, changed = s.t.WithoutPeer(addr)
	return changed
}

// Snapshot returns the current table.
// Later updates to s never modify a returned table.
func (s *Store) Snapshot() *Table {
	return s.t
}

// Len returns the number of top-level peers in the current table.
func (s *Store) Len() int {
	return s.t.Len()
}
