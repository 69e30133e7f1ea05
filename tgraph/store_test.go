package tgraph_test

import (
	"testing"

	"github.com/gordian-engine/topoview/tgraph"
	"github.com/stretchr/testify/require"
)

func TestStore_ApplyReport_sameCountIsNoOp(t *testing.T) {
	t.Parallel()

	s := tgraph.NewStore(tgraph.CountChangeDetection)
	require.True(t, s.ApplyReport("a", tgraph.NewConnSet("b")))

	before := s.Snapshot()
	require.False(t, s.ApplyReport("a", tgraph.NewConnSet("b")))
	require.Same(t, before, s.Snapshot())

	// Count-based detection also drops a same-size membership change.
	require.False(t, s.ApplyReport("a", tgraph.NewConnSet("c")))
	require.Same(t, before, s.Snapshot())
	cs, _ := s.Snapshot().ConnSet("a")
	require.Equal(t, tgraph.NewConnSet("b"), cs)

	// A different size goes through.
	require.True(t, s.ApplyReport("a", tgraph.NewConnSet("b", "c")))
	require.NotSame(t, before, s.Snapshot())
}

func TestStore_ApplyReport_membershipDetection(t *testing.T) {
	t.Parallel()

	s := tgraph.NewStore(tgraph.MembershipChangeDetection)
	require.True(t, s.ApplyReport("a", tgraph.NewConnSet("b")))

	before := s.Snapshot()
	require.False(t, s.ApplyReport("a", tgraph.NewConnSet("b")))
	require.Same(t, before, s.Snapshot())

	require.True(t, s.ApplyReport("a", tgraph.NewConnSet("c")))
	cs, _ := s.Snapshot().ConnSet("a")
	require.Equal(t, tgraph.NewConnSet("c"), cs)
}

func TestStore_ApplyReport_firstEmptyReportIsApplied(t *testing.T) {
	t.Parallel()

	s := tgraph.NewStore(tgraph.CountChangeDetection)
	require.True(t, s.ApplyReport("a", tgraph.NewConnSet()))
	require.True(t, s.Snapshot().Has("a"))
}

func TestStore_Snapshot_isStable(t *testing.T) {
	t.Parallel()

	s := tgraph.NewStore(tgraph.CountChangeDetection)
	s.ApplyReport("x", tgraph.NewConnSet("y"))
	s.ApplyReport("y", tgraph.NewConnSet("x"))

	snap := s.Snapshot()
	want := snap.Map()

	s.RemovePeer("y")
	s.ApplyReport("z", tgraph.NewConnSet("x"))
	s.ApplyReport("x", tgraph.NewConnSet("z", "w"))

	require.Equal(t, want, snap.Map())
}

func TestStore_RemovePeer(t *testing.T) {
	t.Parallel()

	s := tgraph.NewStore(tgraph.CountChangeDetection)
	s.ApplyReport("x", tgraph.NewConnSet("y"))

	require.True(t, s.RemovePeer("y"))
	require.Equal(t, map[string]tgraph.ConnSet{"x": {}}, s.Snapshot().Map())
}

func TestStore_RemovePeer_idempotent(t *testing.T) {
	t.Parallel()

	s := tgraph.NewStore(tgraph.CountChangeDetection)
	s.ApplyReport("a", tgraph.NewConnSet("b", "c"))
	s.ApplyReport("b", tgraph.NewConnSet("a"))
	s.ApplyReport("c", tgraph.NewConnSet("a", "b"))

	require.True(t, s.RemovePeer("a"))
	once := s.Snapshot()

	require.False(t, s.RemovePeer("a"))
	require.Same(t, once, s.Snapshot())

	require.Equal(t, map[string]tgraph.ConnSet{
		"b": {},
		"c": tgraph.NewConnSet("b"),
	}, once.Map())
}

func TestStore_RemovePeer_purgesEverywhere(t *testing.T) {
	t.Parallel()

	rng := newTestRand(t)
	addrs := []string{"a", "b", "c", "d", "e", "f"}

	s := tgraph.NewStore(tgraph.MembershipChangeDetection)
	for range 50 {
		a := addrs[rng.IntN(len(addrs))]
		cs := tgraph.NewConnSet()
		for _, b := range addrs {
			if b != a && rng.IntN(2) == 0 {
				cs[b] = struct{}{}
			}
		}
		s.ApplyReport(a, cs)
	}

	victim := addrs[rng.IntN(len(addrs))]
	s.RemovePeer(victim)

	snap := s.Snapshot()
	require.False(t, snap.Has(victim))
	for _, a := range snap.Peers() {
		cs, _ := snap.ConnSet(a)
		require.Falsef(t, cs.Has(victim), "peer %s still references %s", a, victim)
	}
}

func TestParseChangeDetection(t *testing.T) {
	t.Parallel()

	for _, d := range []tgraph.ChangeDetection{
		tgraph.CountChangeDetection, tgraph.MembershipChangeDetection,
	} {
		got, ok := tgraph.ParseChangeDetection(d.String())
		require.True(t, ok)
		require.Equal(t, d, got)
	}

	_, ok := tgraph.ParseChangeDetection("bogus")
	require.False(t, ok)
}
