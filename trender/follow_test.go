package trender_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gordian-engine/topoview/internal/ttest"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tpubsub"
	"github.com/gordian-engine/topoview/trender"
	"github.com/gordian-engine/topoview/trender/trendertest"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	T *tgraph.Table
	S *tpubsub.Stream[tgraph.Frame]
}

func (s *fakeSource) Address() tgraph.Address { return "me" }

func (s *fakeSource) Frames(context.Context) (*tgraph.Table, *tpubsub.Stream[tgraph.Frame], error) {
	return s.T, s.S, nil
}

type followFixture struct {
	Head *tpubsub.Stream[tgraph.Frame]
	Rec  *trendertest.Recorder
	Sw   *trender.Switch

	Cancel context.CancelFunc
	Done   chan error
}

func startFollow(t *testing.T, initial *tgraph.Table, on bool) *followFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	src := &fakeSource{T: initial, S: tpubsub.NewStream[tgraph.Frame]()}
	fx := &followFixture{
		Head:   src.S,
		Rec:    trendertest.NewRecorder(16),
		Sw:     trender.NewSwitch(on),
		Cancel: cancel,
		Done:   make(chan error, 1),
	}

	go func() {
		fx.Done <- trender.Follow(ctx, ttest.NewLogger(t), src, fx.Rec, fx.Sw)
	}()
	t.Cleanup(func() {
		cancel()
		<-fx.Done
	})
	return fx
}

func (fx *followFixture) publish(f tgraph.Frame) {
	fx.Head = fx.Head.Publish(f)
}

func TestFollow_rendersInitialAndChangedTables(t *testing.T) {
	t.Parallel()

	initial := tgraph.EmptyTable().WithReport("me", tgraph.NewConnSet("a"))
	fx := startFollow(t, initial, true)

	r := ttest.ReceiveSoon(t, fx.Rec.Renders)
	require.Equal(t, []tgraph.Node{{ID: "me"}}, r.Graph.Nodes)
	require.Empty(t, r.Graph.Edges)
	require.Equal(t, tgraph.Status{Address: "me", Connections: 1, Components: 1}, r.Status)

	next := initial.WithReport("a", tgraph.NewConnSet("me"))
	fx.publish(tgraph.Frame{
		Table:     next,
		Changed:   true,
		Particles: []tgraph.Edge{{Source: "me", Target: "a"}},
		Self:      "me",
	})

	r = ttest.ReceiveSoon(t, fx.Rec.Renders)
	require.Equal(t, tgraph.Transform(next), r.Graph)
	require.Equal(t, tgraph.Edge{Source: "me", Target: "a"}, ttest.ReceiveSoon(t, fx.Rec.Particles))
}

func TestFollow_particlesWithoutRedraw(t *testing.T) {
	t.Parallel()

	tbl := tgraph.EmptyTable().
		WithReport("me", tgraph.NewConnSet("a")).
		WithReport("a", tgraph.NewConnSet("me"))
	fx := startFollow(t, tbl, true)
	_ = ttest.ReceiveSoon(t, fx.Rec.Renders)

	fx.publish(tgraph.Frame{
		Table:     tbl,
		Particles: []tgraph.Edge{{Source: "a", Target: "me"}},
		Self:      "me",
	})

	require.Equal(t, tgraph.Edge{Source: "a", Target: "me"}, ttest.ReceiveSoon(t, fx.Rec.Particles))
	ttest.NotSending(t, fx.Rec.Renders)
}

func TestFollow_switchOffSuppressesDrawing(t *testing.T) {
	t.Parallel()

	fx := startFollow(t, tgraph.EmptyTable(), false)
	ttest.NotSending(t, fx.Rec.Renders)

	latest := tgraph.EmptyTable().WithReport("x", tgraph.NewConnSet("y"))
	fx.publish(tgraph.Frame{
		Table:     latest,
		Changed:   true,
		Particles: []tgraph.Edge{{Source: "x", Target: "y"}},
		Self:      "me",
	})
	ttest.NotSending(t, fx.Rec.Renders)
	ttest.NotSending(t, fx.Rec.Particles)

	// Turning drawing on shows the latest table, not the initial one.
	fx.Sw.Set(true)
	r := ttest.ReceiveSoon(t, fx.Rec.Renders)
	require.Equal(t, []tgraph.Node{{ID: "x"}}, r.Graph.Nodes)

	require.False(t, fx.Sw.Toggle())
	fx.publish(tgraph.Frame{Table: tgraph.EmptyTable(), Changed: true, Self: "me"})
	ttest.NotSending(t, fx.Rec.Renders)
}

func TestFollow_freshGraphPerRender(t *testing.T) {
	t.Parallel()

	tbl := tgraph.EmptyTable().WithReport("a", nil)
	fx := startFollow(t, tbl, true)
	first := ttest.ReceiveSoon(t, fx.Rec.Renders)

	fx.Sw.Set(false)
	fx.Sw.Set(true)
	second := ttest.ReceiveSoon(t, fx.Rec.Renders)

	first.Graph.Nodes[0].ID = "mutated"
	require.Equal(t, "a", second.Graph.Nodes[0].ID)
}

func TestFollow_returnsContextCause(t *testing.T) {
	t.Parallel()

	fx := startFollow(t, tgraph.EmptyTable(), true)
	_ = ttest.ReceiveSoon(t, fx.Rec.Renders)

	fx.Cancel()
	err := ttest.ReceiveSoon(t, fx.Done)
	require.ErrorIs(t, err, context.Canceled)

	// Let the cleanup observe the result too.
	fx.Done <- err
}

type failingSource struct{}

func (failingSource) Address() tgraph.Address { return "me" }

func (failingSource) Frames(context.Context) (*tgraph.Table, *tpubsub.Stream[tgraph.Frame], error) {
	return nil, nil, errors.New("boom")
}

func TestFollow_subscribeError(t *testing.T) {
	t.Parallel()

	err := trender.Follow(
		context.Background(), ttest.NewLogger(t),
		failingSource{}, trendertest.NewRecorder(1), nil,
	)
	require.ErrorContains(t, err, "boom")
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a := trendertest.NewRecorder(1)
	b := trendertest.NewRecorder(1)
	m := trender.Multi(a, b)

	g := tgraph.Transform(tgraph.EmptyTable().WithReport("n", nil))
	m.Render(g, tgraph.Status{Address: "n"})
	m.EmitParticle(tgraph.Edge{Source: "n", Target: "n"})

	ra := ttest.ReceiveSoon(t, a.Renders)
	rb := ttest.ReceiveSoon(t, b.Renders)
	require.Equal(t, ra, rb)

	ra.Graph.Nodes[0].ID = "changed"
	require.Equal(t, "n", rb.Graph.Nodes[0].ID)

	require.Equal(t, ttest.ReceiveSoon(t, a.Particles), ttest.ReceiveSoon(t, b.Particles))
}
