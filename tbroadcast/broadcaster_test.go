package tbroadcast_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gordian-engine/topoview/internal/tmetrics"
	"github.com/gordian-engine/topoview/internal/ttest"
	"github.com/gordian-engine/topoview/tbroadcast"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tmsg"
	"github.com/gordian-engine/topoview/ttransport"
	"github.com/gordian-engine/topoview/ttransport/ttransporttest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBroadcaster_Broadcast(t *testing.T) {
	t.Parallel()

	f := ttransporttest.NewFake("me")

	sub := f.Subscribe()
	defer sub.Close()

	f.Connect("a")
	f.Connect("b")

	m := tmetrics.New(prometheus.NewRegistry())
	b := tbroadcast.New(ttest.NewLogger(t), tbroadcast.Config{
		Transport: f,
		AppID:     "app",
		Metrics:   m,
	})

	require.NoError(t, b.Broadcast(context.Background()))

	sent := f.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, tmsg.TypeConnectionInfo, sent[0].Type)
	require.Equal(t, "app", sent[0].AppID)

	ci, err := tmsg.DecodeConnectionInfo(sent[0])
	require.NoError(t, err)
	require.Equal(t, "me", ci.Address)
	require.Equal(t, tgraph.NewConnSet("a", "b"), ci.ConnSet())

	require.Equal(t, 1.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("periodic")))

	// The transport echoes our own broadcast, after the two connection events.
	for range 2 {
		e := ttest.ReceiveSoon(t, sub.C)
		require.Equal(t, ttransport.ConnectionEvent, e.Kind)
	}
	e := ttest.ReceiveSoon(t, sub.C)
	require.Equal(t, ttransport.BroadcastMessageEvent, e.Kind)
	require.Equal(t, "me", e.Message.Address)
}

func TestBroadcaster_BroadcastEarly_rateLimited(t *testing.T) {
	t.Parallel()

	f := ttransporttest.NewFake("me")
	m := tmetrics.New(prometheus.NewRegistry())
	b := tbroadcast.New(ttest.NewLogger(t), tbroadcast.Config{
		Transport: f,
		AppID:     "app",

		// Effectively one token per test run.
		EarlyLimit: rate.Every(1 << 40),
		EarlyBurst: 2,

		Metrics: m,
	})

	ctx := context.Background()
	for range 2 {
		sent, err := b.BroadcastEarly(ctx)
		require.NoError(t, err)
		require.True(t, sent)
	}

	sent, err := b.BroadcastEarly(ctx)
	require.NoError(t, err)
	require.False(t, sent)

	require.Len(t, f.Sent(), 2)
	require.Equal(t, 2.0, testutil.ToFloat64(m.Broadcasts.WithLabelValues("early")))
}

func TestBroadcaster_BroadcastEarly_disabled(t *testing.T) {
	t.Parallel()

	f := ttransporttest.NewFake("me")
	b := tbroadcast.New(ttest.NewLogger(t), tbroadcast.Config{
		Transport: f,
		AppID:     "app",
	})

	sent, err := b.BroadcastEarly(context.Background())
	require.NoError(t, err)
	require.False(t, sent)
	require.Empty(t, f.Sent())
}

func TestBroadcaster_transportError(t *testing.T) {
	t.Parallel()

	f := ttransporttest.NewFake("me")
	boom := errors.New("boom")
	f.FailBroadcasts(boom)

	m := tmetrics.New(prometheus.NewRegistry())
	b := tbroadcast.New(ttest.NewLogger(t), tbroadcast.Config{
		Transport: f,
		AppID:     "app",
		Metrics:   m,
	})

	err := b.Broadcast(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1.0, testutil.ToFloat64(m.BroadcastErrors))
}

func TestNew_panicsOnBadConfig(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		tbroadcast.New(ttest.NewLogger(t), tbroadcast.Config{})
	})
}
