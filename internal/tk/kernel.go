package tk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gordian-engine/topoview/internal/tmetrics"
	"github.com/gordian-engine/topoview/tbroadcast"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tmsg"
	"github.com/gordian-engine/topoview/tpubsub"
	"github.com/gordian-engine/topoview/ttransport"
)

// Kernel owns the graph store and reacts to transport events.
type Kernel struct {
	log *slog.Logger

	self  tgraph.Address
	appID string

	store *tgraph.Store
	sub   *ttransport.Subscription

	bc     *tbroadcast.Broadcaster
	policy tbroadcast.IntervalPolicy

	m *tmetrics.Metrics

	// The next frame to publish.
	// Only accessed from the main loop.
	head *tpubsub.Stream[tgraph.Frame]

	reports  chan reportRequest
	removals chan removeRequest
	frames   chan chan framesResponse

	done chan struct{}
}

// KernelConfig is the configuration for a [Kernel].
// Every field except ChangeDetection must be set.
type KernelConfig struct {
	Transport   ttransport.Transport
	AppID       string
	Broadcaster *tbroadcast.Broadcaster
	Interval    tbroadcast.IntervalPolicy

	ChangeDetection tgraph.ChangeDetection

	Metrics *tmetrics.Metrics
}

// NewKernel subscribes to the transport and starts the main loop.
// Cancel ctx to stop the kernel, then call [*Kernel.Wait].
func NewKernel(ctx context.Context, log *slog.Logger, cfg KernelConfig) *Kernel {
	k := &Kernel{
		log: log,

		self:  cfg.Transport.Address(),
		appID: cfg.AppID,

		store: tgraph.NewStore(cfg.ChangeDetection),

		// Subscribe before returning,
		// so no event after construction is missed.
		sub: cfg.Transport.Subscribe(),

		bc:     cfg.Broadcaster,
		policy: cfg.Interval,

		m: cfg.Metrics,

		head: tpubsub.NewStream[tgraph.Frame](),

		reports:  make(chan reportRequest),
		removals: make(chan removeRequest),
		frames:   make(chan chan framesResponse),

		done: make(chan struct{}),
	}

	go k.mainLoop(ctx)

	return k
}

// Wait blocks until the main loop has returned
// and the transport subscription is closed.
func (k *Kernel) Wait() {
	<-k.done
}

func (k *Kernel) mainLoop(ctx context.Context) {
	defer close(k.done)
	defer k.sub.Close()

	timer := time.NewTimer(k.policy.Interval(k.store.Len()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			k.log.Info("Stopping due to context cancellation", "cause", context.Cause(ctx))
			return

		case e, ok := <-k.sub.C:
			if !ok {
				k.log.Info("Stopping due to closed transport subscription")
				return
			}
			k.handleEvent(ctx, e)

		case <-timer.C:
			if err := k.bc.Broadcast(ctx); err != nil {
				k.log.Info("Periodic broadcast failed", "err", err)
			}
			timer.Reset(k.policy.Interval(k.store.Len()))

		case req := <-k.reports:
			req.Resp <- k.applyReport(req.Addr, req.Conns, nil)

		case req := <-k.removals:
			req.Resp <- k.removePeer(req.Addr)

		case ch := <-k.frames:
			ch <- framesResponse{
				Table:  k.store.Snapshot(),
				Stream: k.head,
			}
		}
	}
}

func (k *Kernel) handleEvent(ctx context.Context, e ttransport.Event) {
	switch e.Kind {
	case ttransport.MessageEvent, ttransport.BroadcastMessageEvent:
		k.handleMessage(e.Message)

	case ttransport.ConnectionEvent:
		k.log.Debug("New connection", "peer", e.Conn.Address)
		k.broadcastEarly(ctx)

	case ttransport.DestroyConnectionEvent:
		k.log.Debug("Connection destroyed", "peer", e.Conn.Address)
		k.removePeer(e.Conn.Address)
		k.broadcastEarly(ctx)

	default:
		k.log.Warn("Ignoring unknown transport event", "kind", e.Kind)
	}
}

func (k *Kernel) handleMessage(msg ttransport.Message) {
	// Particles are shown for every message,
	// including messages for other applications sharing the transport.
	particles := tgraph.EdgesFrom(k.store.Snapshot(), msg.Address)
	k.m.Particles.Add(float64(len(particles)))

	if msg.AppID != k.appID || msg.Type != tmsg.TypeConnectionInfo {
		k.m.ForeignMessages.Inc()
		if len(particles) > 0 {
			k.publish(false, particles)
		}
		return
	}

	ci, err := tmsg.DecodeConnectionInfo(msg.Outbound)
	if err != nil {
		k.m.BadMessages.Inc()
		k.log.Debug(
			"Dropping undecodable connection info",
			"origin", msg.Address,
			"err", err,
		)
		if len(particles) > 0 {
			k.publish(false, particles)
		}
		return
	}

	k.applyReport(ci.Address, ci.ConnSet(), particles)
}

func (k *Kernel) applyReport(addr tgraph.Address, conns tgraph.ConnSet, particles []tgraph.Edge) bool {
	changed := k.store.ApplyReport(addr, conns)
	if changed {
		k.m.ReportsApplied.Inc()
	} else {
		k.m.ReportsSkipped.Inc()
	}

	if changed || len(particles) > 0 {
		k.publish(changed, particles)
	}
	return changed
}

func (k *Kernel) removePeer(addr tgraph.Address) bool {
	changed := k.store.RemovePeer(addr)
	if changed {
		k.m.PeersRemoved.Inc()
		k.publish(true, nil)
	}
	return changed
}

func (k *Kernel) publish(changed bool, particles []tgraph.Edge) {
	t := k.store.Snapshot()
	if changed {
		k.m.ObserveTable(t)
	}

	k.head = k.head.Publish(tgraph.Frame{
		Table:     t,
		Changed:   changed,
		Particles: particles,
		Self:      k.self,
	})
}

func (k *Kernel) broadcastEarly(ctx context.Context) {
	if _, err := k.bc.BroadcastEarly(ctx); err != nil {
		k.log.Info("Early broadcast failed", "err", err)
	}
}

// ErrStopped is returned from request methods once the main loop has exited.
var ErrStopped = errors.New("kernel stopped")

// ApplyReport applies a connection report directly,
// as though it had arrived from the network.
func (k *Kernel) ApplyReport(ctx context.Context, addr tgraph.Address, conns tgraph.ConnSet) (bool, error) {
	req := reportRequest{Addr: addr, Conns: conns, Resp: make(chan bool, 1)}
	select {
	case <-ctx.Done():
		return false, context.Cause(ctx)
	case <-k.done:
		return false, ErrStopped
	case k.reports <- req:
		return <-req.Resp, nil
	}
}

// RemovePeer removes addr from the table,
// as though its connection had been destroyed.
func (k *Kernel) RemovePeer(ctx context.Context, addr tgraph.Address) (bool, error) {
	req := removeRequest{Addr: addr, Resp: make(chan bool, 1)}
	select {
	case <-ctx.Done():
		return false, context.Cause(ctx)
	case <-k.done:
		return false, ErrStopped
	case k.removals <- req:
		return <-req.Resp, nil
	}
}

// Frames returns the current table and the stream node
// where the next frame will be published.
// Reading the stream from there observes every later change.
func (k *Kernel) Frames(ctx context.Context) (*tgraph.Table, *tpubsub.Stream[tgraph.Frame], error) {
	ch := make(chan framesResponse, 1)
	select {
	case <-ctx.Done():
		return nil, nil, context.Cause(ctx)
	case <-k.done:
		return nil, nil, ErrStopped
	case k.frames <- ch:
		resp := <-ch
		return resp.Table, resp.Stream, nil
	}
}

// Snapshot returns the current table.
func (k *Kernel) Snapshot(ctx context.Context) (*tgraph.Table, error) {
	t, _, err := k.Frames(ctx)
	return t, err
}
