package topoview

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gordian-engine/topoview/internal/tk"
	"github.com/gordian-engine/topoview/internal/tmetrics"
	"github.com/gordian-engine/topoview/tbroadcast"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tpubsub"
	"github.com/gordian-engine/topoview/ttransport"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Viewer maintains the topology view for one node.
type Viewer struct {
	log *slog.Logger

	t ttransport.Transport
	k *tk.Kernel
}

// Config is the configuration for a [Viewer].
type Config struct {
	// The network to observe and announce on. Required.
	Transport ttransport.Transport

	// Messages with any other app ID are ignored,
	// apart from the particles they produce. Required.
	AppID string

	// How long to wait between connection-info broadcasts.
	// Defaults to [tbroadcast.DefaultAdaptiveInterval].
	Interval tbroadcast.IntervalPolicy

	// How the store decides that a repeated report is unchanged.
	// The zero value is [tgraph.CountChangeDetection].
	ChangeDetection tgraph.ChangeDetection

	// Rate limit for broadcasts triggered by local connection changes.
	// Zero means DefaultEarlyBroadcastLimit;
	// set DisableEarlyBroadcast to turn them off entirely.
	EarlyBroadcastLimit   rate.Limit
	EarlyBroadcastBurst   int
	DisableEarlyBroadcast bool

	// Where to register prometheus collectors.
	// If nil, metrics are not exported.
	Metrics prometheus.Registerer
}

// DefaultEarlyBroadcastLimit allows one early broadcast per second.
const DefaultEarlyBroadcastLimit rate.Limit = 1

// validate panics if there are any illegal settings in the configuration.
func (c Config) validate() {
	// Collect every problem so the panic is maximally helpful.
	var panicErrs error

	if c.Transport == nil {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("Config.Transport must not be nil"),
		)
	}

	if c.AppID == "" {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("Config.AppID must not be empty"),
		)
	}

	if c.ChangeDetection != tgraph.CountChangeDetection &&
		c.ChangeDetection != tgraph.MembershipChangeDetection {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("Config.ChangeDetection has an unknown value"),
		)
	}

	if c.EarlyBroadcastLimit < 0 {
		panicErrs = errors.Join(
			panicErrs,
			errors.New("Config.EarlyBroadcastLimit must not be negative"),
		)
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// New returns a running Viewer.
// The ctx parameter controls the lifecycle of the Viewer;
// cancel the context to stop it,
// and then use [*Viewer.Wait] to block until its goroutine has finished.
//
// The Viewer does not tear down the transport;
// that remains the caller's responsibility.
//
// Configuration errors cause a panic.
func New(ctx context.Context, log *slog.Logger, cfg Config) *Viewer {
	cfg.validate()

	interval := cfg.Interval
	if interval == nil {
		interval = tbroadcast.DefaultAdaptiveInterval()
	}

	var m *tmetrics.Metrics
	if cfg.Metrics == nil {
		m = tmetrics.Nop()
	} else {
		m = tmetrics.New(cfg.Metrics)
	}

	earlyLimit := cfg.EarlyBroadcastLimit
	switch {
	case cfg.DisableEarlyBroadcast:
		earlyLimit = 0
	case earlyLimit == 0:
		earlyLimit = DefaultEarlyBroadcastLimit
	}

	bc := tbroadcast.New(log.With("sys", "broadcaster"), tbroadcast.Config{
		Transport:  cfg.Transport,
		AppID:      cfg.AppID,
		EarlyLimit: earlyLimit,
		EarlyBurst: cfg.EarlyBroadcastBurst,
		Metrics:    m,
	})

	log.Info(
		"Starting viewer",
		"address", cfg.Transport.Address(),
		"app_id", cfg.AppID,
		"interval", interval,
		"change_detection", cfg.ChangeDetection,
	)

	k := tk.NewKernel(ctx, log.With("sys", "kernel"), tk.KernelConfig{
		Transport:       cfg.Transport,
		AppID:           cfg.AppID,
		Broadcaster:     bc,
		Interval:        interval,
		ChangeDetection: cfg.ChangeDetection,
		Metrics:         m,
	})

	return &Viewer{
		log: log,
		t:   cfg.Transport,
		k:   k,
	}
}

// Wait blocks until the Viewer's background work has completed.
func (v *Viewer) Wait() {
	v.k.Wait()
}

// Address returns the local node's address.
func (v *Viewer) Address() tgraph.Address {
	return v.t.Address()
}

// Snapshot returns the current adjacency table.
// The table is immutable and remains valid after later changes.
func (v *Viewer) Snapshot(ctx context.Context) (*tgraph.Table, error) {
	return v.k.Snapshot(ctx)
}

// Graph returns a freshly transformed graph of the current table.
func (v *Viewer) Graph(ctx context.Context) (tgraph.Graph, error) {
	t, err := v.k.Snapshot(ctx)
	if err != nil {
		return tgraph.Graph{}, err
	}
	return tgraph.Transform(t), nil
}

// Status returns the local node's summary line.
func (v *Viewer) Status(ctx context.Context) (tgraph.Status, error) {
	t, err := v.k.Snapshot(ctx)
	if err != nil {
		return tgraph.Status{}, err
	}
	return tgraph.StatusOf(t, v.t.Address()), nil
}

// Frames returns the current table
// and the stream on which every later frame is published.
func (v *Viewer) Frames(ctx context.Context) (*tgraph.Table, *tpubsub.Stream[tgraph.Frame], error) {
	return v.k.Frames(ctx)
}

// ApplyReport applies a connection report
// as though it had been received from addr.
func (v *Viewer) ApplyReport(ctx context.Context, addr tgraph.Address, conns tgraph.ConnSet) (bool, error) {
	return v.k.ApplyReport(ctx, addr, conns)
}

// RemovePeer removes addr from the view
// as though its connection had been destroyed.
func (v *Viewer) RemovePeer(ctx context.Context, addr tgraph.Address) (bool, error) {
	return v.k.RemovePeer(ctx, addr)
}
