package tbroadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/topoview/internal/tmetrics"
	"github.com/gordian-engine/topoview/tmsg"
	"github.com/gordian-engine/topoview/ttransport"
	"golang.org/x/time/rate"
)

// Broadcaster sends connection-info messages through a transport.
type Broadcaster struct {
	log *slog.Logger

	t     ttransport.Transport
	appID string

	// Nil when early broadcasts are disabled.
	early *rate.Limiter

	m *tmetrics.Metrics
}

// Config is the configuration for a [Broadcaster].
type Config struct {
	Transport ttransport.Transport
	AppID     string

	// Rate and burst for early broadcasts,
	// sent when the local connection set changes between periodic sends.
	// A zero EarlyLimit disables early broadcasts.
	EarlyLimit rate.Limit
	EarlyBurst int

	// Optional. If nil, metrics are discarded.
	Metrics *tmetrics.Metrics
}

// Trigger labels why a broadcast was sent.
type Trigger string

const (
	PeriodicTrigger Trigger = "periodic"
	EarlyTrigger    Trigger = "early"
)

// New returns a new Broadcaster.
// It panics if Transport is nil or AppID is empty.
func New(log *slog.Logger, cfg Config) *Broadcaster {
	var errs error
	if cfg.Transport == nil {
		errs = errors.Join(errs, errors.New("Config.Transport must not be nil"))
	}
	if cfg.AppID == "" {
		errs = errors.Join(errs, errors.New("Config.AppID must not be empty"))
	}
	if errs != nil {
		panic(errs)
	}

	m := cfg.Metrics
	if m == nil {
		m = tmetrics.Nop()
	}

	var early *rate.Limiter
	if cfg.EarlyLimit > 0 {
		burst := cfg.EarlyBurst
		if burst <= 0 {
			burst = 1
		}
		early = rate.NewLimiter(cfg.EarlyLimit, burst)
	}

	return &Broadcaster{
		log: log,

		t:     cfg.Transport,
		appID: cfg.AppID,

		early: early,

		m: m,
	}
}

// Broadcast sends the current connection set unconditionally.
func (b *Broadcaster) Broadcast(ctx context.Context) error {
	return b.send(ctx, PeriodicTrigger)
}

// BroadcastEarly sends the current connection set
// only if the early-broadcast limiter allows it.
// The returned bool reports whether a send was attempted.
func (b *Broadcaster) BroadcastEarly(ctx context.Context) (bool, error) {
	if b.early == nil {
		return false, nil
	}
	if !b.early.Allow() {
		b.log.Debug("Early broadcast suppressed by rate limit")
		return false, nil
	}
	return true, b.send(ctx, EarlyTrigger)
}

func (b *Broadcaster) send(ctx context.Context, trig Trigger) error {
	ci := tmsg.NewConnectionInfo(b.t.Address(), b.t.ActiveConnections())
	out, err := ci.Outbound(b.appID)
	if err != nil {
		b.m.BroadcastErrors.Inc()
		return err
	}

	if err := b.t.Broadcast(ctx, out); err != nil {
		b.m.BroadcastErrors.Inc()
		return fmt.Errorf("failed to broadcast connection info: %w", err)
	}

	b.m.Broadcasts.WithLabelValues(string(trig)).Inc()
	b.log.Debug(
		"Broadcast connection info",
		"trigger", trig,
		"n_connections", len(ci.ActiveConnections),
	)
	return nil
}
