package tcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/gordian-engine/topoview"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tquic"
	"github.com/gordian-engine/topoview/trender"
	"github.com/gordian-engine/topoview/trender/tterm"
	"github.com/gordian-engine/topoview/trender/tweb"
	"github.com/gordian-engine/topoview/ttransport"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// App is a configured topoview process.
type App struct {
	log *slog.Logger
	cfg Config

	// Where the terminal renderer draws.
	// Nil means the process's stdout via pterm.
	termArea tterm.Area

	// Set once the web listener is bound, for tests.
	webAddr chan net.Addr
}

// NewApp returns an App for cfg, which must be valid.
func NewApp(log *slog.Logger, cfg Config) *App {
	return &App{
		log:     log,
		cfg:     cfg,
		webAddr: make(chan net.Addr, 1),
	}
}

// Run runs until ctx is canceled or a component fails.
// Cancellation is a clean exit and returns nil.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	vcfg, err := a.viewerConfig()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var tr ttransport.Transport
	switch a.cfg.Mode {
	case QUICMode:
		t, closeUDP, err := a.startQUIC(gctx)
		if err != nil {
			return err
		}
		defer closeUDP()
		tr = t

	case SimulateMode:
		sim, err := NewSimulation(gctx, a.log.With("sys", "simulation"), a.cfg.Simulate.Peers, a.cfg.Simulate.Seed, vcfg)
		if err != nil {
			return fmt.Errorf("failed to start simulation: %w", err)
		}
		g.Go(func() error {
			return sim.Run(gctx, a.cfg.Simulate.ChurnInterval)
		})
		tr = sim.Local()
	}

	var teardownOnce sync.Once
	teardown := func() {
		teardownOnce.Do(func() {
			if err := tr.Teardown(); err != nil {
				a.log.Warn("Transport teardown failed", "err", err)
			}
		})
	}
	defer teardown()

	vcfg.Transport = tr
	vcfg.Metrics = reg
	v := topoview.New(gctx, a.log.With("sys", "viewer"), vcfg)
	defer v.Wait()

	sw := trender.NewSwitch(a.cfg.Draw)
	var rs []trender.Renderer

	if a.cfg.Renderer == TermRenderer || a.cfg.Renderer == BothRenderer {
		term, err := a.startTerm()
		if err != nil {
			cancel()
			return err
		}
		defer func() {
			if err := term.Stop(); err != nil {
				a.log.Debug("Failed to stop terminal area", "err", err)
			}
		}()
		rs = append(rs, term)
	}

	if a.cfg.Renderer == WebRenderer || a.cfg.Renderer == BothRenderer {
		ws := tweb.New(a.log.With("sys", "web"), sw)
		ln, err := net.Listen("tcp", a.cfg.Web.Listen)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to listen for web renderer: %w", err)
		}
		a.webAddr <- ln.Addr()
		g.Go(func() error {
			return ws.Serve(gctx, ln, ws.Handler(reg))
		})
		rs = append(rs, ws)
	}

	if len(rs) > 0 {
		g.Go(func() error {
			return trender.Follow(gctx, a.log.With("sys", "follow"), v, trender.Multi(rs...), sw)
		})
	}

	// Nothing else bounds the lifetime when there is no renderer or simulation.
	g.Go(func() error {
		<-gctx.Done()
		return context.Cause(gctx)
	})

	err = g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		a.log.Info("Shutting down")
		return nil
	}
	return err
}

func (a *App) viewerConfig() (topoview.Config, error) {
	detect, ok := tgraph.ParseChangeDetection(a.cfg.ChangeDetection)
	if !ok {
		return topoview.Config{}, fmt.Errorf("invalid change detection %q", a.cfg.ChangeDetection)
	}

	vcfg := topoview.Config{
		AppID:           a.cfg.AppID,
		Interval:        a.cfg.Broadcast.IntervalPolicy(),
		ChangeDetection: detect,

		EarlyBroadcastLimit:   rate.Limit(a.cfg.Broadcast.EarlyPerSecond),
		EarlyBroadcastBurst:   a.cfg.Broadcast.EarlyBurst,
		DisableEarlyBroadcast: a.cfg.Broadcast.EarlyPerSecond == 0,
	}
	return vcfg, nil
}

func (a *App) startQUIC(ctx context.Context) (*tquic.Transport, func(), error) {
	ua, err := net.ResolveUDPAddr("udp", a.cfg.QUIC.Listen)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve quic listen address: %w", err)
	}
	uc, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}

	t, err := tquic.New(ctx, a.log.With("sys", "quic"), tquic.Config{
		UDPConn:        uc,
		AdvertiseAddr:  a.cfg.QUIC.Advertise,
		Peers:          a.cfg.QUIC.Peers,
		RedialInterval: a.cfg.QUIC.RedialInterval,
	})
	if err != nil {
		_ = uc.Close()
		return nil, nil, err
	}

	return t, func() { _ = uc.Close() }, nil
}

func (a *App) startTerm() (*tterm.Renderer, error) {
	if a.termArea != nil {
		return tterm.New(a.log.With("sys", "term"), a.termArea), nil
	}
	return tterm.Start(a.log.With("sys", "term"))
}

// Main parses args, builds the logger, and runs the App until ctx is canceled.
// Logs go to logW; usage and errors from parsing go to outW.
func Main(ctx context.Context, outW, logW io.Writer, args []string) error {
	cfg, shouldExit, err := Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	log := NewLogger(cfg.LogLevel, cfg.LogFormat, logW)
	log.Info(
		"Starting topoview",
		"mode", cfg.Mode,
		"renderer", cfg.Renderer,
		"app_id", cfg.AppID,
	)

	return NewApp(log, *cfg).Run(ctx)
}
