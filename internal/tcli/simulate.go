package tcli

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/gordian-engine/topoview"
	"github.com/gordian-engine/topoview/tmemnet"
)

// LocalSimAddress is the address of the rendered node in a simulation.
const LocalSimAddress = "local"

// Simulation is an in-process network of headless viewers
// plus one local node whose transport the caller renders.
type Simulation struct {
	log *slog.Logger

	net   *tmemnet.Network
	local *tmemnet.Node

	addrs   []string
	viewers []*topoview.Viewer

	rng *rand.Rand
}

// NewSimulation joins the local node and n peers to a fresh network,
// connects them in a ring, and starts a viewer for every peer.
// The peers' viewers run until ctx is canceled.
//
// vcfg is used as the template for every peer viewer;
// its Transport and Metrics fields are replaced.
func NewSimulation(
	ctx context.Context, log *slog.Logger,
	n int, seed uint64, vcfg topoview.Config,
) (*Simulation, error) {
	s := &Simulation{
		log: log,
		net: tmemnet.New(),
		rng: rand.New(rand.NewPCG(seed, seed)),
	}

	local, err := s.net.Join(LocalSimAddress)
	if err != nil {
		return nil, err
	}
	s.local = local
	s.addrs = append(s.addrs, LocalSimAddress)

	for i := range n {
		addr := fmt.Sprintf("peer-%02d", i+1)
		node, err := s.net.Join(addr)
		if err != nil {
			return nil, err
		}
		s.addrs = append(s.addrs, addr)

		pcfg := vcfg
		pcfg.Transport = node
		pcfg.Metrics = nil
		s.viewers = append(s.viewers, topoview.New(ctx, log.With("sim_peer", addr), pcfg))
	}

	for i, a := range s.addrs {
		b := s.addrs[(i+1)%len(s.addrs)]
		if a == b {
			continue
		}
		if err := s.net.Connect(a, b); err != nil {
			return nil, fmt.Errorf("failed to connect initial ring: %w", err)
		}
	}

	log.Info("Simulation started", "n_peers", n, "seed", seed)
	return s, nil
}

// Local returns the transport of the node to render.
func (s *Simulation) Local() *tmemnet.Node {
	return s.local
}

// Network returns the underlying network.
func (s *Simulation) Network() *tmemnet.Network {
	return s.net
}

// Step flips the connection between one random pair of nodes.
// It returns the pair and whether they are now connected.
func (s *Simulation) Step() (a, b string, connected bool, err error) {
	i := s.rng.IntN(len(s.addrs))
	j := s.rng.IntN(len(s.addrs) - 1)
	if j >= i {
		j++
	}
	a, b = s.addrs[i], s.addrs[j]

	if s.net.Connected(a, b) {
		err = s.net.Disconnect(a, b)
		return a, b, false, err
	}
	err = s.net.Connect(a, b)
	return a, b, true, err
}

// Run steps the simulation every interval until ctx is canceled,
// then waits for the peers' viewers to stop.
// A zero interval leaves the topology static.
func (s *Simulation) Run(ctx context.Context, interval time.Duration) error {
	defer s.wait()

	if interval <= 0 || len(s.addrs) < 2 {
		<-ctx.Done()
		return context.Cause(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-ticker.C:
			a, b, connected, err := s.Step()
			if err != nil {
				return fmt.Errorf("simulation step failed: %w", err)
			}
			s.log.Debug("Simulated churn", "a", a, "b", b, "connected", connected)
		}
	}
}

func (s *Simulation) wait() {
	for _, v := range s.viewers {
		v.Wait()
	}
}
