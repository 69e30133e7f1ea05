package tquic

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordian-engine/topoview/ttransport"
	"github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"
)

// Transport is a QUIC-backed [ttransport.Transport].
type Transport struct {
	log *slog.Logger

	self string

	qt       *quic.Transport
	ql       *quic.Listener
	tlsConf  *tls.Config
	quicConf *quic.Config

	hub  *ttransport.Hub
	seen *seenCache

	// Unique per process, so IDs from a restarted node do not collide
	// with its earlier messages still held in peers' seen caches.
	idPrefix string
	seq      atomic.Uint64

	sendQueueSize int

	mu       sync.Mutex
	peers    map[string]*peer
	tornDown bool

	cancel context.CancelCauseFunc
	wg     sync.WaitGroup
}

type peer struct {
	addr     string
	qc       *quic.Conn
	outbound bool
	out      chan frame
}

var _ ttransport.Transport = (*Transport)(nil)

var errTeardown = errors.New("transport torn down")

// New starts listening on cfg.UDPConn and dialing cfg.Peers.
// The ctx parameter bounds the background work;
// call [*Transport.Teardown] to stop it and close every connection.
//
// New returns runtime errors that happen during initialization.
// Configuration errors cause a panic.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*Transport, error) {
	cfg.validate()

	tlsConf := cfg.TLS
	if tlsConf == nil {
		var err error
		tlsConf, err = GenerateTLSConfig()
		if err != nil {
			return nil, err
		}
	}
	tlsConf = customizeTLSConfig(tlsConf)

	quicConf := cfg.QUIC
	if quicConf == nil {
		quicConf = DefaultQUICConfig()
	}

	self := cfg.AdvertiseAddr
	if self == "" {
		self = cfg.UDPConn.LocalAddr().String()
	}

	redial := cfg.RedialInterval
	if redial == 0 {
		redial = DefaultRedialInterval
	}
	seenSize := cfg.SeenCacheSize
	if seenSize == 0 {
		seenSize = DefaultSeenCacheSize
	}
	queueSize := cfg.SendQueueSize
	if queueSize == 0 {
		queueSize = DefaultSendQueueSize
	}

	ctx, cancel := context.WithCancelCause(ctx)

	// Using a quic Transport directly, rather than quic.Listen,
	// lets the same socket both listen and dial.
	qt := &quic.Transport{
		Conn: cfg.UDPConn,
	}

	ql, err := qt.Listen(tlsConf, quicConf)
	if err != nil {
		cancel(err)
		return nil, fmt.Errorf("failed to set up QUIC listener: %w", err)
	}

	t := &Transport{
		log: log,

		self: self,

		qt:       qt,
		ql:       ql,
		tlsConf:  tlsConf,
		quicConf: quicConf,

		hub:  ttransport.NewHub(),
		seen: newSeenCache(seenSize),

		idPrefix: strconv.FormatInt(time.Now().UnixNano(), 36),

		sendQueueSize: queueSize,

		peers: map[string]*peer{},

		cancel: cancel,
	}

	t.wg.Add(1)
	go t.acceptConnections(ctx)

	for _, p := range cfg.Peers {
		t.wg.Add(1)
		go t.keepDialing(ctx, p, redial)
	}

	log.Info(
		"QUIC transport started",
		"listen_addr", cfg.UDPConn.LocalAddr().String(),
		"advertise_addr", self,
		"n_static_peers", len(cfg.Peers),
	)

	return t, nil
}

func (t *Transport) Address() string {
	return t.self
}

// ActiveConnections returns the handshaken peers sorted by advertised address.
func (t *Transport) ActiveConnections() []ttransport.Connection {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ttransport.Connection, 0, len(t.peers))
	for a := range t.peers {
		out = append(out, ttransport.Connection{Address: a})
	}
	slices.SortFunc(out, func(a, b ttransport.Connection) int {
		return strings.Compare(a.Address, b.Address)
	})
	return out
}

func (t *Transport) Subscribe() *ttransport.Subscription {
	return t.hub.Subscribe()
}

// Broadcast queues msg for every connected peer and echoes it locally.
// Delivery is best effort:
// frames for a peer whose send queue is full are dropped.
func (t *Transport) Broadcast(ctx context.Context, out ttransport.Outbound) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}

	t.mu.Lock()
	if t.tornDown {
		t.mu.Unlock()
		return ttransport.ErrTornDown
	}
	peers := t.peerList()
	t.mu.Unlock()

	msg := ttransport.Message{
		Outbound: out,
		ID:       t.idPrefix + "-" + strconv.FormatUint(t.seq.Add(1), 10),
		Address:  t.self,
	}
	t.seen.Add(msg.Address, msg.ID)

	t.hub.Publish(ttransport.Event{
		Kind:    ttransport.BroadcastMessageEvent,
		Message: msg,
	})

	f := frame{Kind: messageFrame, Message: toWire(msg)}
	for _, p := range peers {
		t.enqueue(p, f)
	}
	return nil
}

// Teardown closes every connection, stops the listener and dialers,
// and closes every subscription.
// The UDP socket is left open.
func (t *Transport) Teardown() error {
	t.mu.Lock()
	if t.tornDown {
		t.mu.Unlock()
		return ttransport.ErrTornDown
	}
	t.tornDown = true
	peers := t.peerList()
	t.mu.Unlock()

	t.cancel(errTeardown)

	for _, p := range peers {
		_ = p.qc.CloseWithError(closeTeardownCode, "teardown")
	}

	var errs error
	if err := t.ql.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close listener: %w", err))
	}

	t.wg.Wait()

	if err := t.qt.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to close QUIC transport: %w", err))
	}

	t.hub.Close()
	return errs
}

// peerList must be called with t.mu held.
func (t *Transport) peerList() []*peer {
	out := make([]*peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	return out
}

func (t *Transport) enqueue(p *peer, f frame) {
	select {
	case p.out <- f:
	default:
		t.log.Debug("Dropping frame for slow peer", "peer", p.addr)
	}
}

func (t *Transport) acceptConnections(ctx context.Context) {
	defer t.wg.Done()

	for {
		qc, err := t.ql.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				t.log.Info("Stopped accepting connections", "err", err)
			}
			return
		}

		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.handshake(ctx, qc, false)
		}()
	}
}

// keepDialing dials target whenever it is not connected,
// waiting interval between attempts.
func (t *Transport) keepDialing(ctx context.Context, target string, interval time.Duration) {
	defer t.wg.Done()

	log := t.log.With("target", target)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if qc := t.dial(ctx, log, target); qc != nil {
			t.handshake(ctx, qc, true)
		}

		timer.Reset(interval)
	}
}

// dial returns a new connection to target,
// or nil if it is already connected or the dial failed.
func (t *Transport) dial(ctx context.Context, log *slog.Logger, target string) *quic.Conn {
	ua, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		log.Warn("Failed to resolve peer address", "err", err)
		return nil
	}

	if t.connectedTo(ua) {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, frameTimeout)
	defer cancel()

	qc, err := t.qt.Dial(dialCtx, ua, t.tlsConf, t.quicConf)
	if err != nil {
		if ctx.Err() == nil {
			log.Debug("Failed to dial peer", "err", err)
		}
		return nil
	}
	return qc
}

// connectedTo reports whether any handshaken peer's remote address is ua.
func (t *Transport) connectedTo(ua *net.UDPAddr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.peers {
		if ra, ok := p.qc.RemoteAddr().(*net.UDPAddr); ok &&
			ra.Port == ua.Port && ra.IP.Equal(ua.IP) {
			return true
		}
	}
	return false
}

// handshake exchanges hello frames on qc and registers the peer.
func (t *Transport) handshake(ctx context.Context, qc *quic.Conn, outbound bool) {
	hctx, cancel := context.WithTimeout(ctx, frameTimeout)
	defer cancel()

	var remote string
	g, gctx := errgroup.WithContext(hctx)
	g.Go(func() error {
		return writeFrame(gctx, qc, frame{Kind: helloFrame, Hello: t.self})
	})
	g.Go(func() error {
		f, err := readFrame(gctx, qc)
		if err != nil {
			return err
		}
		if f.Kind != helloFrame || f.Hello == "" {
			return UnexpectedFrameError{Got: f.Kind, Want: helloFrame}
		}
		remote = f.Hello
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() == nil {
			t.log.Info(
				"Dropping connection",
				"err", HandshakeError{Remote: qc.RemoteAddr().String(), Err: err},
			)
		}
		_ = qc.CloseWithError(closeHandshakeCode, "handshake failed")
		return
	}

	t.register(ctx, remote, qc, outbound)
}

// register adds a handshaken connection,
// resolving duplicate connections to the same peer.
func (t *Transport) register(ctx context.Context, remote string, qc *quic.Conn, outbound bool) {
	if remote == t.self {
		t.log.Warn("Closing connection to self", "remote_addr", qc.RemoteAddr().String())
		_ = qc.CloseWithError(closeSelfCode, "connected to self")
		return
	}

	p := &peer{
		addr:     remote,
		qc:       qc,
		outbound: outbound,
		out:      make(chan frame, t.sendQueueSize),
	}

	t.mu.Lock()
	if t.tornDown {
		t.mu.Unlock()
		_ = qc.CloseWithError(closeTeardownCode, "teardown")
		return
	}

	existing, dup := t.peers[remote]
	if dup && !t.prefer(p, existing) {
		t.mu.Unlock()
		t.log.Debug("Closing duplicate connection", "peer", remote)
		_ = qc.CloseWithError(closeDuplicateCode, "duplicate connection")
		return
	}
	t.peers[remote] = p
	t.mu.Unlock()

	if dup {
		// The replaced connection is no longer registered,
		// so its reader will not report a destroyed connection.
		t.log.Debug("Replacing duplicate connection", "peer", remote)
		_ = existing.qc.CloseWithError(closeDuplicateCode, "duplicate connection")
	} else {
		t.log.Info("Peer connected", "peer", remote, "outbound", outbound)
		t.hub.Publish(ttransport.Event{
			Kind: ttransport.ConnectionEvent,
			Conn: ttransport.Connection{Address: remote},
		})
	}

	t.wg.Add(2)
	go t.sendFrames(ctx, p)
	go t.receiveFrames(ctx, p)
}

// prefer reports whether candidate should replace existing.
// Both ends must agree on which of two simultaneous connections survives,
// so the connection dialed by the lower address wins.
func (t *Transport) prefer(candidate, existing *peer) bool {
	dialer := func(p *peer) string {
		if p.outbound {
			return t.self
		}
		return p.addr
	}
	return dialer(candidate) < dialer(existing)
}

func (t *Transport) sendFrames(ctx context.Context, p *peer) {
	defer t.wg.Done()

	connCtx := p.qc.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-connCtx.Done():
			return
		case f := <-p.out:
			if err := writeFrame(connCtx, p.qc, f); err != nil {
				t.log.Debug("Failed to send frame", "peer", p.addr, "err", err)
			}
		}
	}
}

func (t *Transport) receiveFrames(ctx context.Context, p *peer) {
	defer t.wg.Done()
	defer t.unregister(p)

	for {
		r, setDeadline, err := acceptFrameStream(ctx, p.qc)
		if err != nil {
			if ctx.Err() == nil {
				t.log.Debug("Connection closed", "peer", p.addr, "err", err)
			}
			return
		}

		f, err := decodeFrame(r, setDeadline)
		if err != nil {
			t.log.Debug("Dropping bad frame", "peer", p.addr, "err", err)
			continue
		}

		if f.Kind != messageFrame || f.Message == nil {
			t.log.Debug("Dropping unexpected frame", "peer", p.addr, "kind", f.Kind)
			continue
		}

		t.handleMessage(p, f)
	}
}

func (t *Transport) handleMessage(from *peer, f frame) {
	msg := f.Message.message()
	if !t.seen.Add(msg.Address, msg.ID) {
		return
	}

	t.hub.Publish(ttransport.Event{
		Kind:    ttransport.MessageEvent,
		Message: msg,
	})

	t.mu.Lock()
	peers := t.peerList()
	t.mu.Unlock()

	for _, p := range peers {
		if p == from || p.addr == msg.Address {
			continue
		}
		t.enqueue(p, f)
	}
}

func (t *Transport) unregister(p *peer) {
	_ = p.qc.CloseWithError(closeTeardownCode, "connection closed")

	t.mu.Lock()
	current := t.peers[p.addr] == p
	if current {
		delete(t.peers, p.addr)
	}
	tornDown := t.tornDown
	t.mu.Unlock()

	if !current || tornDown {
		return
	}

	t.log.Info("Peer disconnected", "peer", p.addr)
	t.hub.Publish(ttransport.Event{
		Kind: ttransport.DestroyConnectionEvent,
		Conn: ttransport.Connection{Address: p.addr},
	})
}
