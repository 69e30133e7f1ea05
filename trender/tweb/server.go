// Package tweb serves the topology to browsers over socket.io.
//
// Connected pages receive a "graph" event with the whole graph on every redraw,
// a "status" event with the local node's summary,
// and a "particle" event for each particle.
// A page may emit "toggle-draw" to flip the shared draw switch;
// the new state is announced to every page as a "draw" event.
package tweb

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/trender"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zishang520/socket.io/v2/socket"
)

//go:embed index.html
var indexHTML []byte

// Event names exchanged with pages.
const (
	GraphEvent      = "graph"
	StatusEvent     = "status"
	ParticleEvent   = "particle"
	DrawEvent       = "draw"
	ToggleDrawEvent = "toggle-draw"
)

// Server is a [trender.Renderer] that forwards to socket.io clients.
type Server struct {
	log *slog.Logger

	io   *socket.Server
	opts *socket.ServerOptions

	sw *trender.Switch

	closeOnce sync.Once

	mu     sync.Mutex
	g      tgraph.Graph
	st     tgraph.Status
	hasAny bool
}

var _ trender.Renderer = (*Server)(nil)

// New returns a Server that flips sw when a page asks to toggle drawing.
// If sw is nil, toggle requests are ignored.
func New(log *slog.Logger, sw *trender.Switch) *Server {
	opts := socket.DefaultServerOptions()
	s := &Server{
		log:  log,
		io:   socket.NewServer(nil, opts),
		opts: opts,
		sw:   sw,
	}

	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		s.onConnection(client)
	})

	return s
}

func (s *Server) onConnection(client *socket.Socket) {
	log := s.log.With("client_id", client.Id())
	log.Debug("Page connected")

	client.On(ToggleDrawEvent, func(...any) {
		if s.sw == nil {
			return
		}
		on := s.sw.Toggle()
		log.Info("Toggled drawing", "draw", on)
		s.io.Emit(DrawEvent, on)
	})

	client.On("disconnect", func(reason ...any) {
		log.Debug("Page disconnected", "reason", reason)
	})

	if s.sw != nil {
		client.Emit(DrawEvent, s.sw.On())
	}

	s.mu.Lock()
	g, st, ok := cloneGraph(s.g), s.st, s.hasAny
	s.mu.Unlock()
	if ok {
		client.Emit(StatusEvent, st)
		client.Emit(GraphEvent, g)
	}
}

func (s *Server) Render(g tgraph.Graph, st tgraph.Status) {
	s.mu.Lock()
	s.g = g
	s.st = st
	s.hasAny = true
	s.mu.Unlock()

	// Emit a copy; s.g is what late joiners receive.
	s.io.Emit(StatusEvent, st)
	s.io.Emit(GraphEvent, cloneGraph(g))
}

func (s *Server) EmitParticle(e tgraph.Edge) {
	s.io.Emit(ParticleEvent, e)
}

// Handler returns the HTTP handler serving the page,
// the socket.io endpoint, /metrics from g, and /healthz.
// If g is nil, /metrics is not mounted.
func (s *Server) Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/socket.io/", s.io.ServeHandler(s.opts))

	if g != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	})

	return mux
}

// Serve serves h on ln until ctx is canceled,
// then shuts down the HTTP server and the socket.io server.
func (s *Server) Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.log.Info("Serving web renderer", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("web server stopped: %w", err)
	case <-ctx.Done():
	}

	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("Web server did not shut down cleanly", "err", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return context.Cause(ctx)
}

// Close disconnects every page and closes the socket.io server.
// It is safe to call more than once.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		s.io.Close(nil)
	})
}

func cloneGraph(g tgraph.Graph) tgraph.Graph {
	return tgraph.Graph{
		Nodes: slices.Clone(g.Nodes),
		Edges: slices.Clone(g.Edges),
	}
}
