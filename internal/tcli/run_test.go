package tcli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gordian-engine/topoview/internal/ttest"
	"github.com/stretchr/testify/require"
)

type recordingArea struct {
	mu   sync.Mutex
	last string
}

func (a *recordingArea) Update(text ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = text[0].(string)
}

func (a *recordingArea) Stop() error { return nil }

func (a *recordingArea) Last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func simConfig() Config {
	cfg := DefaultConfig()
	cfg.Web.Listen = "127.0.0.1:0"
	cfg.Simulate.Peers = 3
	cfg.Simulate.ChurnInterval = 0
	cfg.Broadcast.Policy = "fixed"
	cfg.Broadcast.Interval = 20 * time.Millisecond
	return cfg
}

func TestApp_simulateWithBothRenderers(t *testing.T) {
	t.Parallel()

	cfg := simConfig()
	cfg.Renderer = BothRenderer
	require.NoError(t, cfg.Validate())

	area := new(recordingArea)
	app := NewApp(ttest.NewLogger(t), cfg)
	app.termArea = area

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	addr := ttest.ReceiveSoon(t, app.webAddr)

	// Every simulated node eventually reports to the local viewer.
	ttest.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr.String() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return slices.Contains(strings.Split(string(b), "\n"), "topoview_graph_nodes 4")
	}, "local viewer sees all four nodes")

	ttest.Eventually(t, func() bool {
		return len(area.Last()) > 0
	}, "terminal renderer drew")

	cancel()
	require.NoError(t, ttest.ReceiveSoon(t, done))
}

func TestApp_quicWithoutRenderer(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = QUICMode
	cfg.QUIC.Listen = "127.0.0.1:0"
	cfg.Renderer = NoRenderer
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewApp(ttest.NewLogger(t), cfg).Run(ctx) }()

	ttest.NotSending(t, done)
	cancel()
	require.NoError(t, ttest.ReceiveSoon(t, done))
}

func TestMain_exitsOnHelp(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	require.NoError(t, Main(context.Background(), out, io.Discard, []string{"-h"}))
	require.Contains(t, out.String(), "Usage:")
}
