package tcli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gordian-engine/topoview/internal/tcli"
	"github.com/gordian-engine/topoview/tbroadcast"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "topoview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestParse_defaults(t *testing.T) {
	t.Parallel()

	cfg, exit, err := tcli.Parse(nil, new(bytes.Buffer))
	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, tcli.DefaultConfig(), *cfg)
}

func TestParse_help(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	cfg, exit, err := tcli.Parse([]string{"-h"}, out)
	require.NoError(t, err)
	require.True(t, exit)
	require.Nil(t, cfg)
	require.Contains(t, out.String(), "Usage:")
}

func TestParse_unknownFlag(t *testing.T) {
	t.Parallel()

	_, _, err := tcli.Parse([]string{"-nope"}, new(bytes.Buffer))
	var exitErr *tcli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "flag provided but not defined")
}

func TestParse_invalidValuesReportedTogether(t *testing.T) {
	t.Parallel()

	_, _, err := tcli.Parse([]string{
		"-mode", "carrier-pigeon",
		"-renderer", "hologram",
		"-change-detection", "vibes",
	}, new(bytes.Buffer))

	var exitErr *tcli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Contains(t, exitErr.Message, "invalid mode")
	require.Contains(t, exitErr.Message, "invalid renderer")
	require.Contains(t, exitErr.Message, "invalid change_detection")
}

func TestParse_flagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
app_id: from-file
mode: quic
renderer: none
quic:
  listen: 127.0.0.1:9000
  peers: [127.0.0.1:9001]
  redial_interval: 5s
broadcast:
  per_node: 2s
  min: 1s
`)

	cfg, _, err := tcli.Parse([]string{
		"-config", path,
		"-app-id", "from-flag",
		"-peers", "127.0.0.1:9002, 127.0.0.1:9003",
	}, new(bytes.Buffer))
	require.NoError(t, err)

	require.Equal(t, "from-flag", cfg.AppID)
	require.Equal(t, tcli.QUICMode, cfg.Mode)
	require.Equal(t, tcli.NoRenderer, cfg.Renderer)
	require.Equal(t, "127.0.0.1:9000", cfg.QUIC.Listen)
	require.Equal(t, []string{"127.0.0.1:9002", "127.0.0.1:9003"}, cfg.QUIC.Peers)
	require.Equal(t, 5*time.Second, cfg.QUIC.RedialInterval)

	// Unset file fields keep their defaults.
	require.Equal(t, tcli.DefaultConfig().LogLevel, cfg.LogLevel)

	require.Equal(t, tbroadcast.AdaptiveInterval{
		PerNode: 2 * time.Second,
		Min:     time.Second,
	}, cfg.Broadcast.IntervalPolicy())
}

func TestParse_fixedInterval(t *testing.T) {
	t.Parallel()

	cfg, _, err := tcli.Parse([]string{"-interval", "750ms"}, new(bytes.Buffer))
	require.NoError(t, err)
	require.Equal(t, tbroadcast.FixedInterval(750*time.Millisecond), cfg.Broadcast.IntervalPolicy())
}

func TestLoadConfigFile_unknownField(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "no_such_field: 1\n")
	_, err := tcli.LoadConfigFile(path, tcli.DefaultConfig())
	require.Error(t, err)
}

func TestLoadConfigFile_missing(t *testing.T) {
	t.Parallel()

	_, err := tcli.LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"), tcli.DefaultConfig())
	require.ErrorContains(t, err, "error reading config file")
}
