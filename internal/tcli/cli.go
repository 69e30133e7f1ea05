package tcli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments.
// It returns the merged configuration,
// a boolean indicating if the program should exit cleanly,
// or an *ExitError.
//
// A config file named by -config is applied over the defaults first,
// and then every flag given explicitly overrides the file.
func Parse(args []string, output io.Writer) (*Config, bool, error) {
	fs := flag.NewFlagSet("topoview", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Usage = func() {
		fmt.Fprint(output, `
topoview - live topology view of a peer-to-peer network.

Usage:
  topoview [options]

Options:
`)
		fs.PrintDefaults()
	}

	def := DefaultConfig()

	configPath := fs.String("config", "", "Path to a YAML config file.")
	appID := fs.String("app-id", def.AppID, "Application ID for connection-info messages.")
	mode := fs.String("mode", def.Mode, "Network mode. Options: 'quic' or 'simulate'.")
	logLevel := fs.String("log-level", def.LogLevel, "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormat := fs.String("log-format", def.LogFormat, "Log output format. Options: 'text', 'json', 'pterm'.")
	renderer := fs.String("renderer", def.Renderer, "Renderer. Options: 'term', 'web', 'both', 'none'.")
	draw := fs.Bool("draw", def.Draw, "Start with drawing enabled.")
	detection := fs.String("change-detection", def.ChangeDetection, "Report change detection. Options: 'count', 'membership'.")
	webListen := fs.String("web", def.Web.Listen, "Listen address for the web renderer and /metrics.")
	quicListen := fs.String("listen", def.QUIC.Listen, "UDP listen address in quic mode.")
	advertise := fs.String("advertise", def.QUIC.Advertise, "Address announced to peers in quic mode. Defaults to the listen address.")
	peers := fs.String("peers", "", "Comma-separated UDP addresses of static peers in quic mode.")
	interval := fs.Duration("interval", 0, "Use a fixed broadcast interval instead of the adaptive policy.")
	simPeers := fs.Int("sim-peers", def.Simulate.Peers, "Number of simulated peers.")
	churn := fs.Duration("churn", def.Simulate.ChurnInterval, "Interval between simulated topology changes. 0 disables churn.")
	seed := fs.Uint64("seed", def.Simulate.Seed, "Random seed for simulated churn.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if fs.NArg() > 0 {
		return nil, false, &ExitError{
			Code:    2,
			Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(fs.Args(), " ")),
		}
	}

	cfg := def
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath, def)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}

	// Only flags that were given override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "app-id":
			cfg.AppID = *appID
		case "mode":
			cfg.Mode = *mode
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevel)
		case "log-format":
			cfg.LogFormat = strings.ToLower(*logFormat)
		case "renderer":
			cfg.Renderer = strings.ToLower(*renderer)
		case "draw":
			cfg.Draw = *draw
		case "change-detection":
			cfg.ChangeDetection = strings.ToLower(*detection)
		case "web":
			cfg.Web.Listen = *webListen
		case "listen":
			cfg.QUIC.Listen = *quicListen
		case "advertise":
			cfg.QUIC.Advertise = *advertise
		case "peers":
			cfg.QUIC.Peers = splitList(*peers)
		case "interval":
			cfg.Broadcast.Policy = "fixed"
			cfg.Broadcast.Interval = *interval
		case "sim-peers":
			cfg.Simulate.Peers = *simPeers
		case "churn":
			cfg.Simulate.ChurnInterval = *churn
		case "seed":
			cfg.Simulate.Seed = *seed
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return &cfg, false, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
