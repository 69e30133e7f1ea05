package tcli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gordian-engine/topoview/tbroadcast"
	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/tmsg"
	"gopkg.in/yaml.v2"
)

// Config is the full command configuration.
// It can be loaded from a YAML file, and flags override individual fields.
type Config struct {
	AppID           string `yaml:"app_id"`
	Mode            string `yaml:"mode"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	Renderer        string `yaml:"renderer"`
	Draw            bool   `yaml:"draw"`
	ChangeDetection string `yaml:"change_detection"`

	Web       WebConfig       `yaml:"web"`
	QUIC      QUICConfig      `yaml:"quic"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Simulate  SimulateConfig  `yaml:"simulate"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type QUICConfig struct {
	Listen         string        `yaml:"listen"`
	Advertise      string        `yaml:"advertise"`
	Peers          []string      `yaml:"peers"`
	RedialInterval time.Duration `yaml:"redial_interval"`
}

type BroadcastConfig struct {
	// "adaptive" or "fixed".
	Policy string `yaml:"policy"`

	// Used by the adaptive policy.
	PerNode time.Duration `yaml:"per_node"`
	Min     time.Duration `yaml:"min"`
	Max     time.Duration `yaml:"max"`

	// Used by the fixed policy.
	Interval time.Duration `yaml:"interval"`

	// Zero disables early broadcasts.
	EarlyPerSecond float64 `yaml:"early_per_second"`
	EarlyBurst     int     `yaml:"early_burst"`
}

type SimulateConfig struct {
	Peers         int           `yaml:"peers"`
	ChurnInterval time.Duration `yaml:"churn_interval"`
	Seed          uint64        `yaml:"seed"`
}

// Modes and renderers accepted in [Config].
const (
	QUICMode     = "quic"
	SimulateMode = "simulate"

	TermRenderer = "term"
	WebRenderer  = "web"
	BothRenderer = "both"
	NoRenderer   = "none"
)

// DefaultConfig returns the configuration used for anything
// neither the config file nor flags set.
func DefaultConfig() Config {
	return Config{
		AppID:           tmsg.DefaultAppID,
		Mode:            SimulateMode,
		LogLevel:        "info",
		LogFormat:       "text",
		Renderer:        WebRenderer,
		Draw:            true,
		ChangeDetection: tgraph.CountChangeDetection.String(),

		Web: WebConfig{Listen: "127.0.0.1:8080"},

		QUIC: QUICConfig{
			Listen:         "0.0.0.0:9470",
			RedialInterval: 2 * time.Second,
		},

		Broadcast: BroadcastConfig{
			Policy:         "adaptive",
			PerNode:        tbroadcast.DefaultPerNode,
			Min:            tbroadcast.DefaultMinInterval,
			EarlyPerSecond: 1,
			EarlyBurst:     1,
		},

		Simulate: SimulateConfig{
			Peers:         8,
			ChurnInterval: 3 * time.Second,
			Seed:          1,
		},
	}
}

// LoadConfigFile overlays the YAML file at path onto base.
// Fields missing from the file keep their value from base.
func LoadConfigFile(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := base
	if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("error deserialising config file: %w", err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs error
	bad := func(format string, args ...any) {
		errs = errors.Join(errs, fmt.Errorf(format, args...))
	}

	if c.AppID == "" {
		bad("app_id must not be empty")
	}

	switch c.Mode {
	case QUICMode:
		if c.QUIC.Listen == "" {
			bad("quic.listen must be set in quic mode")
		}
	case SimulateMode:
		if c.Simulate.Peers < 1 {
			bad("simulate.peers must be at least 1")
		}
		if c.Simulate.ChurnInterval < 0 {
			bad("simulate.churn_interval must not be negative")
		}
	default:
		bad("invalid mode %q: must be %q or %q", c.Mode, QUICMode, SimulateMode)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		bad("invalid log_level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel)
	}

	switch c.LogFormat {
	case "text", "json", "pterm":
	default:
		bad("invalid log_format %q: must be 'text', 'json', or 'pterm'", c.LogFormat)
	}

	switch c.Renderer {
	case TermRenderer, NoRenderer:
	case WebRenderer, BothRenderer:
		if c.Web.Listen == "" {
			bad("web.listen must be set for the %s renderer", c.Renderer)
		}
	default:
		bad("invalid renderer %q: must be 'term', 'web', 'both', or 'none'", c.Renderer)
	}

	if _, ok := tgraph.ParseChangeDetection(c.ChangeDetection); !ok {
		bad("invalid change_detection %q: must be 'count' or 'membership'", c.ChangeDetection)
	}

	switch c.Broadcast.Policy {
	case "adaptive":
		if c.Broadcast.PerNode <= 0 {
			bad("broadcast.per_node must be positive")
		}
		if c.Broadcast.Max > 0 && c.Broadcast.Max < c.Broadcast.Min {
			bad("broadcast.max must not be less than broadcast.min")
		}
	case "fixed":
		if c.Broadcast.Interval <= 0 {
			bad("broadcast.interval must be positive for the fixed policy")
		}
	default:
		bad("invalid broadcast.policy %q: must be 'adaptive' or 'fixed'", c.Broadcast.Policy)
	}

	if c.Broadcast.EarlyPerSecond < 0 {
		bad("broadcast.early_per_second must not be negative")
	}

	return errs
}

// IntervalPolicy returns the broadcast interval policy described by c.
// c must be valid.
func (c BroadcastConfig) IntervalPolicy() tbroadcast.IntervalPolicy {
	if c.Policy == "fixed" {
		return tbroadcast.FixedInterval(c.Interval)
	}
	return tbroadcast.AdaptiveInterval{
		PerNode: c.PerNode,
		Min:     c.Min,
		Max:     c.Max,
	}
}
