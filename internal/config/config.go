// Package config defines the run configuration read by cmd/rtdevs.
//
// A configuration names the topology and its parameters, the run mode
// (virtual or paced), the pacing strategy and board, and where traces go.
// Load starts from Default, so a file only needs the fields it changes.
package config

import (
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/comalice/rtdevs/models"
)

// Run modes.
const (
	ModeVirtual  = "virtual"
	ModeRealtime = "realtime"
)

// Pacing strategies.
const (
	StrategyPoll      = "poll"
	StrategySleep     = "sleep"
	StrategyInterrupt = "interrupt"
	StrategyDelay     = "delay"
)

// Boards.
const (
	BoardSim  = "sim"
	BoardHost = "host"
)

// Config is the complete run configuration.
type Config struct {
	Version  string       `yaml:"version,omitempty"`
	Topology string       `yaml:"topology"`
	Mode     string       `yaml:"mode"`
	Start    float64      `yaml:"start"`
	Horizon  float64      `yaml:"horizon"`
	Model    ModelConfig  `yaml:"model"`
	Pacing   PacingConfig `yaml:"pacing"`
	Board    string       `yaml:"board"`
	Button   ButtonConfig `yaml:"button"`
	Trace    TraceConfig  `yaml:"trace"`
	Log      LogConfig    `yaml:"log"`
}

// ModelConfig holds the parameters of the reference models.
type ModelConfig struct {
	Period          float64 `yaml:"period"`
	ProcessingTime  float64 `yaml:"processing_time"`
	ObservationTime float64 `yaml:"observation_time"`
	// BusyLED mirrors the processor state on an output pin.
	BusyLED bool `yaml:"busy_led"`
}

// PacingConfig selects and tunes the pacer.
type PacingConfig struct {
	Strategy       string        `yaml:"strategy"`
	TicksPerSecond uint64        `yaml:"ticks_per_second"`
	TimeScale      float64       `yaml:"time_scale"`
	MaxJitter      time.Duration `yaml:"max_jitter"`
	Debounce       time.Duration `yaml:"debounce"`
}

// ButtonConfig describes the exogenous job source of the PT topology.
type ButtonConfig struct {
	// Presses are the physical times, in seconds from the start of the run,
	// at which the button is pressed.
	Presses  []float64 `yaml:"presses"`
	Priority int       `yaml:"priority"`
}

// TraceConfig lists the trace outputs. Empty paths are disabled.
type TraceConfig struct {
	SQLite string `yaml:"sqlite"`
	YAML   string `yaml:"yaml"`
	DOT    string `yaml:"dot"`
}

// LogConfig configures the diagnostic sink.
type LogConfig struct {
	// Output is "stderr", "stdout", "discard" or a file path.
	Output string `yaml:"output"`
	Prefix string `yaml:"prefix"`
}

// Default returns the classic GPT experiment run in virtual time.
func Default() *Config {
	p := models.DefaultParams()
	return &Config{
		Topology: models.TopologyGPT,
		Mode:     ModeVirtual,
		Horizon:  15,
		Model: ModelConfig{
			Period:          p.Period,
			ProcessingTime:  p.ProcessingTime,
			ObservationTime: p.ObservationTime,
		},
		Pacing: PacingConfig{
			Strategy:       StrategySleep,
			TicksPerSecond: 32768,
			TimeScale:      1,
			Debounce:       time.Second,
		},
		Board:  BoardSim,
		Button: ButtonConfig{Priority: 2},
		Log:    LogConfig{Output: "stderr"},
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Topology {
	case models.TopologyGPT, models.TopologyEF, models.TopologyEFP, models.TopologyPT:
	default:
		return errors.Errorf("unknown topology %q", c.Topology)
	}
	switch c.Mode {
	case ModeVirtual, ModeRealtime:
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}
	if c.Horizon <= c.Start {
		return errors.Errorf("horizon %v must be after start %v", c.Horizon, c.Start)
	}
	if err := c.Model.validate(c.Topology); err != nil {
		return errors.Wrap(err, "model")
	}
	if c.Mode == ModeRealtime {
		if err := c.Pacing.validate(); err != nil {
			return errors.Wrap(err, "pacing")
		}
		switch c.Board {
		case BoardSim, BoardHost:
		default:
			return errors.Errorf("unknown board %q", c.Board)
		}
		if c.Pacing.Strategy == StrategyInterrupt && c.Topology != models.TopologyPT {
			return errors.Errorf("strategy %q needs the %q topology", StrategyInterrupt, models.TopologyPT)
		}
	}
	for i, p := range c.Button.Presses {
		if p < 0 {
			return errors.Errorf("button press %d at negative time %v", i, p)
		}
	}
	return nil
}

func (m ModelConfig) validate(topology string) error {
	if topology != models.TopologyPT && m.Period <= 0 {
		return errors.New("period must be positive")
	}
	if topology != models.TopologyEF && m.ProcessingTime <= 0 {
		return errors.New("processing_time must be positive")
	}
	if m.ObservationTime <= 0 {
		return errors.New("observation_time must be positive")
	}
	return nil
}

func (p PacingConfig) validate() error {
	switch p.Strategy {
	case StrategyPoll, StrategySleep, StrategyInterrupt, StrategyDelay:
	default:
		return errors.Errorf("unknown strategy %q", p.Strategy)
	}
	if p.TicksPerSecond == 0 {
		return errors.New("ticks_per_second must be positive")
	}
	if p.TimeScale <= 0 {
		return errors.New("time_scale must be positive")
	}
	if p.MaxJitter < 0 {
		return errors.New("max_jitter must not be negative")
	}
	return nil
}

// Params converts the model section for models.New.
func (m ModelConfig) Params() models.Params {
	return models.Params{
		Period:          m.Period,
		ProcessingTime:  m.ProcessingTime,
		ObservationTime: m.ObservationTime,
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Fingerprint identifies the configuration of a run: the version given in
// the file, else the first bytes of the SHA-256 of its canonical YAML form.
func (c *Config) Fingerprint() string {
	if c.Version != "" {
		return c.Version
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return "unversioned"
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}
