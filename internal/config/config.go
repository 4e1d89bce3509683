package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/switchyard/internal/logging"
)

// Config holds all switchyard settings.
type Config struct {
	Log      LogConfig      `toml:"log" yaml:"log"`
	Runtime  RuntimeConfig  `toml:"runtime" yaml:"runtime"`
	Scripts  []string       `toml:"scripts" yaml:"scripts"`
	Watch    WatchConfig    `toml:"watch" yaml:"watch"`
	Debugger DebuggerConfig `toml:"debugger" yaml:"debugger"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// RuntimeConfig configures the root run loop.
type RuntimeConfig struct {
	// PollInterval is the longest the loop sleeps while idle.
	PollInterval Duration `toml:"pollInterval" yaml:"pollInterval"`

	// DrainTimeout bounds the time spent draining after stop.
	DrainTimeout Duration `toml:"drainTimeout" yaml:"drainTimeout"`

	// DrainTicks bounds the number of ticks spent draining after stop.
	DrainTicks int `toml:"drainTicks" yaml:"drainTicks"`
}

// WatchConfig configures the file watcher component.
type WatchConfig struct {
	Paths   []string `toml:"paths" yaml:"paths"`
	Channel string   `toml:"channel" yaml:"channel"`
}

// DebuggerConfig configures the event debugger component.
type DebuggerConfig struct {
	Enabled      bool     `toml:"enabled" yaml:"enabled"`
	IgnoreEvents []string `toml:"ignoreEvents" yaml:"ignoreEvents"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
		Runtime: RuntimeConfig{
			PollInterval: Duration(100 * time.Millisecond),
			DrainTimeout: Duration(3 * time.Second),
			DrainTicks:   100,
		},
		Watch: WatchConfig{
			Channel: "watch",
		},
	}
}

// Validate checks the configuration for invalid values.
// The returned error wraps ErrValidationFailed.
func (c *Config) Validate() error {
	var errs []string
	check := func(cond bool, path, msg string, value any) {
		if !cond {
			errs = append(errs, (&ValidationError{Path: path, Message: msg, Value: value}).Error())
		}
	}

	check(logging.ValidLevel(c.Log.Level), "log.level", "must be debug, info, warn or error", c.Log.Level)
	format := strings.ToLower(c.Log.Format)
	check(format == logging.FormatText || format == logging.FormatJSON, "log.format", "must be text or json", c.Log.Format)
	check(c.Runtime.PollInterval > 0, "runtime.pollInterval", "must be positive", c.Runtime.PollInterval)
	check(c.Runtime.DrainTimeout >= 0, "runtime.drainTimeout", "must not be negative", c.Runtime.DrainTimeout)
	check(c.Runtime.DrainTicks >= 0, "runtime.drainTicks", "must not be negative", c.Runtime.DrainTicks)
	if len(c.Watch.Paths) > 0 {
		check(c.Watch.Channel != "" && c.Watch.Channel != "*", "watch.channel", "must name a channel", c.Watch.Channel)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(errs, "; "))
	}
	return nil
}

// Duration is a time.Duration that decodes from strings such as "100ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the duration formatted by time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
