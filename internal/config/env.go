package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvLoader applies environment variables over a Config.
type EnvLoader struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvLoader creates a loader reading variables that start with prefix.
// The prefix should include the trailing underscore (e.g., "SWITCHYARD_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix, lookup: os.LookupEnv}
}

// NewEnvLoaderWithLookup creates a loader with a custom variable source.
func NewEnvLoaderWithLookup(prefix string, lookup func(string) (string, bool)) *EnvLoader {
	return &EnvLoader{prefix: prefix, lookup: lookup}
}

type envSetting struct {
	path  string
	apply func(c *Config, v string) error
}

// settings maps variable suffixes to config fields.
var settings = map[string]envSetting{
	"LOG_LEVEL":  {"log.level", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	"LOG_FORMAT": {"log.format", func(c *Config, v string) error { c.Log.Format = v; return nil }},
	"RUNTIME_POLL_INTERVAL": {"runtime.pollInterval", func(c *Config, v string) error {
		return c.Runtime.PollInterval.UnmarshalText([]byte(v))
	}},
	"RUNTIME_DRAIN_TIMEOUT": {"runtime.drainTimeout", func(c *Config, v string) error {
		return c.Runtime.DrainTimeout.UnmarshalText([]byte(v))
	}},
	"RUNTIME_DRAIN_TICKS": {"runtime.drainTicks", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Runtime.DrainTicks = n
		return nil
	}},
	"SCRIPTS":       {"scripts", func(c *Config, v string) error { c.Scripts = parseList(v); return nil }},
	"WATCH_PATHS":   {"watch.paths", func(c *Config, v string) error { c.Watch.Paths = parseList(v); return nil }},
	"WATCH_CHANNEL": {"watch.channel", func(c *Config, v string) error { c.Watch.Channel = v; return nil }},
	"DEBUGGER_ENABLED": {"debugger.enabled", func(c *Config, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		c.Debugger.Enabled = b
		return nil
	}},
	"DEBUGGER_IGNORE_EVENTS": {"debugger.ignoreEvents", func(c *Config, v string) error {
		c.Debugger.IgnoreEvents = parseList(v)
		return nil
	}},
}

// Apply overlays every set variable on cfg.
// Note: Empty string values are treated as valid values, not as unset.
func (l *EnvLoader) Apply(cfg *Config) error {
	for suffix, s := range settings {
		name := l.prefix + suffix
		val, ok := l.lookup(name)
		if !ok {
			continue
		}
		if err := s.apply(cfg, val); err != nil {
			return &ParseError{
				Path:    name,
				Message: fmt.Sprintf("setting %s: %v", s.path, err),
				Err:     err,
			}
		}
	}
	return nil
}

// EnvName returns the variable name for a dotted setting path.
func (l *EnvLoader) EnvName(path string) string {
	var b strings.Builder
	b.WriteString(l.prefix)
	for i, r := range path {
		switch {
		case r == '.':
			b.WriteByte('_')
		case r >= 'A' && r <= 'Z':
			if i > 0 && path[i-1] != '.' {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteString(strings.ToUpper(string(r)))
		}
	}
	return b.String()
}

// parseList splits a comma-separated list, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
