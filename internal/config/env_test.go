package config

import (
	"errors"
	"testing"
	"time"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestEnvLoader_Apply(t *testing.T) {
	env := map[string]string{
		"TEST_LOG_LEVEL":              "debug",
		"TEST_RUNTIME_POLL_INTERVAL":  "10ms",
		"TEST_RUNTIME_DRAIN_TICKS":    "5",
		"TEST_SCRIPTS":                "a.lua, b.lua,,",
		"TEST_DEBUGGER_ENABLED":       "yes",
		"TEST_DEBUGGER_IGNORE_EVENTS": "tick,heartbeat",
	}

	cfg := Default()
	if err := NewEnvLoaderWithLookup("TEST_", mapLookup(env)).Apply(cfg); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Runtime.PollInterval.Std() != 10*time.Millisecond {
		t.Errorf("PollInterval = %v, want 10ms", cfg.Runtime.PollInterval)
	}
	if cfg.Runtime.DrainTicks != 5 {
		t.Errorf("DrainTicks = %d, want 5", cfg.Runtime.DrainTicks)
	}
	if len(cfg.Scripts) != 2 || cfg.Scripts[0] != "a.lua" || cfg.Scripts[1] != "b.lua" {
		t.Errorf("Scripts = %v, want [a.lua b.lua]", cfg.Scripts)
	}
	if !cfg.Debugger.Enabled {
		t.Error("Debugger.Enabled = false, want true")
	}
	if len(cfg.Debugger.IgnoreEvents) != 2 {
		t.Errorf("IgnoreEvents = %v", cfg.Debugger.IgnoreEvents)
	}
}

func TestEnvLoader_ApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad duration", map[string]string{"X_RUNTIME_DRAIN_TIMEOUT": "later"}},
		{"bad int", map[string]string{"X_RUNTIME_DRAIN_TICKS": "many"}},
		{"bad bool", map[string]string{"X_DEBUGGER_ENABLED": "perhaps"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewEnvLoaderWithLookup("X_", mapLookup(tt.env)).Apply(Default())
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Apply() = %v, want *ParseError", err)
			}
		})
	}
}

func TestEnvLoader_EnvName(t *testing.T) {
	l := NewEnvLoader(EnvPrefix)

	tests := []struct {
		path string
		want string
	}{
		{"log.level", "SWITCHYARD_LOG_LEVEL"},
		{"runtime.pollInterval", "SWITCHYARD_RUNTIME_POLL_INTERVAL"},
		{"debugger.ignoreEvents", "SWITCHYARD_DEBUGGER_IGNORE_EVENTS"},
		{"scripts", "SWITCHYARD_SCRIPTS"},
	}

	for _, tt := range tests {
		if got := l.EnvName(tt.path); got != tt.want {
			t.Errorf("EnvName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}

	// Every known setting round-trips through EnvName.
	for suffix, s := range settings {
		if got := l.EnvName(s.path); got != EnvPrefix+suffix {
			t.Errorf("EnvName(%q) = %q, want %q", s.path, got, EnvPrefix+suffix)
		}
	}
}
