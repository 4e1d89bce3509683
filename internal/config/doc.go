// Package config provides the configuration system for switchyard.
//
// Configuration is resolved in three layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← SWITCHYARD_*
//	├─────────────────────────────┤
//	│  2. Config File             │  ← .toml, .yaml or .yml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// # Basic Usage
//
//	cfg, err := config.Load("switchyard.toml")
//	if err != nil {
//	    return err
//	}
//	interval := cfg.Runtime.PollInterval.Std()
//
// An empty path skips the file layer. A missing file is an error.
//
// # Environment Variables
//
// Variables are named after the dotted setting path, upper-cased, with
// dots and camel-case boundaries replaced by underscores:
//
//	SWITCHYARD_LOG_LEVEL=debug             → log.level
//	SWITCHYARD_RUNTIME_POLL_INTERVAL=50ms  → runtime.pollInterval
//	SWITCHYARD_SCRIPTS=a.lua,b.lua         → scripts
package config
