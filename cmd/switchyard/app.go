package main

import (
	"errors"

	"github.com/dshills/switchyard/internal/config"
	"github.com/dshills/switchyard/internal/debugger"
	"github.com/dshills/switchyard/internal/logging"
	"github.com/dshills/switchyard/internal/manager"
	"github.com/dshills/switchyard/internal/script"
	"github.com/dshills/switchyard/internal/watch"
)

// app is an assembled component tree.
type app struct {
	root    *manager.Manager
	scripts []*script.Script
	watcher *watch.Watcher
	closers []func() error
}

// assemble builds the root manager and attaches the configured components.
// Extra script paths are loaded after the configured ones.
func assemble(cfg *config.Config, logger *logging.Logger, extra ...string) (*app, error) {
	a := &app{
		root: manager.New(
			manager.WithName("switchyard"),
			manager.WithLogger(logger),
			manager.WithPollInterval(cfg.Runtime.PollInterval.Std()),
			manager.WithDrain(cfg.Runtime.DrainTimeout.Std(), cfg.Runtime.DrainTicks),
		),
	}

	if cfg.Debugger.Enabled {
		debugger.New(logger, debugger.IgnoreEvents(cfg.Debugger.IgnoreEvents...)).Register(a.root)
	}

	paths := append(append([]string(nil), cfg.Scripts...), extra...)
	for _, path := range paths {
		s, err := script.Load(path, script.WithLogger(logger))
		if err != nil {
			_ = a.close()
			return nil, err
		}
		s.Register(a.root)
		a.scripts = append(a.scripts, s)
	}

	if len(cfg.Watch.Paths) > 0 {
		a.watcher = watch.New(cfg.Watch.Paths, watch.WithChannel(cfg.Watch.Channel))
		a.watcher.Register(a.root)
		a.closers = append(a.closers, a.watcher.Close)
	}
	return a, nil
}

// close releases the watcher and scripts.
func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	for _, s := range a.scripts {
		s.Close()
	}
	return errors.Join(errs...)
}

// shutdown closes a and logs any failure.
func (a *app) shutdown(logger *logging.Logger) {
	if err := a.close(); err != nil {
		logger.Warn("close", "err", err)
	}
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: rootCmd.ErrOrStderr(),
	})
}
