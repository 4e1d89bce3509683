// Package debugger provides a component that logs every dispatched event.
package debugger

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/logging"
	"github.com/dshills/switchyard/internal/manager"
)

// Priority is the priority of the debugger's handler. It runs before
// ordinary global handlers.
const Priority = 100

// Debugger logs events as they are dispatched. Error events are logged at
// error level with their traceback.
type Debugger struct {
	*manager.Manager

	logger *logging.Logger

	mu     sync.RWMutex
	ignore map[string]bool

	seen atomic.Uint64
}

// Option configures a Debugger.
type Option func(*Debugger)

// IgnoreEvents skips events with the given names.
func IgnoreEvents(names ...string) Option {
	return func(d *Debugger) {
		for _, n := range names {
			d.ignore[n] = true
		}
	}
}

// New creates a debugger writing to logger.
func New(logger *logging.Logger, opts ...Option) *Debugger {
	if logger == nil {
		logger = logging.Nop()
	}
	d := &Debugger{
		Manager: manager.New(manager.WithName("debugger")),
		logger:  logger.WithComponent("debugger"),
		ignore:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Handle("", d.onEvent, event.WithPriority(Priority), event.WithName("debugger"))
	return d
}

// Ignore adds names to the ignored set.
func (d *Debugger) Ignore(names ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range names {
		d.ignore[n] = true
	}
}

// Seen returns the number of events logged.
func (d *Debugger) Seen() uint64 {
	return d.seen.Load()
}

func (d *Debugger) onEvent(e *event.Event) (any, error) {
	d.mu.RLock()
	skip := d.ignore[e.Name]
	d.mu.RUnlock()
	if skip {
		return nil, nil
	}
	d.seen.Add(1)

	if e.Name == event.NameError {
		d.logError(e)
		return nil, nil
	}
	d.logger.Info("event", "event", e.String(), "key", e.Key().String(), "id", e.ID)
	return nil, nil
}

func (d *Debugger) logError(e *event.Event) {
	attrs := []any{"key", e.Key().String(), "id", e.ID}
	if kind, ok := e.Arg(0).(string); ok {
		attrs = append(attrs, "kind", kind)
	}
	if err, ok := e.Arg(1).(error); ok {
		attrs = append(attrs, "err", err)
	}
	if h, ok := e.Arg(3).(*event.Handler); ok && h != nil {
		attrs = append(attrs, "handler", h.String())
	}
	if tb, ok := e.Arg(2).(string); ok && tb != "" {
		attrs = append(attrs, "traceback", tb)
	}
	d.logger.Error("handler error", attrs...)
}
