package manager

import (
	"errors"
	"slices"

	"github.com/dshills/switchyard/internal/event"
)

// Tick runs the tree's tick functions, dispatches the events queued before
// the tick started, then finishes completed events and resumes the tasks
// waiting on them. Tick on a non-root manager ticks its root.
func (m *Manager) Tick() {
	root := m.Root()
	if root != m {
		root.Tick()
		return
	}
	c := m.core
	c.stats.ticks.Add(1)

	m.runTicks()
	for _, e := range c.take() {
		m.dispatch(e)
	}
	m.settle()
}

func (m *Manager) runTicks() {
	c := m.core
	if c.ticksDirty.CompareAndSwap(true, false) {
		c.ticks = m.collectTicks()
	}
	for _, fn := range c.ticks {
		res := c.executor.Call(func() (any, error) {
			fn()
			return nil, nil
		})
		if res.IsPanic() {
			c.logger.Error("tick function panicked", "panic", res.PanicValue, "stack", res.Traceback())
		}
	}
}

// dispatch invokes the handlers resolved for e in order.
func (m *Manager) dispatch(e *event.Event) {
	c := m.core
	c.stats.dispatched.Add(1)

	f := &flight{event: e}
	c.track(f)
	defer func() { f.dispatched = true }()

	handlers := c.registry.Resolve(e.Key())
	if len(handlers) == 0 && e.Name == event.NameError {
		m.logUnhandled(e)
	}

	for _, h := range handlers {
		// A handler removed by an earlier handler of this dispatch is skipped.
		if !c.registry.Contains(h) {
			continue
		}
		f.last = h

		res := c.executor.Execute(h, e)
		if !res.IsSuccess() {
			if errors.Is(res.Err, ErrTerminate) {
				c.logger.Info("terminate requested", "event", e.Name, "handler", h.String())
				m.Stop()
				return
			}
			m.handlerFailed(f, h, res.Err, res.Traceback())
			continue
		}

		result := res.Value
		verdict := res.Value
		if t, ok := result.(*Task); ok {
			tv := m.startTask(t, h, e)
			result = tv
			verdict = nil
			if !tv.Errors() {
				verdict, _ = tv.Get()
			}
		}
		if result != nil {
			e.Value.Set(result)
		}

		if h.Filter && event.Truthy(verdict) {
			f.filtered = true
			return
		}
	}
}

// handlerFailed records err on the event's value and reports it.
func (m *Manager) handlerFailed(f *flight, h *event.Handler, err error, traceback string) {
	herr := &event.HandlerError{Handler: h, Event: f.event, Err: err}
	f.event.Value.SetError(herr)
	f.failed = true
	if f.err == nil {
		f.err = herr
	}
	m.reportError(f.event, h, err, traceback)
}

// reportError fires an error event for a failure while handling cause.
// Failures while handling an error event are logged instead.
func (m *Manager) reportError(cause *event.Event, h *event.Handler, err error, traceback string) {
	c := m.core
	c.stats.errors.Add(1)

	if cause != nil && cause.Name == event.NameError {
		c.logger.Error("error handler failed",
			"handler", describe(h),
			"err", err,
		)
		return
	}

	target := event.Any
	if cause != nil && cause.Target != "" {
		target = cause.Target
	}
	c.fire(event.Error(err, traceback, h), event.NewKey(target, event.NameError))
}

// logUnhandled logs an error event nobody handles.
func (m *Manager) logUnhandled(e *event.Event) {
	kind, _ := e.Arg(0).(string)
	err, _ := e.Arg(1).(error)
	traceback, _ := e.Arg(2).(string)
	h, _ := e.Arg(3).(*event.Handler)

	attrs := []any{"kind", kind, "err", err, "handler", describe(h)}
	if traceback != "" {
		attrs = append(attrs, "traceback", traceback)
	}
	m.core.logger.Error("unhandled error", attrs...)
}

// settle finishes events whose values resolved and resumes ready tasks
// until neither makes progress.
func (m *Manager) settle() {
	c := m.core
	for {
		progressed := false
		for _, f := range slices.Clone(c.active) {
			if f.dispatched && !f.finished && !f.event.Value.Pending() {
				m.finish(f)
				progressed = true
			}
		}
		if m.resumeReady() {
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

// finish fires the declared secondary notifications for f and completes it
// once there are none outstanding.
func (m *Manager) finish(f *flight) {
	f.finished = true
	e := f.event
	v := e.Value
	result, _ := v.Get()

	switch {
	case f.filtered:
		m.notify(f, e.Filter, event.SuffixFiltered, func() *event.Event {
			return event.Filtered(e, result)
		})
	case f.failed || v.Errors():
		err := f.err
		if err == nil {
			err = v.Err()
		}
		m.notify(f, e.Failure, event.SuffixFailure, func() *event.Event {
			return event.Failure(e, err)
		})
	default:
		m.notify(f, e.Success, event.SuffixSuccess, func() *event.Event {
			return event.Success(e, result)
		})
	}
	m.notify(f, e.End, event.SuffixEnd, func() *event.Event {
		return event.Ended(e, f.last, result)
	})

	if f.pending == 0 {
		m.complete(f)
	}
}

// notify fires one notification per target of n and counts it against f.
func (m *Manager) notify(f *flight, n *event.Notify, suffix string, build func() *event.Event) {
	c := m.core
	for _, key := range n.Targets(f.event, f.event.Name+suffix) {
		ne := build()
		c.fire(ne, key)
		c.notifications[ne] = f
		f.pending++
	}
}

// complete releases the event and wakes the tasks waiting on it. A
// completed notification may in turn complete its cause.
func (m *Manager) complete(f *flight) {
	c := m.core
	e := f.event
	c.untrack(f)
	c.stats.completed.Add(1)

	value := e.Value
	value.Done()
	e.Complete()

	c.waits = slices.DeleteFunc(c.waits, func(w *waiter) bool {
		if !w.matches(e) {
			return false
		}
		c.ready = append(c.ready, resumption{task: w.task, value: value})
		return true
	})

	if cause, ok := c.notifications[e]; ok {
		delete(c.notifications, e)
		cause.pending--
		if cause.pending == 0 && cause.finished {
			m.complete(cause)
		}
	}
}
