package manager

import (
	"errors"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/event/dispatch"
)

// Task is a handler body that can suspend until an event completes.
//
// A task runs on its own goroutine, but the loop blocks while it runs and
// the task blocks while the loop runs, so at most one of them executes at
// any time. Wait, WaitFor and Call must only be called from the task's own
// function.
type Task struct {
	owner *Manager
	fn    func(t *Task) (any, error)
	value *event.Value

	handler *event.Handler
	cause   *event.Event

	resume chan *event.Value
	yield  chan struct{}

	started   bool
	finished  bool
	abandoned atomic.Bool
	result    dispatch.Result
}

// Spawn creates an unstarted task owned by m. Return it from a handler to
// have dispatch drive it; the handler's result is the task's result.
func (m *Manager) Spawn(fn func(t *Task) (any, error)) *Task {
	if fn == nil {
		panic(event.ErrNilHandler)
	}
	return &Task{
		owner:  m,
		fn:     fn,
		value:  event.NewValue(),
		resume: make(chan *event.Value),
		yield:  make(chan struct{}),
	}
}

// Owner returns the component that spawned the task.
func (t *Task) Owner() *Manager {
	return t.owner
}

// Value returns the value the task's result is recorded on.
func (t *Task) Value() *event.Value {
	return t.value
}

// Cause returns the event whose dispatch started the task.
func (t *Task) Cause() *event.Event {
	return t.cause
}

// Abandoned reports whether the task was dropped without resuming.
func (t *Task) Abandoned() bool {
	return t.abandoned.Load()
}

// Fire fires e from the task's owner.
func (t *Task) Fire(e *event.Event, opts ...FireOption) *event.Value {
	return t.owner.Fire(e, opts...)
}

// Wait suspends until an event named name completes at target. An empty
// target or event.Any matches any target. It returns the event's value.
func (t *Task) Wait(name, target string) *event.Value {
	return t.suspend(&waiter{name: name, target: target})
}

// WaitFor suspends until e completes and returns its value. It returns
// immediately if e already completed, and ErrNotFired if e was never fired.
func (t *Task) WaitFor(e *event.Event) (*event.Value, error) {
	if !e.InFlight() {
		if e.Value == nil {
			return nil, ErrNotFired
		}
		return e.Value, nil
	}
	return t.suspend(&waiter{event: e}), nil
}

// Call fires e, suspends until it completes, and returns its dereferenced
// value and the first error its handlers recorded.
func (t *Task) Call(e *event.Event, opts ...FireOption) (any, error) {
	v := t.Fire(e, opts...)
	if _, err := t.WaitFor(e); err != nil {
		return nil, err
	}
	result, _ := v.Get()
	return result, v.Err()
}

// suspend parks the task on w and hands control back to the loop. An
// abandoned task never returns from suspend.
func (t *Task) suspend(w *waiter) *event.Value {
	c := t.owner.Root().core
	w.task = t
	c.waits = append(c.waits, w)
	c.stats.tasksSuspended.Add(1)

	t.yield <- struct{}{}
	v, ok := <-t.resume
	if !ok {
		runtime.Goexit()
	}
	return v
}

// run executes the task body on its goroutine.
func (t *Task) run(x *dispatch.Executor) {
	defer func() {
		if t.abandoned.Load() {
			return
		}
		t.finished = true
		t.yield <- struct{}{}
	}()
	t.result = x.Call(func() (any, error) {
		return t.fn(t)
	})
}

// waiter is a suspended task's wait condition.
type waiter struct {
	task *Task

	// event is set for WaitFor; otherwise name and target are matched.
	event  *event.Event
	name   string
	target string
}

func (w *waiter) matches(e *event.Event) bool {
	if w.event != nil {
		return w.event == e
	}
	if w.name != e.Name {
		return false
	}
	return w.target == "" || w.target == event.Any || e.Target == event.Any || w.target == e.Target
}

type resumption struct {
	task  *Task
	value *event.Value
}

// startTask drives t until it first suspends or finishes and returns the
// value its result will be recorded on.
func (m *Manager) startTask(t *Task, h *event.Handler, cause *event.Event) *event.Value {
	if t.started {
		return t.value
	}
	t.started = true
	t.handler = h
	t.cause = cause
	m.core.stats.tasksStarted.Add(1)

	go t.run(m.core.executor)
	<-t.yield
	if t.finished {
		m.finishTask(t)
	}
	return t.value
}

// resumeReady resumes every task whose wait was satisfied. It reports
// whether there were any.
func (m *Manager) resumeReady() bool {
	c := m.core
	if len(c.ready) == 0 {
		return false
	}
	batch := c.ready
	c.ready = nil

	for _, r := range batch {
		t := r.task
		if t.abandoned.Load() {
			continue
		}
		if t.owner.Root() != m {
			m.abandon(t)
			continue
		}
		c.stats.tasksResumed.Add(1)
		t.resume <- r.value
		<-t.yield
		if t.finished {
			m.finishTask(t)
		}
	}
	return true
}

// finishTask records a finished task's result on its value.
func (m *Manager) finishTask(t *Task) {
	res := t.result
	if res.IsSuccess() {
		t.value.Set(res.Value)
		return
	}
	if errors.Is(res.Err, ErrTerminate) {
		m.Stop()
		t.value.Set(nil)
		return
	}
	t.value.SetError(&event.HandlerError{Handler: t.handler, Event: t.cause, Err: res.Err})
	m.reportError(t.cause, t.handler, res.Err, res.Traceback())
}

// abandonTasks drops the parked tasks owned by any of owners.
func (m *Manager) abandonTasks(owners []*Manager) {
	c := m.core
	owned := func(t *Task) bool {
		return slices.Contains(owners, t.owner)
	}

	var dropped []*Task
	c.waits = slices.DeleteFunc(c.waits, func(w *waiter) bool {
		if owned(w.task) {
			dropped = append(dropped, w.task)
			return true
		}
		return false
	})
	c.ready = slices.DeleteFunc(c.ready, func(r resumption) bool {
		if owned(r.task) {
			dropped = append(dropped, r.task)
			return true
		}
		return false
	})
	for _, t := range dropped {
		m.abandon(t)
	}
}

// abandon releases a parked task's goroutine without resuming its body and
// records ErrTaskCancelled on its value.
func (m *Manager) abandon(t *Task) {
	if t.abandoned.Swap(true) {
		return
	}
	m.core.stats.tasksAbandoned.Add(1)
	m.core.logger.Debug("task abandoned", "owner", t.owner.String(), "handler", describe(t.handler))
	t.value.SetError(ErrTaskCancelled)
	close(t.resume)
}
