package manager

import (
	"sync/atomic"

	"github.com/dshills/switchyard/internal/event/dispatch"
)

type counters struct {
	fired      atomic.Uint64
	dispatched atomic.Uint64
	completed  atomic.Uint64
	errors     atomic.Uint64
	ticks      atomic.Uint64

	tasksStarted   atomic.Uint64
	tasksSuspended atomic.Uint64
	tasksResumed   atomic.Uint64
	tasksAbandoned atomic.Uint64
}

// Stats contains statistics for a root manager.
type Stats struct {
	// Fired is the number of events enqueued.
	Fired uint64

	// Dispatched is the number of events taken from the queue.
	Dispatched uint64

	// Completed is the number of events whose dispatch and notifications
	// finished.
	Completed uint64

	// Errors is the number of handler and task failures.
	Errors uint64

	// Ticks is the number of ticks run.
	Ticks uint64

	// TasksStarted is the number of tasks driven by dispatch.
	TasksStarted uint64

	// TasksSuspended is the number of times a task suspended.
	TasksSuspended uint64

	// TasksResumed is the number of times a task resumed.
	TasksResumed uint64

	// TasksAbandoned is the number of tasks dropped without resuming.
	TasksAbandoned uint64

	// QueueDepth is the number of events waiting for the next tick.
	QueueDepth int

	// Handlers holds handler execution statistics.
	Handlers dispatch.Stats
}

// Stats returns statistics for the root of m's tree.
func (m *Manager) Stats() Stats {
	c := m.Root().core
	return Stats{
		Fired:          c.stats.fired.Load(),
		Dispatched:     c.stats.dispatched.Load(),
		Completed:      c.stats.completed.Load(),
		Errors:         c.stats.errors.Load(),
		Ticks:          c.stats.ticks.Load(),
		TasksStarted:   c.stats.tasksStarted.Load(),
		TasksSuspended: c.stats.tasksSuspended.Load(),
		TasksResumed:   c.stats.tasksResumed.Load(),
		TasksAbandoned: c.stats.tasksAbandoned.Load(),
		QueueDepth:     c.queueLen(),
		Handlers:       c.executor.Stats(),
	}
}
