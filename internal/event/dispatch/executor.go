package dispatch

import (
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/dshills/switchyard/internal/event"
)

// Executor runs handlers with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler

	executed    atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		panicHandler: defaultPanicHandler,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the panic handler for the executor.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		if h != nil {
			e.panicHandler = h
		}
	}
}

// Execute invokes h with ev and returns the result.
func (x *Executor) Execute(h *event.Handler, ev *event.Event) Result {
	return x.run(ev, h, func() (any, error) {
		return h.Invoke(ev)
	})
}

// Call runs fn with the same protection as Execute.
func (x *Executor) Call(fn func() (any, error)) Result {
	return x.run(nil, nil, fn)
}

func (x *Executor) run(ev *event.Event, h *event.Handler, fn func() (any, error)) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)
		x.executed.Add(1)
		x.totalTimeNs.Add(result.Duration.Nanoseconds())

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Value = nil
			result.Panicked = true
			result.PanicValue = r
			result.Stack = stack
			result.Err = &event.PanicError{Value: r, Stack: string(stack)}
			x.panicked.Add(1)

			// A failing panic handler must not escape either.
			func() {
				defer func() {
					_ = recover()
				}()
				x.panicHandler(ev, h, r, stack)
			}()
			return
		}
		if result.Err != nil {
			x.failed.Add(1)
		}
	}()

	result.Value, result.Err = fn()
	return result
}

// Stats returns execution statistics.
func (x *Executor) Stats() Stats {
	executed := x.executed.Load()
	totalNs := x.totalTimeNs.Load()

	var avgNs int64
	if executed > 0 {
		avgNs = totalNs / int64(executed)
	}

	return Stats{
		Executed:      executed,
		Failed:        x.failed.Load(),
		Panicked:      x.panicked.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// Stats contains statistics for an executor.
type Stats struct {
	// Executed is the total number of executions.
	Executed uint64

	// Failed is the number of executions that returned an error.
	Failed uint64

	// Panicked is the number of executions that panicked.
	Panicked uint64

	// TotalDuration is the cumulative execution time.
	TotalDuration time.Duration

	// AvgDuration is the average execution time.
	AvgDuration time.Duration
}
