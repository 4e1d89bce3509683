package dispatch

import (
	"time"

	"github.com/dshills/switchyard/internal/event"
)

// Result represents the outcome of one handler execution.
type Result struct {
	// Value is the handler's return value.
	Value any

	// Err is the returned error, or an *event.PanicError if the handler panicked.
	Err error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// Stack is the stack trace at the point of panic.
	Stack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the handler completed without error or panic.
func (r Result) IsSuccess() bool {
	return r.Err == nil && !r.Panicked
}

// IsError returns true if the handler returned an error (not panic).
func (r Result) IsError() bool {
	return r.Err != nil && !r.Panicked
}

// IsPanic returns true if the handler panicked.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// Traceback returns the captured stack as a string.
func (r Result) Traceback() string {
	return string(r.Stack)
}

// PanicHandler is called when a handler panics. h is nil for functions run
// through Executor.Call.
type PanicHandler func(e *event.Event, h *event.Handler, panicValue any, stack []byte)

// defaultPanicHandler is a no-op; the manager reports panics as error events.
func defaultPanicHandler(*event.Event, *event.Handler, any, []byte) {}
