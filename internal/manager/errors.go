package manager

import "errors"

// Manager errors.
var (
	// ErrTerminate is returned by a handler to stop the root run loop.
	// It is not reported as a handler failure.
	ErrTerminate = errors.New("terminate requested")

	// ErrTaskCancelled is recorded on the value of a task abandoned because
	// its owning component was unregistered.
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrNotRoot indicates a run loop was requested on a non-root manager.
	ErrNotRoot = errors.New("manager is not a root")

	// ErrAlreadyRunning indicates the root run loop is already running.
	ErrAlreadyRunning = errors.New("manager already running")

	// ErrNotFired indicates a wait on an event that was never fired.
	ErrNotFired = errors.New("event was never fired")

	// ErrCycle indicates a registration that would make a component its own
	// ancestor.
	ErrCycle = errors.New("registration cycle")
)
