package event

import "errors"

// Sentinel errors for the event package.
var (
	// ErrEventInFlight is returned when an event that is still being
	// dispatched is fired again.
	ErrEventInFlight = errors.New("event is already in flight")

	// ErrHandlerPanic is matched by PanicError values.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrNilHandler is the panic value used when a nil handler reaches the registry.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidKey is the panic value used for keys with an empty half.
	ErrInvalidKey = errors.New("invalid handler key")
)

// HandlerError wraps an error returned by a handler with the event and
// handler that produced it.
type HandlerError struct {
	// Handler is the handler that failed.
	Handler *Handler

	// Event is the event being dispatched.
	Event *Event

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	name := "<nil>"
	if e.Handler != nil {
		name = e.Handler.String()
	}
	evName := "<nil>"
	if e.Event != nil {
		evName = e.Event.Name
	}
	return "handler " + name + " failed on " + evName + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "panic: " + formatAny(e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
