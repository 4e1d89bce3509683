package event

import (
	"errors"
	"fmt"
)

// Names of the events emitted by the runtime itself.
const (
	NameStarted      = "started"
	NameStopped      = "stopped"
	NameRegistered   = "registered"
	NameUnregistered = "unregistered"
	NameError        = "error"
)

// Suffixes of secondary notification event names.
const (
	SuffixSuccess  = "_success"
	SuffixFailure  = "_failure"
	SuffixFiltered = "_filtered"
	SuffixEnd      = "_end"
)

// Started is fired when a root manager's run loop starts.
func Started(component any, mode string) *Event {
	return New(NameStarted, component, mode)
}

// Stopped is fired when a root manager's run loop stops.
func Stopped(component any) *Event {
	return New(NameStopped, component)
}

// Registered is fired when component is attached to parent.
func Registered(component, parent any) *Event {
	return New(NameRegistered, component, parent)
}

// Unregistered is fired when component is detached from parent.
func Unregistered(component, parent any) *Event {
	return New(NameUnregistered, component, parent)
}

// Error reports a handler failure. Its arguments are the failure kind, the
// error, the traceback and the failing handler.
func Error(err error, traceback string, h *Handler) *Event {
	return New(NameError, ErrorKind(err), err, traceback, h)
}

// ErrorKind names the failure: "panic" for recovered panics, otherwise the
// dynamic type of the innermost error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrHandlerPanic) {
		return "panic"
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

// Success creates the notification fired after a successful dispatch.
func Success(cause *Event, value any) *Event {
	return notification(cause, SuffixSuccess, cause, value)
}

// Failure creates the notification fired after a failed dispatch.
func Failure(cause *Event, err error) *Event {
	return notification(cause, SuffixFailure, cause, err)
}

// Filtered creates the notification fired when a filter stopped dispatch.
func Filtered(cause *Event, value any) *Event {
	return notification(cause, SuffixFiltered, cause, value)
}

// Ended creates the notification fired after every dispatch.
func Ended(cause *Event, last *Handler, value any) *Event {
	return notification(cause, SuffixEnd, cause, last, value)
}

func notification(cause *Event, suffix string, args ...any) *Event {
	e := New(cause.Name+suffix, args...)
	e.Cause = cause
	return e
}

// Targets returns the keys a notification should be fired at.
func (n *Notify) Targets(cause *Event, name string) []Key {
	if n == nil {
		return nil
	}
	if len(n.Keys) == 0 {
		return []Key{NewKey(cause.Target, name)}
	}
	keys := make([]Key, len(n.Keys))
	for i, k := range n.Keys {
		keys[i] = NewKey(k.Target, name)
		if k.Channel != "" && k.Channel != Any {
			keys[i].Channel = k.Channel
		}
	}
	return keys
}
