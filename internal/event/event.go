package event

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Event is a named message with positional and keyword arguments.
// The routing fields and the Value are populated when the event is fired.
type Event struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Name identifies the event; it is the default channel.
	Name string

	// Args are the positional arguments passed to handlers.
	Args []any

	// Kwargs are the keyword arguments passed to handlers.
	Kwargs map[string]any

	// Target is the component channel the event was fired at.
	Target string

	// Channel is the channel within the target.
	Channel string

	// Value collects the handlers' results. It is replaced on every fire.
	Value *Value

	// Secondary notifications. A nil field means no notification.
	Success *Notify
	Failure *Notify
	Filter  *Notify
	End     *Notify

	// Cause is the event a secondary notification reports on.
	Cause *Event

	// Created is when the event was constructed.
	Created time.Time

	inflight atomic.Bool
}

// Notify declares a secondary notification. An empty Keys list targets the
// notifying event's own target.
type Notify struct {
	Keys []Key
}

// New creates an event with the given name and positional arguments.
func New(name string, args ...any) *Event {
	return &Event{
		ID:      uuid.NewString(),
		Name:    name,
		Args:    args,
		Created: time.Now(),
	}
}

// With sets a keyword argument and returns the event.
func (e *Event) With(key string, value any) *Event {
	if e.Kwargs == nil {
		e.Kwargs = make(map[string]any)
	}
	e.Kwargs[key] = value
	return e
}

// NotifySuccess requests a <name>_success event once all handlers succeed.
func (e *Event) NotifySuccess(keys ...Key) *Event {
	e.Success = &Notify{Keys: keys}
	return e
}

// NotifyFailure requests a <name>_failure event if any handler fails.
func (e *Event) NotifyFailure(keys ...Key) *Event {
	e.Failure = &Notify{Keys: keys}
	return e
}

// NotifyFilter requests a <name>_filtered event when a filter stops dispatch.
func (e *Event) NotifyFilter(keys ...Key) *Event {
	e.Filter = &Notify{Keys: keys}
	return e
}

// NotifyEnd requests a <name>_end event after dispatch, whatever the outcome.
func (e *Event) NotifyEnd(keys ...Key) *Event {
	e.End = &Notify{Keys: keys}
	return e
}

// Arg returns the i-th positional argument or nil.
func (e *Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// Kwarg returns a keyword argument or nil.
func (e *Event) Kwarg(key string) any {
	return e.Kwargs[key]
}

// Key returns the routing key assigned at fire time.
func (e *Event) Key() Key {
	return NewKey(e.Target, e.Channel)
}

// Bind assigns the routing key and a fresh Value for a new dispatch.
// It fails if the event is still in flight.
func (e *Event) Bind(key Key) (*Value, error) {
	if !e.inflight.CompareAndSwap(false, true) {
		return nil, ErrEventInFlight
	}
	e.Target = key.Target
	e.Channel = key.Channel
	e.Value = NewValue()
	return e.Value, nil
}

// Complete marks the event's dispatch as finished so it may be fired again.
func (e *Event) Complete() {
	e.inflight.Store(false)
}

// InFlight reports whether the event is bound to a dispatch.
func (e *Event) InFlight() bool {
	return e.inflight.Load()
}

// Clone returns an unfired copy of the event with a new ID.
func (e *Event) Clone() *Event {
	c := New(e.Name, append([]any(nil), e.Args...)...)
	if e.Kwargs != nil {
		c.Kwargs = make(map[string]any, len(e.Kwargs))
		for k, v := range e.Kwargs {
			c.Kwargs[k] = v
		}
	}
	c.Target = e.Target
	c.Channel = e.Channel
	c.Success = e.Success
	c.Failure = e.Failure
	c.Filter = e.Filter
	c.End = e.End
	return c
}

// String returns a compact description such as "ping<*:ping>(1, 2)".
func (e *Event) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	if e.Target != "" || e.Channel != "" {
		b.WriteString("<")
		b.WriteString(e.Key().String())
		b.WriteString(">")
	}
	parts := make([]string, 0, len(e.Args)+len(e.Kwargs))
	for _, a := range e.Args {
		parts = append(parts, formatAny(a))
	}
	keys := make([]string, 0, len(e.Kwargs))
	for k := range e.Kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+formatAny(e.Kwargs[k]))
	}
	b.WriteString("(")
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(")")
	return b.String()
}

func formatAny(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
