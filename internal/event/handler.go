package event

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Func is a handler callable that receives the whole event.
type Func func(e *Event) (any, error)

// ArgsFunc is a handler callable that receives only the event's arguments.
type ArgsFunc func(args []any, kwargs map[string]any) (any, error)

// handlerSeq orders handlers that tie on priority and filter.
var handlerSeq atomic.Uint64

// Handler describes a callable bound to a set of channels within a target.
// A Handler with no channels is global and sees every event.
type Handler struct {
	// Name is a human-readable label used in logs and error events.
	Name string

	// Channels are the channel names matched within Target.
	Channels []string

	// Target is the owning component's channel, or Any.
	Target string

	// Priority orders execution; higher runs first.
	Priority float64

	// Filter handlers stop dispatch by returning a truthy value.
	Filter bool

	// WantsEvent is true when the callable receives the *Event.
	WantsEvent bool

	// Owner is the component that contributed the handler.
	Owner any

	fn     Func
	argsFn ArgsFunc
	seq    uint64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// OnChannels sets the channels the handler listens on.
func OnChannels(channels ...string) HandlerOption {
	return func(h *Handler) {
		h.Channels = append(h.Channels[:0:0], channels...)
	}
}

// WithTarget overrides the target the handler is keyed under.
func WithTarget(target string) HandlerOption {
	return func(h *Handler) {
		h.Target = target
	}
}

// WithPriority sets the handler priority.
func WithPriority(p float64) HandlerOption {
	return func(h *Handler) {
		h.Priority = p
	}
}

// AsFilter marks the handler as a filter.
func AsFilter() HandlerOption {
	return func(h *Handler) {
		h.Filter = true
	}
}

// WithName sets the handler label.
func WithName(name string) HandlerOption {
	return func(h *Handler) {
		h.Name = name
	}
}

// NewHandler creates a handler whose callable receives the event.
// It panics if fn is nil.
func NewHandler(fn Func, opts ...HandlerOption) *Handler {
	if fn == nil {
		panic(ErrNilHandler)
	}
	h := &Handler{fn: fn, WantsEvent: true, seq: handlerSeq.Add(1)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewArgsHandler creates a handler whose callable receives only the event's
// arguments. It panics if fn is nil.
func NewArgsHandler(fn ArgsFunc, opts ...HandlerOption) *Handler {
	if fn == nil {
		panic(ErrNilHandler)
	}
	h := &Handler{argsFn: fn, seq: handlerSeq.Add(1)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Invoke calls the handler with the event or its arguments.
func (h *Handler) Invoke(e *Event) (any, error) {
	if h.WantsEvent && h.fn != nil {
		return h.fn(e)
	}
	if h.argsFn != nil {
		return h.argsFn(e.Args, e.Kwargs)
	}
	return h.fn(e)
}

// Seq returns the registration sequence number used to break ties.
func (h *Handler) Seq() uint64 {
	return h.seq
}

// IsGlobal reports whether the handler has no channels.
func (h *Handler) IsGlobal() bool {
	return len(h.Channels) == 0
}

// Keys returns the registry keys for the handler's channels.
func (h *Handler) Keys() []Key {
	keys := make([]Key, 0, len(h.Channels))
	for _, ch := range h.Channels {
		keys = append(keys, NewKey(h.Target, ch))
	}
	return keys
}

// String returns the handler label, e.g. "p.ping@10".
func (h *Handler) String() string {
	name := h.Name
	if name == "" {
		target := h.Target
		if target == "" {
			target = Any
		}
		name = target + "." + strings.Join(h.Channels, ",")
	}
	if h.Priority != 0 {
		name += fmt.Sprintf("@%g", h.Priority)
	}
	if h.Filter {
		name += "[filter]"
	}
	return name
}

// before reports whether a runs before b within one bucket.
func before(a, b *Handler) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Filter != b.Filter {
		return a.Filter
	}
	return a.seq < b.seq
}

// Truthy reports whether a filter result stops dispatch: anything except
// nil, false, zero numbers and empty strings.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
