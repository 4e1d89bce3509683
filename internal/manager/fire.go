package manager

import (
	"fmt"

	"github.com/dshills/switchyard/internal/event"
)

// FireOption overrides the routing key of a fired event.
type FireOption func(*fireOptions)

type fireOptions struct {
	channel string
	target  string
}

// ToChannel fires the event on channel instead of its name.
func ToChannel(channel string) FireOption {
	return func(o *fireOptions) {
		o.channel = channel
	}
}

// ToTarget fires the event at target instead of the firing component.
func ToTarget(target string) FireOption {
	return func(o *fireOptions) {
		o.target = target
	}
}

// Fire enqueues e on the root of m's tree and returns its Value. It never
// blocks; the event is dispatched on a later tick.
//
// The channel is the ToChannel option, else the event's own channel, else
// its name. The target is the ToTarget option, else the event's own target,
// else m's channel. Firing an event that is still in flight panics.
func (m *Manager) Fire(e *event.Event, opts ...FireOption) *event.Value {
	var o fireOptions
	for _, opt := range opts {
		opt(&o)
	}

	channel := firstNonEmpty(o.channel, e.Channel, e.Name)
	target := firstNonEmpty(o.target, e.Target, m.channel)
	return m.Root().core.fire(e, event.NewKey(target, channel))
}

// Push is Fire for callers outside the loop, such as watcher or worker
// goroutines. It wakes a sleeping run loop.
func (m *Manager) Push(e *event.Event, opts ...FireOption) *event.Value {
	return m.Fire(e, opts...)
}

func (c *core) fire(e *event.Event, key event.Key) *event.Value {
	v, err := e.Bind(key)
	if err != nil {
		panic(fmt.Errorf("fire %s: %w", e.Name, err))
	}
	c.enqueue(e)
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
