// Package timer provides a component that fires an event after an interval.
package timer

import (
	"sync"
	"time"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/manager"
)

// Timer fires a copy of its event once its interval elapses. It is checked
// on every tick of the tree it is registered with, so it fires no earlier
// than the interval and no later than one poll interval after it.
//
// A one-shot timer unregisters itself after firing; a persistent timer
// restarts its interval.
type Timer struct {
	*manager.Manager

	interval   time.Duration
	template   *event.Event
	persistent bool
	fireOpts   []manager.FireOption
	now        func() time.Time

	mu     sync.Mutex
	expiry time.Time
	fired  int
}

// Option configures a Timer.
type Option func(*Timer)

// Persistent makes the timer restart after firing.
func Persistent() Option {
	return func(t *Timer) {
		t.persistent = true
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithFireOptions sets the routing used when the event fires.
func WithFireOptions(opts ...manager.FireOption) Option {
	return func(t *Timer) {
		t.fireOpts = append(t.fireOpts, opts...)
	}
}

// New creates a timer that fires e after interval. The interval starts now.
func New(interval time.Duration, e *event.Event, opts ...Option) *Timer {
	t := &Timer{
		Manager:  manager.New(manager.WithName("timer:" + e.Name)),
		interval: interval,
		template: e,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.expiry = t.now().Add(interval)
	t.AddTick(t.check)
	return t
}

// Reset restarts the interval from now.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expiry = t.now().Add(t.interval)
}

// Expiry returns when the timer next fires.
func (t *Timer) Expiry() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiry
}

// Fired returns how many times the timer fired.
func (t *Timer) Fired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

func (t *Timer) check() {
	t.mu.Lock()
	now := t.now()
	if now.Before(t.expiry) {
		t.mu.Unlock()
		return
	}
	t.fired++
	if t.persistent {
		t.expiry = now.Add(t.interval)
	}
	t.mu.Unlock()

	t.Fire(t.template.Clone(), t.fireOpts...)
	if !t.persistent {
		t.Unregister()
	}
}
