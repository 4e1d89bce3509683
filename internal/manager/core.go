package manager

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/event/dispatch"
	"github.com/dshills/switchyard/internal/logging"
)

// Default run loop settings.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultDrainTimeout = 3 * time.Second
	DefaultDrainTicks   = 100
)

// core is the state a manager uses while it is a root.
//
// The queue is the only state written from other goroutines. Everything
// else belongs to the loop and to the task it is currently driving.
type core struct {
	registry *event.Registry
	executor *dispatch.Executor
	logger   *logging.Logger

	poll         time.Duration
	drainTimeout time.Duration
	drainTicks   int

	qmu   sync.Mutex
	queue []*event.Event
	wake  chan struct{}

	ticks      []TickFunc
	ticksDirty atomic.Bool

	active        []*flight
	flights       map[*event.Event]*flight
	notifications map[*event.Event]*flight
	waits         []*waiter
	ready         []resumption

	running atomic.Bool
	lmu     sync.Mutex
	done    chan struct{}

	stats counters
}

func newCore() *core {
	c := &core{
		registry:      event.NewRegistry(),
		logger:        logging.Nop(),
		poll:          DefaultPollInterval,
		drainTimeout:  DefaultDrainTimeout,
		drainTicks:    DefaultDrainTicks,
		wake:          make(chan struct{}, 1),
		flights:       make(map[*event.Event]*flight),
		notifications: make(map[*event.Event]*flight),
	}
	c.ticksDirty.Store(true)
	return c
}

// flight tracks one event from dispatch to completion.
type flight struct {
	event *event.Event

	// last is the last handler invoked.
	last *event.Handler

	dispatched bool
	finished   bool
	filtered   bool
	failed     bool
	err        error

	// pending counts secondary notifications that have not completed.
	pending int
}

// enqueue appends a bound event and wakes the loop.
func (c *core) enqueue(e *event.Event) {
	c.qmu.Lock()
	c.queue = append(c.queue, e)
	c.qmu.Unlock()

	c.stats.fired.Add(1)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// take removes and returns the current queue contents.
func (c *core) take() []*event.Event {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	batch := c.queue
	c.queue = nil
	return batch
}

func (c *core) queueLen() int {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return len(c.queue)
}

func (c *core) track(f *flight) {
	c.active = append(c.active, f)
	c.flights[f.event] = f
}

func (c *core) untrack(f *flight) {
	if i := slices.Index(c.active, f); i >= 0 {
		c.active = slices.Delete(c.active, i, i+1)
	}
	delete(c.flights, f.event)
}

// absorb moves the queued and in-progress state of other into c. It is
// used when a root is registered under another tree.
func (c *core) absorb(other *core) {
	if other == c {
		return
	}
	batch := other.take()
	if len(batch) > 0 {
		c.qmu.Lock()
		c.queue = append(c.queue, batch...)
		c.qmu.Unlock()
	}

	c.active = append(c.active, other.active...)
	for e, f := range other.flights {
		c.flights[e] = f
	}
	for e, f := range other.notifications {
		c.notifications[e] = f
	}
	c.waits = append(c.waits, other.waits...)
	c.ready = append(c.ready, other.ready...)

	other.active = nil
	other.flights = make(map[*event.Event]*flight)
	other.notifications = make(map[*event.Event]*flight)
	other.waits = nil
	other.ready = nil
}
