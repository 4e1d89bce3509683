package manager

import (
	"context"
	"time"

	"github.com/dshills/switchyard/internal/event"
)

// Mode values carried by the started event.
const (
	ModeInline    = ""
	ModeGoroutine = "goroutine"
)

// Run runs the loop on the calling goroutine until Stop is called, a
// handler returns ErrTerminate, ctx is done, or m is registered under
// another tree. It fires "started" first, and on exit fires "stopped" and
// drains the queue for a bounded number of ticks.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	m.loop(ctx, ModeInline)
	return nil
}

// Start runs the loop on a new goroutine. Use Stop and Join to end it.
func (m *Manager) Start() error {
	if err := m.begin(); err != nil {
		return err
	}
	go m.loop(context.Background(), ModeGoroutine)
	return nil
}

// Stop asks the root loop to exit after the current tick.
func (m *Manager) Stop() {
	c := m.Root().core
	if c.running.CompareAndSwap(true, false) {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// Join waits for the loop started by Run or Start to return.
func (m *Manager) Join(ctx context.Context) error {
	c := m.core
	c.lmu.Lock()
	done := c.done
	c.lmu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the root loop is running.
func (m *Manager) IsRunning() bool {
	return m.Root().core.running.Load()
}

func (m *Manager) begin() error {
	if !m.IsRoot() {
		return ErrNotRoot
	}
	c := m.core
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	c.lmu.Lock()
	c.done = make(chan struct{})
	c.lmu.Unlock()
	return nil
}

func (m *Manager) loop(ctx context.Context, mode string) {
	c := m.core
	c.lmu.Lock()
	done := c.done
	c.lmu.Unlock()
	defer close(done)

	c.logger.Debug("loop started", "mode", mode)
	m.Fire(event.Started(m, mode))

	timer := time.NewTimer(c.poll)
	defer timer.Stop()

	for c.running.Load() && m.IsRoot() && ctx.Err() == nil {
		m.Tick()
		if !c.running.Load() || c.queueLen() > 0 {
			continue
		}

		timer.Reset(c.poll)
		select {
		case <-ctx.Done():
		case <-c.wake:
		case <-timer.C:
		}
	}
	c.running.Store(false)

	if !m.IsRoot() {
		c.logger.Debug("loop handed over to new root")
		return
	}
	m.Fire(event.Stopped(m))
	m.drain()
	c.logger.Debug("loop stopped", "dispatched", c.stats.dispatched.Load())
}

// drain ticks until the queue is empty or the drain bounds are reached.
func (m *Manager) drain() {
	c := m.core
	deadline := time.Now().Add(c.drainTimeout)
	for i := 0; i < c.drainTicks; i++ {
		if c.queueLen() == 0 || time.Now().After(deadline) {
			return
		}
		m.Tick()
	}
}
