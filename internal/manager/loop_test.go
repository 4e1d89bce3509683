package manager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/switchyard/internal/event"
)

func TestRun_NotRoot(t *testing.T) {
	root := New()
	c := New().Register(root)

	if err := c.Run(context.Background()); !errors.Is(err, ErrNotRoot) {
		t.Errorf("Run() on child = %v, want ErrNotRoot", err)
	}
	if err := c.Start(); !errors.Is(err, ErrNotRoot) {
		t.Errorf("Start() on child = %v, want ErrNotRoot", err)
	}
}

func TestStart_PushStopJoin(t *testing.T) {
	m := New(WithPollInterval(5*time.Millisecond), WithDrain(time.Second, 10))

	modes := make(chan any, 1)
	m.Handle(event.NameStarted, func(e *event.Event) (any, error) {
		modes <- e.Arg(1)
		return nil, nil
	})
	var stopped atomic.Bool
	m.Handle(event.NameStopped, func(*event.Event) (any, error) {
		stopped.Store(true)
		return nil, nil
	})
	got := make(chan any, 1)
	m.Handle("work", func(e *event.Event) (any, error) {
		got <- e.Arg(0)
		return nil, nil
	})

	if err := m.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := m.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}

	select {
	case mode := <-modes:
		if mode != ModeGoroutine {
			t.Errorf("started mode = %v, want %q", mode, ModeGoroutine)
		}
	case <-time.After(time.Second):
		t.Fatal("started event not dispatched")
	}

	go m.Push(event.New("work", 7))

	select {
	case v := <-got:
		if v != 7 {
			t.Errorf("work arg = %v, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("pushed event not dispatched")
	}

	m.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Join(ctx); err != nil {
		t.Fatalf("Join() = %v", err)
	}
	if m.IsRunning() {
		t.Error("IsRunning() = true after Join")
	}
	if !stopped.Load() {
		t.Error("stopped event should be dispatched by the drain")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	m := New(WithPollInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_Terminate(t *testing.T) {
	m := New(WithPollInterval(time.Millisecond))
	m.Handle("quit", func(*event.Event) (any, error) { return nil, ErrTerminate })

	var mode any = "unset"
	m.Handle(event.NameStarted, func(e *event.Event) (any, error) {
		mode = e.Arg(1)
		return nil, nil
	})

	m.Fire(event.New("quit"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Run should return on terminate, not on timeout")
	}
	if mode != ModeInline {
		t.Errorf("started mode = %v, want inline", mode)
	}
}

func TestRun_TicksWhileIdle(t *testing.T) {
	m := New(WithPollInterval(time.Millisecond))
	var ticks atomic.Int32
	m.AddTick(func() {
		if ticks.Add(1) == 5 {
			m.Stop()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if ticks.Load() < 5 {
		t.Errorf("ticks = %d, want at least 5", ticks.Load())
	}
}

func TestDrain_Bounded(t *testing.T) {
	m := New(WithPollInterval(time.Millisecond), WithDrain(time.Second, 3))
	var count atomic.Int32
	m.Handle(event.NameStopped, func(*event.Event) (any, error) {
		m.Fire(event.New("echo"))
		return nil, nil
	})
	m.Handle("echo", func(*event.Event) (any, error) {
		count.Add(1)
		m.Fire(event.New("echo"))
		return nil, nil
	})
	m.Handle(event.NameStarted, func(*event.Event) (any, error) {
		return nil, ErrTerminate
	})

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if got := count.Load(); got != 2 {
		t.Errorf("echo dispatched %d times during drain, want 2", got)
	}
}

func TestJoin_NeverStarted(t *testing.T) {
	if err := New().Join(context.Background()); err != nil {
		t.Errorf("Join() = %v, want nil", err)
	}
}

func TestStop_NotRunning(t *testing.T) {
	m := New()
	m.Stop()
	if m.IsRunning() {
		t.Error("Stop on an idle manager should leave it stopped")
	}
}
