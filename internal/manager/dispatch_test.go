package manager

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/dshills/switchyard/internal/event"
)

// recorder collects the labels of handlers as they run.
type recorder struct {
	calls []string
}

func (r *recorder) handler(label string, result any) event.Func {
	return func(*event.Event) (any, error) {
		r.calls = append(r.calls, label)
		return result, nil
	}
}

// Components P and C both handle "ping"; a wildcard-targeted ping reaches
// both in priority order and the queue is empty after one drain.
func TestTick_WildcardTargetReachesAllComponents(t *testing.T) {
	rec := &recorder{}
	p := New(WithName("p"), WithChannel("p"))
	c := New(WithName("c"), WithChannel("c")).Register(p)
	p.Handle("ping", rec.handler("p", nil), event.WithPriority(1))
	c.Handle("ping", rec.handler("c", nil), event.WithPriority(2))

	p.Tick() // registered
	p.Fire(event.New("ping"), ToTarget(event.Any))
	p.Tick()

	if !slices.Equal(rec.calls, []string{"c", "p"}) {
		t.Errorf("calls = %v, want [c p]", rec.calls)
	}
	if p.Stats().QueueDepth != 0 {
		t.Errorf("QueueDepth = %d, want 0", p.Stats().QueueDepth)
	}
}

func TestTick_TargetedEventReachesOneComponent(t *testing.T) {
	rec := &recorder{}
	p := New(WithChannel("p"))
	New(WithChannel("c")).Register(p).Handle("ping", rec.handler("c", nil))
	p.Handle("ping", rec.handler("p", nil))

	p.Fire(event.New("ping"), ToTarget("c"))
	p.Tick()

	if !slices.Equal(rec.calls, []string{"c"}) {
		t.Errorf("calls = %v, want [c]", rec.calls)
	}
}

func TestDispatch_FilterStopsDispatch(t *testing.T) {
	rec := &recorder{}
	m := New()
	m.Handle("req", rec.handler("filter", true), event.WithPriority(10), event.AsFilter())
	m.Handle("req", rec.handler("listener", "late"))

	var filtered []any
	m.Handle("req"+event.SuffixFiltered, func(e *event.Event) (any, error) {
		filtered = append(filtered, e.Arg(1))
		return nil, nil
	})

	e := event.New("req").NotifyFilter()
	v := m.Fire(e)
	tickN(m, 2)

	if !slices.Equal(rec.calls, []string{"filter"}) {
		t.Errorf("calls = %v, want only the filter", rec.calls)
	}
	if got, _ := v.Get(); got != true {
		t.Errorf("value = %v, want true", got)
	}
	if !slices.Equal(filtered, []any{true}) {
		t.Errorf("filtered notification args = %v, want [true]", filtered)
	}
}

func TestDispatch_FalsyFilterContinues(t *testing.T) {
	rec := &recorder{}
	m := New()
	m.Handle("req", rec.handler("filter", false), event.WithPriority(10), event.AsFilter())
	m.Handle("req", rec.handler("listener", "ok"))

	var success, filtered int
	m.Handle("req"+event.SuffixSuccess, func(*event.Event) (any, error) {
		success++
		return nil, nil
	})
	m.Handle("req"+event.SuffixFiltered, func(*event.Event) (any, error) {
		filtered++
		return nil, nil
	})

	m.Fire(event.New("req").NotifySuccess().NotifyFilter())
	tickN(m, 2)

	if !slices.Equal(rec.calls, []string{"filter", "listener"}) {
		t.Errorf("calls = %v, want [filter listener]", rec.calls)
	}
	if success != 1 || filtered != 0 {
		t.Errorf("success = %d, filtered = %d, want 1, 0", success, filtered)
	}
}

func TestDispatch_EqualPriorityFilterRunsFirst(t *testing.T) {
	rec := &recorder{}
	m := New()
	m.Handle("req", rec.handler("listener", nil))
	m.Handle("req", rec.handler("filter", nil), event.AsFilter())

	m.Fire(event.New("req"))
	m.Tick()

	if !slices.Equal(rec.calls, []string{"filter", "listener"}) {
		t.Errorf("calls = %v, want [filter listener]", rec.calls)
	}
}

func TestDispatch_SuccessAndEndNotifications(t *testing.T) {
	m := New()
	last := m.Handle("job", func(*event.Event) (any, error) { return 42, nil }, event.WithName("worker"))

	var order []string
	var successValue any
	var endHandler any
	m.Handle("job"+event.SuffixSuccess, func(e *event.Event) (any, error) {
		order = append(order, "success")
		successValue = e.Arg(1)
		return nil, nil
	})
	m.Handle("job"+event.SuffixEnd, func(e *event.Event) (any, error) {
		order = append(order, "end")
		endHandler = e.Arg(1)
		return nil, nil
	})

	e := event.New("job").NotifySuccess().NotifyEnd()
	m.Fire(e)
	m.Tick()

	if len(order) != 0 {
		t.Fatal("notifications must wait for the next tick")
	}
	if !e.InFlight() {
		t.Error("event should stay in flight until its notifications complete")
	}

	m.Tick()

	if !slices.Equal(order, []string{"success", "end"}) {
		t.Errorf("order = %v, want [success end]", order)
	}
	if successValue != 42 {
		t.Errorf("success value = %v, want 42", successValue)
	}
	if endHandler != last {
		t.Errorf("end handler = %v, want %v", endHandler, last)
	}
	if e.InFlight() {
		t.Error("event should complete with its notifications")
	}
}

func TestDispatch_NotificationToExplicitChannel(t *testing.T) {
	m := New()
	m.Handle("job", func(*event.Event) (any, error) { return "done", nil })

	var got *event.Event
	New(WithChannel("audit")).Register(m).Handle("finished", func(e *event.Event) (any, error) {
		got = e
		return nil, nil
	})

	m.Fire(event.New("job").NotifySuccess(event.NewKey("audit", "finished")))
	tickN(m, 3)

	if got == nil {
		t.Fatal("notification not delivered to audit:finished")
	}
	if got.Name != "job"+event.SuffixSuccess || got.Cause == nil || got.Cause.Name != "job" {
		t.Errorf("notification = %v, cause %v", got, got.Cause)
	}
}

func TestDispatch_FanOutValues(t *testing.T) {
	m := New()
	m.Handle("sum", func(*event.Event) (any, error) { return 1, nil }, event.WithPriority(2))
	m.Handle("sum", func(*event.Event) (any, error) { return 2, nil }, event.WithPriority(1))
	m.Handle("sum", func(*event.Event) (any, error) { return nil, nil })

	v := m.Fire(event.New("sum"))
	m.Tick()

	got, ok := v.Get()
	if !ok {
		t.Fatal("value should be resolved")
	}
	if results, _ := got.([]any); !slices.Equal(results, []any{1, 2}) {
		t.Errorf("Get() = %v, want [1 2]", got)
	}
	if first, _ := v.First(); first != 1 {
		t.Errorf("First() = %v, want 1", first)
	}
}

func TestDispatch_ArgsHandler(t *testing.T) {
	m := New()
	m.HandleArgs("add", func(args []any, kwargs map[string]any) (any, error) {
		return args[0].(int) + args[1].(int) + kwargs["extra"].(int), nil
	})

	v := m.Fire(event.New("add", 1, 2).With("extra", 3))
	m.Tick()

	if got, _ := v.Get(); got != 6 {
		t.Errorf("Get() = %v, want 6", got)
	}
}

func TestDispatch_ChainedValue(t *testing.T) {
	m := New()
	m.Handle("outer", func(*event.Event) (any, error) {
		return m.Fire(event.New("inner")), nil
	})
	m.Handle("inner", func(*event.Event) (any, error) { return 42, nil })

	outer := event.New("outer")
	v := m.Fire(outer)
	m.Tick()

	if _, ok := v.Get(); ok {
		t.Fatal("outer value should wait for the inner event")
	}
	if !outer.InFlight() {
		t.Fatal("outer event should stay in flight while its value is pending")
	}

	m.Tick()

	if got, ok := v.Get(); !ok || got != 42 {
		t.Errorf("Get() = (%v, %v), want (42, true)", got, ok)
	}
	if outer.InFlight() {
		t.Error("outer event should complete once the inner value resolves")
	}
}

func TestDispatch_ChainedEmptyValue(t *testing.T) {
	tests := []struct {
		name  string
		inner bool
	}{
		{"inner handler returns nil", true},
		{"inner event unhandled", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Handle("outer", func(*event.Event) (any, error) {
				return m.Fire(event.New("inner")), nil
			})
			if tt.inner {
				m.Handle("inner", func(*event.Event) (any, error) { return nil, nil })
			}
			var notified []string
			for _, suffix := range []string{event.SuffixSuccess, event.SuffixEnd} {
				name := "outer" + suffix
				m.Handle(name, func(*event.Event) (any, error) {
					notified = append(notified, name)
					return nil, nil
				})
			}

			outer := event.New("outer").NotifySuccess().NotifyEnd()
			v := m.Fire(outer)
			tickN(m, 4)

			if outer.InFlight() {
				t.Fatal("outer event should complete once the inner event completes")
			}
			if got, ok := v.Get(); !ok || got != nil {
				t.Errorf("Get() = (%v, %v), want (nil, true)", got, ok)
			}
			want := []string{"outer_success", "outer_end"}
			if !slices.Equal(notified, want) {
				t.Errorf("notified = %v, want %v", notified, want)
			}
			if n := len(m.core.active); n != 0 {
				t.Errorf("active flights = %d, want 0", n)
			}
		})
	}
}

// An event fired during tick N is dispatched on tick N+1.
func TestTick_DefersEventsFiredDuringTick(t *testing.T) {
	m := New()
	count := 0
	m.Handle("loop", func(e *event.Event) (any, error) {
		count++
		m.Fire(event.New("loop"))
		return nil, nil
	})

	m.Fire(event.New("loop"))
	for i := 1; i <= 3; i++ {
		m.Tick()
		if count != i {
			t.Fatalf("after tick %d count = %d, want %d", i, count, i)
		}
		if m.Stats().QueueDepth != 1 {
			t.Fatalf("after tick %d QueueDepth = %d, want 1", i, m.Stats().QueueDepth)
		}
	}
}

func TestTick_FIFOWithinTick(t *testing.T) {
	rec := &recorder{}
	m := New()
	for _, name := range []string{"a", "b", "c"} {
		m.Handle(name, rec.handler(name, nil))
	}

	m.Fire(event.New("a"))
	m.Fire(event.New("b"))
	m.Fire(event.New("c"))
	m.Tick()

	if !slices.Equal(rec.calls, []string{"a", "b", "c"}) {
		t.Errorf("calls = %v, want [a b c]", rec.calls)
	}
}

func TestDispatch_RemovedHandlerIsSkipped(t *testing.T) {
	rec := &recorder{}
	m := New()
	var victim *event.Handler
	m.Handle("x", func(*event.Event) (any, error) {
		m.RemoveHandler(victim)
		rec.calls = append(rec.calls, "remover")
		return nil, nil
	}, event.WithPriority(1))
	victim = m.Handle("x", rec.handler("victim", nil))

	m.Fire(event.New("x"))
	m.Tick()

	if !slices.Equal(rec.calls, []string{"remover"}) {
		t.Errorf("calls = %v, want [remover]", rec.calls)
	}
}

func TestDispatch_HandlerErrorFiresErrorEvent(t *testing.T) {
	errBad := errors.New("bad")
	rec := &recorder{}
	m := New()
	failing := m.Handle("boom", func(*event.Event) (any, error) { return nil, errBad }, event.WithPriority(1))
	m.Handle("boom", rec.handler("sibling", "ok"))

	var errArgs []any
	m.Handle(event.NameError, func(e *event.Event) (any, error) {
		errArgs = e.Args
		return nil, nil
	})
	var failure error
	m.Handle("boom"+event.SuffixFailure, func(e *event.Event) (any, error) {
		failure, _ = e.Arg(1).(error)
		return nil, nil
	})

	v := m.Fire(event.New("boom").NotifyFailure())
	m.Tick()

	if !slices.Equal(rec.calls, []string{"sibling"}) {
		t.Errorf("sibling handler should still run, calls = %v", rec.calls)
	}
	if !errors.Is(v.Err(), errBad) {
		t.Errorf("v.Err() = %v, want wrapping %v", v.Err(), errBad)
	}
	var herr *event.HandlerError
	if !errors.As(v.Err(), &herr) || herr.Handler != failing {
		t.Errorf("v.Err() = %v, want HandlerError for the failing handler", v.Err())
	}

	m.Tick()

	if len(errArgs) != 4 {
		t.Fatalf("error args = %v, want 4", errArgs)
	}
	if errArgs[0] != "*errors.errorString" || errArgs[1] != errBad || errArgs[3] != failing {
		t.Errorf("error args = %v", errArgs)
	}
	if !errors.Is(failure, errBad) {
		t.Errorf("failure notification err = %v, want %v", failure, errBad)
	}
	if m.Stats().Errors != 1 {
		t.Errorf("Stats().Errors = %d, want 1", m.Stats().Errors)
	}
}

func TestDispatch_PanicFiresErrorEvent(t *testing.T) {
	m := New()
	m.Handle("boom", func(*event.Event) (any, error) { panic("oops") })

	var kind, traceback string
	m.Handle(event.NameError, func(e *event.Event) (any, error) {
		kind, _ = e.Arg(0).(string)
		traceback, _ = e.Arg(2).(string)
		return nil, nil
	})

	v := m.Fire(event.New("boom"))
	tickN(m, 2)

	if kind != "panic" {
		t.Errorf("kind = %q, want panic", kind)
	}
	if !strings.Contains(traceback, "goroutine") {
		t.Errorf("traceback should hold a stack, got %q", traceback)
	}
	if !errors.Is(v.Err(), event.ErrHandlerPanic) {
		t.Errorf("v.Err() = %v, want ErrHandlerPanic", v.Err())
	}
	if m.Stats().Handlers.Panicked != 1 {
		t.Errorf("Handlers.Panicked = %d, want 1", m.Stats().Handlers.Panicked)
	}
}

func TestDispatch_FailingErrorHandlerIsNotRefired(t *testing.T) {
	m := New()
	m.Handle("boom", func(*event.Event) (any, error) { return nil, errors.New("first") })
	calls := 0
	m.Handle(event.NameError, func(*event.Event) (any, error) {
		calls++
		return nil, errors.New("second")
	})

	m.Fire(event.New("boom"))
	tickN(m, 4)

	if calls != 1 {
		t.Errorf("error handler calls = %d, want 1", calls)
	}
	if m.Stats().QueueDepth != 0 {
		t.Errorf("QueueDepth = %d, want 0", m.Stats().QueueDepth)
	}
	if m.Stats().Errors != 2 {
		t.Errorf("Stats().Errors = %d, want 2", m.Stats().Errors)
	}
}

func TestDispatch_UnhandledErrorIsLogged(t *testing.T) {
	m := New()
	m.Handle("boom", func(*event.Event) (any, error) { return nil, errors.New("lost") })

	m.Fire(event.New("boom"))
	tickN(m, 2)

	if s := m.Stats(); s.Dispatched != 2 || s.QueueDepth != 0 {
		t.Errorf("Dispatched = %d, QueueDepth = %d, want 2, 0", s.Dispatched, s.QueueDepth)
	}
}

func TestDispatch_TerminateStopsRoot(t *testing.T) {
	rec := &recorder{}
	m := New()
	m.Handle("quit", func(*event.Event) (any, error) { return nil, ErrTerminate }, event.WithPriority(1))
	m.Handle("quit", rec.handler("after", nil))
	m.core.running.Store(true)

	m.Fire(event.New("quit"))
	m.Tick()

	if m.IsRunning() {
		t.Error("ErrTerminate should stop the root")
	}
	if len(rec.calls) != 0 {
		t.Errorf("calls = %v, want none after terminate", rec.calls)
	}
	if m.Stats().Errors != 0 {
		t.Error("ErrTerminate should not count as an error")
	}
}
