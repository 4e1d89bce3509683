package event

import (
	"errors"
	"testing"
)

func TestValue_Empty(t *testing.T) {
	v := NewValue()

	if _, ok := v.Get(); ok {
		t.Error("empty value should be unresolved")
	}
	if v.Resolved() {
		t.Error("empty value should not be resolved")
	}
	if v.Pending() {
		t.Error("empty value should not be pending")
	}
}

func TestValue_Done(t *testing.T) {
	t.Run("empty resolves to nil", func(t *testing.T) {
		v := NewValue()
		v.Done()
		v.Done()

		got, ok := v.Get()
		if !ok || got != nil {
			t.Errorf("Get() = (%v, %v), want (nil, true)", got, ok)
		}
		if first, ok := v.First(); !ok || first != nil {
			t.Errorf("First() = (%v, %v), want (nil, true)", first, ok)
		}
		if !v.Resolved() || !v.IsDone() {
			t.Error("done value should be resolved")
		}
		if v.Notifications() != 1 {
			t.Errorf("Notifications() = %d, want 1", v.Notifications())
		}
	})

	t.Run("results unaffected", func(t *testing.T) {
		v := NewValue()
		v.Set(7)
		v.Done()

		if got, ok := v.Get(); !ok || got != 7 {
			t.Errorf("Get() = (%v, %v), want (7, true)", got, ok)
		}
		if v.Notifications() != 1 {
			t.Errorf("Notifications() = %d, want 1", v.Notifications())
		}
	})

	t.Run("releases outer value", func(t *testing.T) {
		outer, inner := NewValue(), NewValue()
		outer.Set(inner)
		if !outer.Pending() {
			t.Fatal("outer should be pending on an empty inner value")
		}

		inner.Done()

		if outer.Pending() {
			t.Error("outer should not be pending once the inner value is done")
		}
		if got, ok := outer.Get(); !ok || got != nil {
			t.Errorf("Get() = (%v, %v), want (nil, true)", got, ok)
		}
		if outer.Notifications() != 2 {
			t.Errorf("outer Notifications() = %d, want 2", outer.Notifications())
		}
	})
}

func TestValue_SingleAndMultiple(t *testing.T) {
	v := NewValue()
	v.Set("a")

	got, ok := v.Get()
	if !ok || got != "a" {
		t.Fatalf("Get() = %v, %v; want a, true", got, ok)
	}

	v.Set("b")
	got, ok = v.Get()
	if !ok {
		t.Fatal("expected resolved")
	}
	list, isList := got.([]any)
	if !isList || len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("Get() = %v, want [a b]", got)
	}

	first, _ := v.First()
	if first != "a" {
		t.Errorf("First() = %v, want a", first)
	}
}

func TestValue_Chaining(t *testing.T) {
	a := NewValue()
	b := NewValue()

	a.Set(b)
	if _, ok := a.Get(); ok {
		t.Fatal("A should be unresolved while B is pending")
	}
	if !a.Pending() {
		t.Error("A should be pending")
	}

	before := a.Notifications()
	b.Set(42)

	got, ok := a.Get()
	if !ok || got != 42 {
		t.Fatalf("A.Get() = %v, %v; want 42, true", got, ok)
	}
	if n := a.Notifications() - before; n != 1 {
		t.Errorf("resolving B notified A %d times, want 1", n)
	}
	if a.Pending() {
		t.Error("A should no longer be pending")
	}
}

func TestValue_DeepChain(t *testing.T) {
	a, b, c := NewValue(), NewValue(), NewValue()
	a.Set(b)
	b.Set(c)

	if a.Resolved() {
		t.Fatal("chain should be unresolved")
	}
	c.Set("done")

	got, ok := a.Get()
	if !ok || got != "done" {
		t.Errorf("A.Get() = %v, %v; want done, true", got, ok)
	}
}

func TestValue_Errors(t *testing.T) {
	v := NewValue()
	v.Set(errors.New("plain result"))
	if v.Errors() {
		t.Error("an error returned as a value is not a failure")
	}

	boom := errors.New("boom")
	inner := NewValue()
	v.Set(inner)
	inner.SetError(boom)

	if !v.Errors() {
		t.Error("failure should propagate through the chain")
	}
	if !errors.Is(v.Err(), boom) {
		t.Errorf("Err() = %v, want boom", v.Err())
	}
}

func TestValue_SelfPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("setting a value to itself should panic")
		}
	}()
	v := NewValue()
	v.Set(v)
}
