package event

import "sync"

// Value is the placeholder for the results of a fired event.
//
// Each Set appends a result. A result may itself be a *Value, forming a
// chain: the outer Value is pending until every inner Value resolves, and
// resolving an inner Value notifies its owner.
//
// A Value whose event completed without any result is done: it resolves
// to nil instead of staying pending.
type Value struct {
	mu            sync.Mutex
	results       []any
	errors        bool
	done          bool
	parent        *Value
	notifications int
}

// NewValue creates an empty, unresolved Value.
func NewValue() *Value {
	return &Value{}
}

// Set records a result. Setting another *Value links it as an inner value
// whose resolution propagates to v.
func (v *Value) Set(x any) {
	if inner, ok := x.(*Value); ok {
		if inner == v {
			panic("event: value cannot contain itself")
		}
		inner.mu.Lock()
		inner.parent = v
		inner.mu.Unlock()

		v.mu.Lock()
		v.results = append(v.results, inner)
		v.mu.Unlock()

		v.notify()
		return
	}

	v.mu.Lock()
	v.results = append(v.results, x)
	v.mu.Unlock()
	v.notify()
}

// SetError records err as a result and marks the value as failed.
func (v *Value) SetError(err error) {
	v.mu.Lock()
	v.errors = true
	v.mu.Unlock()
	v.Set(err)
}

// Done marks the value complete. An empty value then resolves to nil and
// notifies its owner; a value with results is unaffected.
func (v *Value) Done() {
	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		return
	}
	v.done = true
	empty := len(v.results) == 0
	v.mu.Unlock()

	if empty {
		v.notify()
	}
}

// IsDone reports whether Done was called.
func (v *Value) IsDone() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

// notify counts a change and cascades it to the owning value.
func (v *Value) notify() {
	v.mu.Lock()
	v.notifications++
	parent := v.parent
	v.mu.Unlock()

	if parent != nil {
		parent.notify()
	}
}

// Get dereferences the chain. It returns the single result, or a []any when
// several handlers contributed. resolved is false while no result exists or
// any inner value is unresolved. A done value without results resolves to
// nil.
func (v *Value) Get() (value any, resolved bool) {
	results, ok := v.Results()
	if !ok {
		return nil, false
	}
	switch len(results) {
	case 0:
		return nil, true
	case 1:
		return results[0], true
	}
	return results, true
}

// First returns the first dereferenced result.
func (v *Value) First() (any, bool) {
	results, ok := v.Results()
	if !ok || len(results) == 0 {
		return nil, ok
	}
	return results[0], true
}

// Results returns every dereferenced result in the order they were set.
// A done value without results returns an empty slice.
func (v *Value) Results() ([]any, bool) {
	v.mu.Lock()
	slots := make([]any, len(v.results))
	copy(slots, v.results)
	done := v.done
	v.mu.Unlock()

	if len(slots) == 0 {
		if done {
			return []any{}, true
		}
		return nil, false
	}
	out := make([]any, 0, len(slots))
	for _, s := range slots {
		if inner, ok := s.(*Value); ok {
			iv, ok := inner.Get()
			if !ok {
				return nil, false
			}
			out = append(out, iv)
			continue
		}
		out = append(out, s)
	}
	return out, true
}

// Resolved reports whether the value has at least one result or is done,
// and has no unresolved inner value.
func (v *Value) Resolved() bool {
	v.mu.Lock()
	settled := len(v.results) > 0 || v.done
	v.mu.Unlock()
	return settled && !v.Pending()
}

// Pending reports whether any inner value is still unresolved.
// An empty value is not pending.
func (v *Value) Pending() bool {
	v.mu.Lock()
	slots := make([]any, len(v.results))
	copy(slots, v.results)
	v.mu.Unlock()

	for _, s := range slots {
		if inner, ok := s.(*Value); ok && !inner.Resolved() {
			return true
		}
	}
	return false
}

// Errors reports whether this value or any inner value recorded an error.
func (v *Value) Errors() bool {
	return v.hasErrorFlag() || v.Err() != nil
}

func (v *Value) hasErrorFlag() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errors
}

// Err returns the first error recorded by SetError in the chain, or nil.
func (v *Value) Err() error {
	v.mu.Lock()
	slots := make([]any, len(v.results))
	copy(slots, v.results)
	failed := v.errors
	v.mu.Unlock()

	for _, s := range slots {
		switch x := s.(type) {
		case *Value:
			if err := x.Err(); err != nil {
				return err
			}
		case error:
			if failed {
				return x
			}
		}
	}
	return nil
}

// Notifications returns how many change notifications reached this value.
func (v *Value) Notifications() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notifications
}
