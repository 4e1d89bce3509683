package event

import (
	"slices"
	"sort"
	"sync"
)

// Registry indexes handlers by Key. It is thread-safe for concurrent access.
type Registry struct {
	mu      sync.RWMutex
	global  []*Handler
	buckets map[Key][]*Handler
	members map[*Handler]int
}

// Bucket is a snapshot of one registry entry.
type Bucket struct {
	Key      Key
	Global   bool
	Handlers []*Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		buckets: make(map[Key][]*Handler),
		members: make(map[*Handler]int),
	}
}

// Register adds h under every key it declares, or to the global list when
// it declares no channels.
func (r *Registry) Register(h *Handler) {
	if h == nil {
		panic(ErrNilHandler)
	}
	if h.IsGlobal() {
		r.AddGlobal(h)
		return
	}
	for _, k := range h.Keys() {
		r.Add(h, k)
	}
}

// Add inserts h into the bucket for key, keeping the bucket sorted.
// Adding a handler already in the bucket is a no-op.
func (r *Registry) Add(h *Handler, key Key) {
	if h == nil {
		panic(ErrNilHandler)
	}
	key.validate()

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.buckets[key]
	if slices.Contains(bucket, h) {
		return
	}
	r.buckets[key] = insertSorted(bucket, h)
	r.members[h]++
}

// AddGlobal inserts h into the global list.
func (r *Registry) AddGlobal(h *Handler) {
	if h == nil {
		panic(ErrNilHandler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.global, h) {
		return
	}
	r.global = insertSorted(r.global, h)
	r.members[h]++
}

// Remove removes h from the bucket for key. Removing an absent handler is a no-op.
func (r *Registry) Remove(h *Handler, key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.buckets[key]
	if !ok {
		return
	}
	i := slices.Index(bucket, h)
	if i < 0 {
		return
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) == 0 {
		delete(r.buckets, key)
	} else {
		r.buckets[key] = bucket
	}
	r.release(h)
}

// RemoveAll removes h from the global list and every bucket.
func (r *Registry) RemoveAll(h *Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[h]; !ok {
		return
	}
	if i := slices.Index(r.global, h); i >= 0 {
		r.global = slices.Delete(r.global, i, i+1)
	}
	for key, bucket := range r.buckets {
		i := slices.Index(bucket, h)
		if i < 0 {
			continue
		}
		bucket = slices.Delete(bucket, i, i+1)
		if len(bucket) == 0 {
			delete(r.buckets, key)
		} else {
			r.buckets[key] = bucket
		}
	}
	delete(r.members, h)
}

// release drops one membership count. Caller holds the lock.
func (r *Registry) release(h *Handler) {
	if n := r.members[h]; n > 1 {
		r.members[h] = n - 1
	} else {
		delete(r.members, h)
	}
}

// Contains reports whether h is registered anywhere.
func (r *Registry) Contains(h *Handler) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[h]
	return ok
}

// Resolve returns the handlers for key in dispatch order without duplicates.
func (r *Registry) Resolve(key Key) []*Handler {
	key.validate()

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[*Handler]struct{})
	var out []*Handler
	appendTier := func(hs []*Handler) {
		for _, h := range hs {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			out = append(out, h)
		}
	}

	appendTier(r.global)

	if key.IsWildcard() {
		var merged []*Handler
		for k, hs := range r.buckets {
			if key.Target != Any && k.Target != key.Target {
				continue
			}
			if key.Channel != Any && k.Channel != key.Channel {
				continue
			}
			merged = append(merged, hs...)
		}
		sort.SliceStable(merged, func(i, j int) bool {
			return before(merged[i], merged[j])
		})
		appendTier(merged)
		return out
	}

	appendTier(r.buckets[Key{Target: Any, Channel: key.Channel}])
	appendTier(r.buckets[Key{Target: key.Target, Channel: Any}])
	appendTier(r.buckets[key])
	return out
}

// Buckets returns a snapshot of every bucket, the global list first, then
// buckets sorted by key.
func (r *Registry) Buckets() []Bucket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Bucket
	if len(r.global) > 0 {
		out = append(out, Bucket{Global: true, Handlers: slices.Clone(r.global)})
	}
	keys := make([]Key, 0, len(r.buckets))
	for k := range r.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Target != keys[j].Target {
			return keys[i].Target < keys[j].Target
		}
		return keys[i].Channel < keys[j].Channel
	})
	for _, k := range keys {
		out = append(out, Bucket{Key: k, Handlers: slices.Clone(r.buckets[k])})
	}
	return out
}

// Count returns the number of distinct registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Clear removes every handler.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.global = nil
	r.buckets = make(map[Key][]*Handler)
	r.members = make(map[*Handler]int)
}

// insertSorted inserts h at its ordered position.
func insertSorted(hs []*Handler, h *Handler) []*Handler {
	i := sort.Search(len(hs), func(i int) bool {
		return before(h, hs[i])
	})
	return slices.Insert(hs, i, h)
}
