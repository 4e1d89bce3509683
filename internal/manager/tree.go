package manager

import (
	"fmt"
	"slices"

	"github.com/dshills/switchyard/internal/event"
)

// Register attaches m to parent and returns m. A component registered
// elsewhere is unregistered first. Registering m with itself makes it a
// root. It panics with ErrCycle if parent is a descendant of m.
func (m *Manager) Register(parent Component) *Manager {
	p := parent.Base()
	if p == m {
		m.Unregister()
		return m
	}
	for cur := p; ; cur = cur.parent.Load() {
		if cur == m {
			panic(fmt.Errorf("register %s under %s: %w", m, p, ErrCycle))
		}
		if cur.IsRoot() {
			break
		}
	}
	if m.Parent() == p {
		return m
	}
	m.Unregister()

	root := p.Root()
	subtree := m.subtree()
	for _, c := range subtree {
		for _, h := range c.Handlers() {
			root.core.registry.Register(h)
		}
	}
	root.core.absorb(m.core)
	m.core.registry.Clear()
	m.parent.Store(p)

	p.mu.Lock()
	p.components = append(p.components, m)
	p.hidden = append(p.hidden, subtree[1:]...)
	p.mu.Unlock()

	root.core.ticksDirty.Store(true)
	root.core.fire(event.Registered(m, p), event.NewKey(m.channel, event.NameRegistered))
	return m
}

// Unregister detaches m from its parent. Its handlers and those of its
// descendants leave the root's registry, and tasks they own are abandoned.
// m becomes the root of its own tree. Unregistering a root is a no-op.
func (m *Manager) Unregister() {
	p := m.parent.Load()
	if p == m {
		return
	}
	root := m.Root()
	subtree := m.subtree()

	for _, c := range subtree {
		for _, h := range c.Handlers() {
			root.core.registry.RemoveAll(h)
		}
	}
	root.abandonTasks(subtree)

	p.mu.Lock()
	if i := slices.Index(p.components, m); i >= 0 {
		p.components = slices.Delete(p.components, i, i+1)
	}
	p.hidden = slices.DeleteFunc(p.hidden, func(h *Manager) bool {
		return slices.Contains(subtree, h)
	})
	p.mu.Unlock()

	root.core.ticksDirty.Store(true)
	root.core.fire(event.Unregistered(m, p), event.NewKey(m.channel, event.NameUnregistered))

	m.parent.Store(m)
	for _, c := range subtree {
		for _, h := range c.Handlers() {
			m.core.registry.Register(h)
		}
	}
	m.core.ticksDirty.Store(true)
}

// subtree returns m followed by its descendants in depth-first order.
func (m *Manager) subtree() []*Manager {
	out := []*Manager{m}
	for _, c := range m.Components() {
		out = append(out, c.subtree()...)
	}
	return out
}

// collectTicks gathers the tick functions of the whole tree.
func (m *Manager) collectTicks() []TickFunc {
	var out []TickFunc
	for _, c := range m.subtree() {
		c.mu.RLock()
		out = append(out, c.ticks...)
		c.mu.RUnlock()
	}
	return out
}
