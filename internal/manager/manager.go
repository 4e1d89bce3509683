package manager

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/event/dispatch"
	"github.com/dshills/switchyard/internal/logging"
)

// Component is implemented by every type that embeds *Manager.
type Component interface {
	// Base returns the embedded manager.
	Base() *Manager
}

// TickFunc is called at the start of every tick of the root loop.
type TickFunc func()

// Manager is a component in the tree. The root manager of a tree owns the
// queue, the registry and the run loop.
type Manager struct {
	id      uuid.UUID
	name    string
	channel string

	// parent is the manager this component is registered with, or the
	// component itself when it is a root.
	parent atomic.Pointer[Manager]

	mu         sync.RWMutex
	components []*Manager
	hidden     []*Manager
	handlers   []*event.Handler
	ticks      []TickFunc

	core *core
}

// Option configures a Manager.
type Option func(*Manager)

// WithName sets the manager name used in logs and introspection.
func WithName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.name = name
		}
	}
}

// WithChannel sets the component channel. The default is event.Any.
func WithChannel(channel string) Option {
	return func(m *Manager) {
		if channel != "" {
			m.channel = channel
		}
	}
}

// WithLogger sets the logger used while this manager is a root.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.core.logger = l
		}
	}
}

// WithPollInterval sets the longest the run loop sleeps while idle.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.core.poll = d
		}
	}
}

// WithDrain bounds the drain performed after the run loop stops.
func WithDrain(timeout time.Duration, ticks int) Option {
	return func(m *Manager) {
		if timeout >= 0 {
			m.core.drainTimeout = timeout
		}
		if ticks >= 0 {
			m.core.drainTicks = ticks
		}
	}
}

// New creates a root manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		id:      uuid.New(),
		name:    "manager",
		channel: event.Any,
		core:    newCore(),
	}
	m.parent.Store(m)
	for _, opt := range opts {
		opt(m)
	}
	m.core.logger = m.core.logger.With("manager", m.name)
	m.core.executor = dispatch.NewExecutor(dispatch.WithPanicHandler(m.logPanic))
	return m
}

// Base implements Component.
func (m *Manager) Base() *Manager {
	return m
}

// ID returns the component's unique identity.
func (m *Manager) ID() uuid.UUID {
	return m.id
}

// Name returns the manager name.
func (m *Manager) Name() string {
	return m.name
}

// Channel returns the component channel.
func (m *Manager) Channel() string {
	return m.channel
}

// String returns "name<channel>".
func (m *Manager) String() string {
	return m.name + "<" + m.channel + ">"
}

// Parent returns the manager this component is registered with, or nil for
// a root.
func (m *Manager) Parent() *Manager {
	if p := m.parent.Load(); p != m {
		return p
	}
	return nil
}

// Root returns the root of the tree containing m.
func (m *Manager) Root() *Manager {
	cur := m
	for {
		next := cur.parent.Load()
		if next == cur {
			return cur
		}
		cur = next
	}
}

// IsRoot reports whether m is the root of its tree.
func (m *Manager) IsRoot() bool {
	return m.parent.Load() == m
}

// Components returns the directly registered children.
func (m *Manager) Components() []*Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.components)
}

// Hidden returns the descendants of registered children that are tracked
// for introspection but were not registered with m directly.
func (m *Manager) Hidden() []*Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.hidden)
}

// Handlers returns the handlers this component declared.
func (m *Manager) Handlers() []*event.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.handlers)
}

// Registry returns the registry of the root of m's tree.
func (m *Manager) Registry() *event.Registry {
	return m.Root().core.registry
}

// Logger returns the logger of the root of m's tree.
func (m *Manager) Logger() *logging.Logger {
	return m.Root().core.logger
}

// Handle declares a handler on channel name that receives the event.
// An empty name declares a global handler that sees every event.
func (m *Manager) Handle(name string, fn event.Func, opts ...event.HandlerOption) *event.Handler {
	h := event.NewHandler(fn, handlerOptions(name, opts)...)
	m.AddHandler(h)
	return h
}

// HandleArgs declares a handler on channel name that receives only the
// event's arguments.
func (m *Manager) HandleArgs(name string, fn event.ArgsFunc, opts ...event.HandlerOption) *event.Handler {
	h := event.NewArgsHandler(fn, handlerOptions(name, opts)...)
	m.AddHandler(h)
	return h
}

// TaskFunc is the body of a handler that runs as a task.
type TaskFunc func(t *Task, e *event.Event) (any, error)

// HandleTask declares a handler on channel name whose body runs as a task
// and may suspend. As a filter, the task stops dispatch only if it returns
// a truthy value without suspending; a suspended task never does.
func (m *Manager) HandleTask(name string, fn TaskFunc, opts ...event.HandlerOption) *event.Handler {
	if fn == nil {
		panic(event.ErrNilHandler)
	}
	return m.Handle(name, func(e *event.Event) (any, error) {
		return m.Spawn(func(t *Task) (any, error) {
			return fn(t, e)
		}), nil
	}, opts...)
}

func handlerOptions(name string, opts []event.HandlerOption) []event.HandlerOption {
	if name == "" {
		return opts
	}
	return append([]event.HandlerOption{event.OnChannels(name), event.WithName(name)}, opts...)
}

// AddHandler adds a prebuilt handler to the component. An empty target
// defaults to the component channel. If the component is attached, the
// handler is registered with the root immediately.
func (m *Manager) AddHandler(h *event.Handler) {
	if h == nil {
		panic(event.ErrNilHandler)
	}
	if h.Target == "" {
		h.Target = m.channel
	}
	if h.Owner == nil {
		h.Owner = m
	}

	m.mu.Lock()
	if slices.Contains(m.handlers, h) {
		m.mu.Unlock()
		return
	}
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()

	m.Root().core.registry.Register(h)
}

// RemoveHandler removes a handler from the component and the registry.
// Removing an unknown handler is a no-op.
func (m *Manager) RemoveHandler(h *event.Handler) {
	m.mu.Lock()
	i := slices.Index(m.handlers, h)
	if i < 0 {
		m.mu.Unlock()
		return
	}
	m.handlers = slices.Delete(m.handlers, i, i+1)
	m.mu.Unlock()

	m.Root().core.registry.RemoveAll(h)
}

// AddTick adds a function called at the start of every root tick.
func (m *Manager) AddTick(fn TickFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.ticks = append(m.ticks, fn)
	m.mu.Unlock()
	m.Root().core.ticksDirty.Store(true)
}

func (m *Manager) logPanic(e *event.Event, h *event.Handler, value any, stack []byte) {
	m.core.logger.Debug("handler panicked",
		"event", describe(e),
		"handler", describe(h),
		"panic", value,
		"stack", string(stack),
	)
}

// describe formats v for log attributes, tolerating nil pointers.
func describe[T interface {
	comparable
	String() string
}](v T) string {
	var zero T
	if v == zero {
		return ""
	}
	return v.String()
}
