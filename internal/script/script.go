package script

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/logging"
	"github.com/dshills/switchyard/internal/manager"
)

// Script is a component whose handlers are Lua functions.
//
// gopher-lua states are not goroutine-safe; every call into the state is
// serialized by the script's mutex.
type Script struct {
	*manager.Manager

	name   string
	logger *logging.Logger

	mu     sync.Mutex
	state  *lua.LState
	decls  []declaration
	closed bool
}

type declaration struct {
	channel string
	fn      *lua.LFunction
	opts    []event.HandlerOption
}

// Option configures a Script.
type Option func(*options)

type options struct {
	channel string
	logger  *logging.Logger
}

// WithChannel sets the component channel, overriding the CHANNEL global.
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = channel
	}
}

// WithLogger sets the logger used by log and print.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Load runs the Lua file at path and returns the component it declares.
func Load(path string, opts ...Option) (*Script, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return load(name, opts, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// LoadString runs src as a script named name.
func LoadString(name, src string, opts ...Option) (*Script, error) {
	return load(name, opts, func(L *lua.LState) error {
		return L.DoString(src)
	})
}

func load(name string, opts []Option, run func(L *lua.LState) error) (*Script, error) {
	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Script{
		name:   name,
		logger: o.logger.With("script", name),
		state:  newSandbox(),
	}
	s.installAPI()

	if err := s.protect(func() error { return run(s.state) }); err != nil {
		s.state.Close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}

	channel := o.channel
	if channel == "" {
		if lv, ok := s.state.GetGlobal("CHANNEL").(lua.LString); ok {
			channel = string(lv)
		}
	}
	s.Manager = manager.New(manager.WithName(name), manager.WithChannel(channel))

	for _, d := range s.decls {
		s.Handle(d.channel, s.wrap(d.fn), d.opts...)
	}
	s.decls = nil
	return s, nil
}

// newSandbox creates a Lua state with only safe libraries.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// installAPI registers the functions scripts use to talk to the tree.
func (s *Script) installAPI() {
	s.state.SetGlobal("on", s.state.NewFunction(s.luaOn))
	s.state.SetGlobal("fire", s.state.NewFunction(s.luaFire))
	s.state.SetGlobal("fire_at", s.state.NewFunction(s.luaFireAt))
	s.state.SetGlobal("log", s.state.NewFunction(s.luaLog))
	s.state.SetGlobal("print", s.state.NewFunction(s.luaLog))
	s.state.SetGlobal("stop", s.state.NewFunction(s.luaStop))
}

// luaOn implements on(name, fn [, opts]).
func (s *Script) luaOn(L *lua.LState) int {
	channel := L.CheckString(1)
	fn := L.CheckFunction(2)
	if channel == "" {
		L.ArgError(1, ErrBadDeclaration.Error()+": empty channel")
		return 0
	}

	var opts []event.HandlerOption
	if tbl, ok := L.Get(3).(*lua.LTable); ok {
		if p, ok := L.GetField(tbl, "priority").(lua.LNumber); ok {
			opts = append(opts, event.WithPriority(float64(p)))
		}
		if lua.LVAsBool(L.GetField(tbl, "filter")) {
			opts = append(opts, event.AsFilter())
		}
		if t, ok := L.GetField(tbl, "target").(lua.LString); ok && t != "" {
			opts = append(opts, event.WithTarget(string(t)))
		}
	}
	opts = append(opts, event.WithName(s.name+"."+channel))

	d := declaration{channel: channel, fn: fn, opts: opts}
	if s.Manager == nil {
		s.decls = append(s.decls, d)
		return 0
	}
	s.Handle(d.channel, s.wrap(d.fn), d.opts...)
	return 0
}

// luaFire implements fire(name, ...).
func (s *Script) luaFire(L *lua.LState) int {
	name := L.CheckString(1)
	s.fire(L, name, "", 2)
	return 0
}

// luaFireAt implements fire_at(target, name, ...).
func (s *Script) luaFireAt(L *lua.LState) int {
	target := L.CheckString(1)
	name := L.CheckString(2)
	s.fire(L, name, target, 3)
	return 0
}

func (s *Script) fire(L *lua.LState, name, target string, first int) {
	if s.Manager == nil {
		L.RaiseError("fire(%q) called while loading", name)
		return
	}
	var args []any
	for i := first; i <= L.GetTop(); i++ {
		args = append(args, toGo(L.Get(i)))
	}
	var opts []manager.FireOption
	if target != "" {
		opts = append(opts, manager.ToTarget(target))
	}
	s.Fire(event.New(name, args...), opts...)
}

// luaLog implements log(...) and print(...).
func (s *Script) luaLog(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.logger.Info(strings.Join(parts, " "))
	return 0
}

// luaStop implements stop().
func (s *Script) luaStop(L *lua.LState) int {
	if s.Manager != nil {
		s.Stop()
	}
	return 0
}

// wrap adapts a Lua function to an event handler.
func (s *Script) wrap(fn *lua.LFunction) event.Func {
	return func(e *event.Event) (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.closed {
			return nil, ErrClosed
		}

		var result any
		err := s.protect(func() error {
			if err := s.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, s.eventTable(e)); err != nil {
				return err
			}
			result = toGo(s.state.Get(-1))
			s.state.Pop(1)
			return nil
		})
		return result, err
	}
}

// eventTable converts e to the table passed to Lua handlers.
func (s *Script) eventTable(e *event.Event) *lua.LTable {
	t := s.state.NewTable()
	t.RawSetString("name", lua.LString(e.Name))
	t.RawSetString("target", lua.LString(e.Target))
	t.RawSetString("channel", lua.LString(e.Channel))
	t.RawSetString("args", toLua(s.state, append([]any{}, e.Args...)))
	kwargs := e.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	t.RawSetString("kwargs", toLua(s.state, kwargs))
	return t
}

// protect converts panics escaping the Lua runtime into errors.
func (s *Script) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Close releases the Lua state. Handlers called afterwards fail with
// ErrClosed.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state.Close()
}
