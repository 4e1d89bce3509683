// Package watch provides a component that turns file system notifications
// into events.
//
// A Watcher fires one event per change on its own channel. Event names are
// "created", "written", "removed", "renamed" and "chmod"; the single
// argument is the path. Watch failures are fired as "watch_error" with the
// error as argument.
//
// The watcher opens itself when the root's run loop starts and closes when
// it stops. Open and Close may also be called directly.
package watch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/switchyard/internal/event"
	"github.com/dshills/switchyard/internal/manager"
)

// Names of the events a Watcher fires.
const (
	EventCreated = "created"
	EventWritten = "written"
	EventRemoved = "removed"
	EventRenamed = "renamed"
	EventChmod   = "chmod"
	EventError   = "watch_error"
)

// DefaultChannel is the channel used when none is configured.
const DefaultChannel = "watch"

var (
	// ErrClosed is returned when adding paths to a closed watcher.
	ErrClosed = errors.New("watcher closed")

	// ErrPathNotExist is returned when a watched path does not exist.
	ErrPathNotExist = errors.New("path does not exist")
)

// Watcher watches paths and fires their changes as events.
type Watcher struct {
	*manager.Manager

	channel  string
	mu       sync.Mutex
	paths    []string
	fsw      *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	ignoreFn func(path string) bool

	fired    atomic.Uint64
	failures atomic.Uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithChannel sets the channel changes are fired on.
func WithChannel(channel string) Option {
	return func(w *Watcher) {
		w.channel = channel
	}
}

// IgnoreHidden skips paths whose base name starts with a dot.
func IgnoreHidden() Option {
	return func(w *Watcher) {
		prev := w.ignoreFn
		w.ignoreFn = func(path string) bool {
			base := filepath.Base(path)
			return (len(base) > 0 && base[0] == '.') || (prev != nil && prev(path))
		}
	}
}

// IgnorePattern skips paths whose base name matches the glob pattern.
func IgnorePattern(pattern string) Option {
	return func(w *Watcher) {
		prev := w.ignoreFn
		w.ignoreFn = func(path string) bool {
			ok, _ := filepath.Match(pattern, filepath.Base(path))
			return ok || (prev != nil && prev(path))
		}
	}
}

// New creates a watcher for paths. It does not watch anything until opened.
func New(paths []string, opts ...Option) *Watcher {
	w := &Watcher{
		channel: DefaultChannel,
		paths:   append([]string(nil), paths...),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.Manager = manager.New(manager.WithName("watch"), manager.WithChannel(w.channel))
	w.Handle(event.NameStarted, w.onStarted, event.WithTarget(event.Any))
	w.Handle(event.NameStopped, w.onStopped, event.WithTarget(event.Any))
	return w
}

func (w *Watcher) onStarted(*event.Event) (any, error) {
	return nil, w.Open()
}

func (w *Watcher) onStopped(*event.Event) (any, error) {
	return nil, w.Close()
}

// Open starts watching the configured paths. Opening an open watcher is a
// no-op.
func (w *Watcher) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("open watcher: %w", err)
	}
	for _, p := range w.paths {
		if err := addPath(fsw, p); err != nil {
			_ = fsw.Close()
			return err
		}
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.loop(fsw, w.done)

	w.Logger().Info("watching", "paths", w.paths, "channel", w.Channel())
	return nil
}

// Add watches another path. If the watcher is open the path is added
// immediately.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		if err := addPath(w.fsw, path); err != nil {
			return err
		}
	}
	w.paths = append(w.paths, path)
	return nil
}

// Paths returns the watched paths.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

// IsOpen reports whether the watcher is watching.
func (w *Watcher) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsw != nil
}

// Close stops watching. Closing a closed watcher is a no-op.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fsw := w.fsw
	if fsw == nil {
		w.mu.Unlock()
		return nil
	}
	w.fsw = nil
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
	return fsw.Close()
}

// Fired returns the number of change events fired.
func (w *Watcher) Fired() uint64 {
	return w.fired.Load()
}

// Failures returns the number of watch errors reported.
func (w *Watcher) Failures() uint64 {
	return w.failures.Load()
}

func addPath(fsw *fsnotify.Watcher, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("watch %s: %w", path, ErrPathNotExist)
		}
		return err
	}
	if err := fsw.Add(abs); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	return nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.failures.Add(1)
			w.Push(event.New(EventError, err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.ignoreFn != nil && w.ignoreFn(ev.Name) {
		return
	}
	for _, name := range opNames(ev.Op) {
		w.fired.Add(1)
		w.Push(event.New(name, ev.Name))
	}
}

// opNames returns the event names for the operations set in op.
func opNames(op fsnotify.Op) []string {
	var names []string
	if op.Has(fsnotify.Create) {
		names = append(names, EventCreated)
	}
	if op.Has(fsnotify.Write) {
		names = append(names, EventWritten)
	}
	if op.Has(fsnotify.Remove) {
		names = append(names, EventRemoved)
	}
	if op.Has(fsnotify.Rename) {
		names = append(names, EventRenamed)
	}
	if op.Has(fsnotify.Chmod) {
		names = append(names, EventChmod)
	}
	return names
}
