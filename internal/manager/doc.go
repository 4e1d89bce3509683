// Package manager implements the component tree and the run loop that
// dispatches events through it.
//
// # Components
//
// A Manager is both a component and, when it is the root of its tree, the
// owner of the event queue and handler registry. Types embed *Manager to
// become components:
//
//	type Pinger struct {
//	    *manager.Manager
//	}
//
//	func NewPinger() *Pinger {
//	    p := &Pinger{Manager: manager.New(manager.WithChannel("pinger"))}
//	    p.Handle("ping", p.onPing, event.WithPriority(5))
//	    return p
//	}
//
// Handlers are declared explicitly with Handle, HandleArgs and HandleTask.
// A handler without an explicit target is keyed under the component's
// channel.
//
// # Tree
//
// Register attaches a component to a parent. The component's handlers and
// those of its descendants move into the root's registry, and a
// "registered" event is fired at the component's channel. Unregister
// reverses this and makes the component the root of its own tree again.
// Only the root holds a live queue; every Fire forwards to it.
//
// # Ticks
//
// Tick runs the tick functions of the whole tree, then dispatches a
// snapshot of the queue. Events fired during a tick are dispatched on the
// next one. After dispatch, finished events fire their secondary
// notifications, complete, and wake suspended tasks.
//
// # Tasks
//
// A handler registered with HandleTask (or returning a *Task from Spawn)
// runs as a task that may suspend with Wait, WaitFor or Call until another
// event completes. Only one of the loop and its tasks runs at a time, so
// task code has the same single-threaded view of the tree as a handler.
// Tasks owned by an unregistered component are abandoned, never resumed.
//
// # Thread Safety
//
// Fire and Push may be called from any goroutine. Register, Unregister and
// Tick belong to the root's loop: call them from handlers and tasks, or
// before the loop starts.
package manager
