// Package event provides the event record, result futures, handler
// descriptors and the channel-indexed handler registry used by the
// switchyard runtime.
//
// # Keys
//
// Every handler is indexed by a Key, a (target, channel) pair. The target is
// the channel identity of the component that owns the handler and the channel
// is, by convention, the name of the event the handler reacts to. Either half
// may be the wildcard Any ("*"):
//
//	("*", "ping")   - ping events fired at any component
//	("p", "*")      - every event fired at component p
//	("p", "ping")   - ping events fired at component p
//
// Handlers declared without any channel are global and see every event.
//
// # Resolution Order
//
// Registry.Resolve returns the handlers for a concrete key in four tiers:
//
//  1. global handlers (no channel)
//  2. handlers on (Any, channel)
//  3. handlers on (target, Any)
//  4. handlers on (target, channel)
//
// Inside a tier handlers are ordered by priority (higher first), filters
// before plain listeners at equal priority, then by registration sequence.
// A handler that matches several tiers is returned once, at its first tier.
//
// When the lookup key itself contains a wildcard, every bucket matching the
// non-wildcard half is merged into a single priority-ordered list.
//
// # Values
//
// Each fired event owns a Value. Handlers' return values are appended to it,
// so an event handled by several handlers carries several results. A Value
// may hold another Value, in which case it is pending until the inner one
// resolves:
//
//	outer := event.NewValue()
//	inner := event.NewValue()
//	outer.Set(inner)   // outer pending
//	inner.Set(42)      // outer resolves to 42
//
// # Thread Safety
//
// Registry and Value are safe for concurrent use. Events are owned by one
// dispatch at a time and must not be mutated while in flight.
package event
