// Package dispatch executes individual event handlers.
//
// The Executor isolates each handler invocation: a panic is recovered and
// turned into a Result carrying the panic value and stack, so a misbehaving
// handler cannot take down the run loop or its sibling handlers.
//
// # Usage
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithPanicHandler(func(e *event.Event, h *event.Handler, v any, stack []byte) {
//	        log.Error("handler panicked", "handler", h, "panic", v)
//	    }),
//	)
//	result := exec.Execute(h, e)
//	if !result.IsSuccess() {
//	    // result.Err is the returned error or an *event.PanicError
//	}
//
// Call runs an arbitrary function with the same protection; the manager
// uses it for tick callbacks and suspended tasks.
package dispatch
