// Package script loads components whose handlers are written in Lua.
//
// A script declares handlers with on and fires events with fire:
//
//	CHANNEL = "greeter"
//
//	on("hello", function(ev)
//	    log("hello from " .. ev.args[1])
//	    fire("greeted", ev.args[1])
//	    return "hi " .. ev.args[1]
//	end, { priority = 5 })
//
// The handler receives a table with name, args, kwargs, target and channel
// fields. Its first return value becomes a result of the event; raising a
// Lua error fails the handler. The on options table accepts priority,
// filter and target.
//
// Scripts run in a sandbox with only the base, table, string and math
// libraries. Functions that load code, such as dofile and require, are removed, and print
// writes to the script logger.
package script
