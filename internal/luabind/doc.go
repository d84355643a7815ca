// Package luabind embeds a Lua runtime as the handler host for story
// event subscriptions.
//
// This package wraps the gopher-lua library to provide:
//   - A sandboxed Lua state owning the retained handler functions
//   - The pin/session discipline the dispatch layer calls through
//   - Protected handler calls with stack-balance verification
//   - The outward `story` module for Lua scripts
//
// # Runtime
//
// The Runtime type owns one Lua state and the handler registry:
//
//	rt, err := luabind.NewRuntime(log)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	mgr := dispatch.NewManager(rt, table, binder, log)
//	rt.OpenModule(mgr)
//
//	if err := rt.DoFile("handlers.lua"); err != nil {
//	    log.Fatal(err)
//	}
//
// gopher-lua's LState is not goroutine-safe. A Runtime and every
// dispatcher feeding it must live on a single goroutine; there is no
// internal locking.
//
// # Handlers
//
// Lua functions passed to story.Subscribe are retained in the runtime
// registry for the life of the process. Handler references are dense
// indexes into that registry; they are never recycled, matching the
// lifetime of the subscription records that hold them.
//
// # The story module
//
// OpenModule installs a global `story` table for scripts:
//
//	story.Subscribe("OnCombatStart", 1, "after", function(combatGuid)
//	    print("combat started: " .. combatGuid)
//	end)
//
// Phase strings are "before", "after", "beforeDelete" and "afterDelete".
package luabind
