// Package dispatch owns symbolic event subscriptions and fans node
// events out to scripting-runtime handlers.
//
// # Subscriptions and resolution
//
// A subscription names its target symbolically: (name, arity, phase).
// Registration always succeeds and the record is never dropped. Symbolic
// names only become node keys once a story is loaded, so resolution runs
// on StoryLoaded — and again on every reload, because node identities do
// not survive a reload. A subscription that fails to resolve (unknown
// symbol, non-hookable kind, delete phase on an event or call) is logged
// and stays inert until the next load gives it another chance.
//
// # Dispatch
//
// The host integration layer drives the Events entry points at its
// insert/delete/call/query/event evaluation points. Each entry point
// derives the packed node key for (id, phase) and runs the bound
// handlers in registration order. The handler list is snapshotted
// through a pending.Pool before invocation, so a handler subscribing to
// the key currently dispatching takes effect on the next event, not the
// current round. While a story merge is in progress all events are
// dropped, not queued.
//
// # Failure containment
//
// A handler failure is logged and confined to that handler; the rest of
// the round and the host's own evaluation proceed. Internal dispatcher
// faults (stack accounting, invalid keys) are logged distinctly from
// handler failures so the two are never conflated.
package dispatch
