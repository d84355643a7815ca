package dispatch

import "github.com/dwrance/storyhook/internal/story"

// HandlerRef is an opaque reference to a scripting-runtime callable.
// The dispatcher stores and forwards it without inspecting it.
type HandlerRef any

// Runtime is the scripting-runtime boundary. Pin marks the start of a
// dispatch interaction with the runtime's state; it reports false when
// the runtime is unavailable (shut down, or mid-reset), in which case
// the event is skipped.
type Runtime interface {
	Pin() (Session, bool)
}

// Session is one pinned interaction with the scripting runtime. Call
// invokes a retained handler with the event's arguments; failures are
// wrapped with ErrHandlerFailed or ErrInternal. Release ends the pin.
type Session interface {
	Call(ref HandlerRef, args *story.Args) error
	Release()
}

// Binder installs the dispatcher's hooks into the host engine so the
// Events entry points start firing. The dispatcher calls it lazily, at
// most once per process lifetime.
type Binder interface {
	Bind(events Events) error
}

// Events is the set of entry points the host integration layer drives
// at its rule-evaluation points.
type Events interface {
	// InsertPre fires before a tuple is inserted into (or, with deleted
	// set, removed from) a graph node.
	InsertPre(nodeID uint32, args *story.Args, deleted bool)
	// InsertPost fires after the insertion or removal.
	InsertPost(nodeID uint32, args *story.Args, deleted bool)
	// CallQueryPre fires before a node-backed call or query runs.
	CallQueryPre(nodeID uint32, args *story.Args)
	// CallQueryPost fires after a node-backed call or query returns.
	CallQueryPost(nodeID uint32, args *story.Args, succeeded bool)
	// CallPre fires before a built-in call runs.
	CallPre(functionID uint32, args *story.Args)
	// CallPost fires after a built-in call returns.
	CallPost(functionID uint32, args *story.Args, succeeded bool)
	// EventPre fires before an engine event is delivered.
	EventPre(functionID uint32, args *story.Args)
	// EventPost fires after an engine event is delivered.
	EventPost(functionID uint32, args *story.Args)
}
