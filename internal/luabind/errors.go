package luabind

import "errors"

// Errors for Lua runtime operations.
var (
	// ErrStateClosed is returned when operating on a closed runtime.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrStackImbalance is returned when a handler call leaves the Lua
	// stack at a different height than it found it.
	ErrStackImbalance = errors.New("lua stack imbalance after handler call")

	// ErrBadHandlerRef is returned when a handler reference does not
	// name a retained Lua function.
	ErrBadHandlerRef = errors.New("unknown lua handler reference")
)
