package dispatch

import "errors"

// Errors classifying handler invocation outcomes. Runtime
// implementations wrap their failures with one of these so the
// dispatcher can tell a misbehaving handler from a broken dispatcher.
var (
	// ErrHandlerFailed marks a failure reported by the scripting runtime
	// while running one handler.
	ErrHandlerFailed = errors.New("handler failed")

	// ErrInternal marks an unexpected condition around a handler call
	// that is not the handler's own reported failure.
	ErrInternal = errors.New("internal dispatch error")
)
