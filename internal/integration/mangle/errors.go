package mangle

import "errors"

// Errors for story engine operations.
var (
	// ErrNoStory is returned when operating on an engine with no
	// loaded program.
	ErrNoStory = errors.New("no story loaded")

	// ErrUnknownPredicate is returned when a name/arity pair matches
	// no symbol in the loaded program.
	ErrUnknownPredicate = errors.New("unknown predicate")

	// ErrWrongKind is returned when an operation targets a symbol of
	// an incompatible kind, such as calling a database.
	ErrWrongKind = errors.New("operation does not match symbol kind")

	// ErrCallFailed is returned when a host call implementation
	// reports failure.
	ErrCallFailed = errors.New("host call failed")
)
