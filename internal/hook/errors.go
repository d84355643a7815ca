package hook

import "errors"

// Errors for hook installation.
var (
	// ErrNotFunc is returned when the slot's type parameter is not a
	// function type.
	ErrNotFunc = errors.New("hook target is not a function type")

	// ErrSignatureMismatch is returned when an observer's signature does
	// not line up with the hooked function's.
	ErrSignatureMismatch = errors.New("observer signature mismatch")

	// ErrSlotTaken is returned when another hook is already installed
	// over the same slot.
	ErrSlotTaken = errors.New("slot already hooked")

	// ErrInstalled is returned when a handle that is already bound to a
	// slot is installed against a different one.
	ErrInstalled = errors.New("hook already installed")
)
