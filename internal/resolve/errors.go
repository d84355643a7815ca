package resolve

import "errors"

// Errors for address and table resolution.
var (
	// ErrNotFound is returned when a probe cannot locate its target in
	// the image.
	ErrNotFound = errors.New("target not found in image")

	// ErrUnknownSymbol is returned when no probe is registered for a
	// requested symbol.
	ErrUnknownSymbol = errors.New("no probe registered for symbol")

	// ErrJumpChain is returned when a trampoline chain exceeds the hop
	// limit, which usually means the image is corrupt or hostile.
	ErrJumpChain = errors.New("trampoline chain too long")
)
