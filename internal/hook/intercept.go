package hook

import "fmt"

// Intercept lets wrappers decide whether and how to invoke the original
// function. Wraps receive the next function in the chain (ultimately
// the saved original) and return the replacement to expose.
type Intercept[F any] struct {
	base[F]
	wraps []func(next F) F
}

// NewIntercept creates a full-intercept handle. reg may be nil to skip
// slot-exclusivity tracking.
func NewIntercept[F any](reg *Set, name string) *Intercept[F] {
	return &Intercept[F]{base: base[F]{name: name, reg: reg}}
}

// Install adds wrap to the chain over slot. The first call claims the
// slot; later calls must target the same slot and append to the chain.
// Wraps run in registration order: the first installed sees the call
// first and its "next" leads through the rest to the original.
func (h *Intercept[F]) Install(slot Slot[F], wrap func(next F) F) error {
	if _, err := funcTypeOf[F](); err != nil {
		return err
	}
	if wrap == nil {
		return fmt.Errorf("%w: nil wrap", ErrSignatureMismatch)
	}

	if h.installed {
		if slot.Key() != h.slot.Key() {
			return fmt.Errorf("%w: %s is bound to a different slot", ErrInstalled, h.name)
		}
		h.wraps = append(h.wraps, wrap)
		h.slot.Store(h.chain())
		return nil
	}

	if err := h.claim(slot); err != nil {
		return err
	}
	h.wraps = append(h.wraps[:0], wrap)
	slot.Store(h.chain())
	return nil
}

// Remove restores the original and drops the whole chain.
func (h *Intercept[F]) Remove() error {
	h.wraps = h.wraps[:0]
	return h.base.Remove()
}

// chain builds the replacement function. Wraps are applied from last to
// first so that the first registered wrap ends up outermost.
func (h *Intercept[F]) chain() F {
	next := h.original
	for i := len(h.wraps) - 1; i >= 0; i-- {
		next = h.wraps[i](next)
	}
	return next
}
