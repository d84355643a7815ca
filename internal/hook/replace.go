package hook

// Replace swaps a function slot out entirely. The original is saved
// once at install time and stays reachable through Original so the
// replacement can delegate.
type Replace[F any] struct {
	base[F]
}

// NewReplace creates a full-replace handle. reg may be nil to skip
// slot-exclusivity tracking.
func NewReplace[F any](reg *Set, name string) *Replace[F] {
	return &Replace[F]{base[F]{name: name, reg: reg}}
}

// Install stores repl into the slot, saving the previous function for
// removal and delegation.
func (h *Replace[F]) Install(slot Slot[F], repl F) error {
	if _, err := funcTypeOf[F](); err != nil {
		return err
	}
	if err := h.claim(slot); err != nil {
		return err
	}
	slot.Store(repl)
	return nil
}

// FastReplace is the low-overhead variant of Replace for hot-path
// dispatch-table slots: a bare swap with no registry bookkeeping and no
// signature reflection.
type FastReplace[F any] struct {
	slot      Slot[F]
	original  F
	installed bool
}

// NewFastReplace creates a low-overhead replace handle.
func NewFastReplace[F any]() *FastReplace[F] {
	return &FastReplace[F]{}
}

// Install swaps repl into the slot, saving the previous function once.
func (h *FastReplace[F]) Install(slot Slot[F], repl F) error {
	if h.installed {
		return ErrInstalled
	}
	h.slot = slot
	h.original = slot.Load()
	h.installed = true
	slot.Store(repl)
	return nil
}

// Installed reports whether the swap is active.
func (h *FastReplace[F]) Installed() bool { return h.installed }

// Original returns the function saved at install time.
func (h *FastReplace[F]) Original() F { return h.original }

// Remove restores the saved function. A no-op when not installed.
func (h *FastReplace[F]) Remove() error {
	if !h.installed {
		return nil
	}
	h.slot.Store(h.original)
	var zero F
	h.original = zero
	h.slot = nil
	h.installed = false
	return nil
}
