package hook

import (
	"reflect"
	"sync"
)

// Slot is one hookable function location, typically an entry in a
// per-kind dispatch table. Load and Store must address the same
// location for the lifetime of the slot; Key identifies that location.
type Slot[F any] interface {
	Load() F
	Store(F)
	Key() uintptr
}

// VarSlot adapts a function-typed variable (a dispatch-table field) as
// a Slot.
type VarSlot[F any] struct {
	p *F
}

// NewVarSlot wraps a pointer to a function variable.
func NewVarSlot[F any](p *F) *VarSlot[F] {
	return &VarSlot[F]{p: p}
}

// Load returns the slot's current function.
func (s *VarSlot[F]) Load() F { return *s.p }

// Store replaces the slot's function.
func (s *VarSlot[F]) Store(f F) { *s.p = f }

// Key returns the variable's address.
func (s *VarSlot[F]) Key() uintptr { return reflect.ValueOf(s.p).Pointer() }

// Set tracks which slots currently carry a hook, enforcing at most one
// active interception per slot.
type Set struct {
	mu    sync.Mutex
	taken map[uintptr]string
}

// NewSet returns an empty hook registry.
func NewSet() *Set {
	return &Set{taken: make(map[uintptr]string)}
}

func (s *Set) claim(key uintptr, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if holder, ok := s.taken[key]; ok {
		return &slotTakenError{holder: holder, claimant: name}
	}
	s.taken[key] = name
	return nil
}

func (s *Set) release(key uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.taken, key)
}

type slotTakenError struct {
	holder   string
	claimant string
}

func (e *slotTakenError) Error() string {
	return "slot already hooked by " + e.holder + " (requested by " + e.claimant + ")"
}

func (e *slotTakenError) Unwrap() error { return ErrSlotTaken }
