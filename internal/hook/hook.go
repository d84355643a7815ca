package hook

import (
	"fmt"
	"reflect"
)

// base carries the bookkeeping shared by all hook variants: the claimed
// slot, the saved original, and install state.
type base[F any] struct {
	name      string
	reg       *Set
	slot      Slot[F]
	original  F
	installed bool
}

// Name returns the handle's diagnostic name.
func (b *base[F]) Name() string { return b.name }

// Installed reports whether the hook currently patches a slot.
func (b *base[F]) Installed() bool { return b.installed }

// Original returns the call-through entry point saved at install time.
// The zero value is returned while the hook is not installed.
func (b *base[F]) Original() F { return b.original }

// Remove restores the slot's saved original. Removing a hook that is
// not installed is a no-op.
func (b *base[F]) Remove() error {
	if !b.installed {
		return nil
	}

	b.slot.Store(b.original)
	if b.reg != nil {
		b.reg.release(b.slot.Key())
	}

	var zero F
	b.original = zero
	b.slot = nil
	b.installed = false
	return nil
}

func (b *base[F]) claim(slot Slot[F]) error {
	if b.installed {
		return fmt.Errorf("%w: %s", ErrInstalled, b.name)
	}
	if b.reg != nil {
		if err := b.reg.claim(slot.Key(), b.name); err != nil {
			return err
		}
	}

	b.slot = slot
	b.original = slot.Load()
	b.installed = true
	return nil
}

// funcTypeOf resolves the reflect type of the signature parameter.
func funcTypeOf[F any]() (reflect.Type, error) {
	t := reflect.TypeOf((*F)(nil)).Elem()
	if t.Kind() != reflect.Func {
		return nil, ErrNotFunc
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic signatures cannot be hooked", ErrSignatureMismatch)
	}
	return t, nil
}

// Pre observes calls immediately before the original runs. The observer
// receives the call's arguments and cannot alter or suppress the call.
type Pre[F any] struct {
	base[F]
}

// NewPre creates an observe-before handle. reg may be nil to skip
// slot-exclusivity tracking.
func NewPre[F any](reg *Set, name string) *Pre[F] {
	return &Pre[F]{base[F]{name: name, reg: reg}}
}

// Install patches the slot so observe runs before the original on every
// call. observe must be a func taking exactly the hooked signature's
// parameters and returning nothing.
func (h *Pre[F]) Install(slot Slot[F], observe any) error {
	ft, err := funcTypeOf[F]()
	if err != nil {
		return err
	}
	ov := reflect.ValueOf(observe)
	if err := checkObserver(ft, ov, 0); err != nil {
		return err
	}

	if err := h.claim(slot); err != nil {
		return err
	}

	orig := reflect.ValueOf(h.original)
	wrapped := reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		ov.Call(in)
		return orig.Call(in)
	})
	slot.Store(wrapped.Interface().(F))
	return nil
}

// Post observes calls immediately after the original returns. The
// observer receives the call's arguments followed by its results.
type Post[F any] struct {
	base[F]
}

// NewPost creates an observe-after handle. reg may be nil to skip
// slot-exclusivity tracking.
func NewPost[F any](reg *Set, name string) *Post[F] {
	return &Post[F]{base[F]{name: name, reg: reg}}
}

// Install patches the slot so observe runs after the original on every
// call. observe must be a func taking the hooked signature's parameters
// followed by its results, returning nothing.
func (h *Post[F]) Install(slot Slot[F], observe any) error {
	ft, err := funcTypeOf[F]()
	if err != nil {
		return err
	}
	ov := reflect.ValueOf(observe)
	if err := checkObserver(ft, ov, ft.NumOut()); err != nil {
		return err
	}

	if err := h.claim(slot); err != nil {
		return err
	}

	orig := reflect.ValueOf(h.original)
	wrapped := reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		out := orig.Call(in)
		ov.Call(append(append(make([]reflect.Value, 0, len(in)+len(out)), in...), out...))
		return out
	})
	slot.Store(wrapped.Interface().(F))
	return nil
}

// checkObserver validates an observer against the hooked signature: it
// must take the signature's parameters, then trailing result types when
// results > 0, and return nothing.
func checkObserver(ft reflect.Type, ov reflect.Value, results int) error {
	if !ov.IsValid() || ov.Kind() != reflect.Func {
		return fmt.Errorf("%w: observer is not a function", ErrSignatureMismatch)
	}
	ot := ov.Type()

	wantIn := ft.NumIn() + results
	if ot.NumIn() != wantIn || ot.IsVariadic() {
		return fmt.Errorf("%w: observer takes %d parameters, want %d", ErrSignatureMismatch, ot.NumIn(), wantIn)
	}
	for i := 0; i < ft.NumIn(); i++ {
		if ot.In(i) != ft.In(i) {
			return fmt.Errorf("%w: observer parameter %d is %s, want %s", ErrSignatureMismatch, i, ot.In(i), ft.In(i))
		}
	}
	for i := 0; i < results; i++ {
		if ot.In(ft.NumIn()+i) != ft.Out(i) {
			return fmt.Errorf("%w: observer parameter %d is %s, want result type %s",
				ErrSignatureMismatch, ft.NumIn()+i, ot.In(ft.NumIn()+i), ft.Out(i))
		}
	}
	if ot.NumOut() != 0 {
		return fmt.Errorf("%w: observer must not return values", ErrSignatureMismatch)
	}
	return nil
}
