package resolve

import (
	"go.uber.org/zap"

	"github.com/dwrance/storyhook/internal/mem"
)

// Tables caches one dispatch table per kind, filled in by observing the
// first constructed instance of each kind. T is the table's concrete
// type as seen by the hook layer.
type Tables[T any] struct {
	log   *zap.Logger
	slots []*T
}

// NewTables creates an empty cache for the given number of kinds. log
// may be nil.
func NewTables[T any](kinds int, log *zap.Logger) *Tables[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tables[T]{log: log, slots: make([]*T, kinds)}
}

// Save records the table observed for kind. The first observation wins;
// a later observation of a different table for the same kind is logged
// and ignored, since it would mean the host changed layout mid-run.
func (t *Tables[T]) Save(kind int, table *T) {
	if kind < 0 || kind >= len(t.slots) {
		t.log.Warn("dispatch table observed for unknown kind", zap.Int("kind", kind))
		return
	}
	if prev := t.slots[kind]; prev != nil {
		if prev != table {
			t.log.Warn("conflicting dispatch table observed; keeping first", zap.Int("kind", kind))
		}
		return
	}
	t.slots[kind] = table
}

// Get returns the cached table for kind.
func (t *Tables[T]) Get(kind int) (*T, bool) {
	if kind < 0 || kind >= len(t.slots) || t.slots[kind] == nil {
		return nil, false
	}
	return t.slots[kind], true
}

// Complete reports whether every kind has been observed.
func (t *Tables[T]) Complete() bool {
	for _, s := range t.slots {
		if s == nil {
			return false
		}
	}
	return true
}

// Missing lists the kinds with no observed table yet.
func (t *Tables[T]) Missing() []int {
	var out []int
	for i, s := range t.slots {
		if s == nil {
			out = append(out, i)
		}
	}
	return out
}

// TablePointer reads the dispatch-table pointer from the head of an
// object instance observed in the image. Used when the tables live in
// host memory rather than as typed values.
func TablePointer(img mem.Image, instance mem.Address) (mem.Address, error) {
	p, err := mem.ReadU64(img, instance)
	if err != nil {
		return 0, err
	}
	return mem.Address(p), nil
}
