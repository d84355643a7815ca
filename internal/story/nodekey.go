package story

import "fmt"

// Flags is the set of phase-flag bits carried in the high bits of a
// packed node key. The two node-trigger flags may combine; the two
// function flags are mutually exclusive with everything else.
type Flags uint64

// Phase-flag bits. Base identifiers must never reach this range.
const (
	FlagAfterTrigger  Flags = 1 << 63
	FlagDeleteTrigger Flags = 1 << 62
	FlagBeforeCall    Flags = 1 << 61
	FlagAfterCall     Flags = 1 << 60

	flagMask = FlagAfterTrigger | FlagDeleteTrigger | FlagBeforeCall | FlagAfterCall
)

// MaxBaseID is the largest node or function identifier that can be
// packed without colliding with a phase flag.
const MaxBaseID = uint64(FlagAfterCall) - 1

// NodeKey identifies one (node, phase) pair in the rule graph.
type NodeKey struct {
	Base  uint64
	Flags Flags
}

// NodeTriggerKey builds the key for a graph-node trigger.
func NodeTriggerKey(nodeID uint32, after, deleted bool) NodeKey {
	k := NodeKey{Base: uint64(nodeID)}
	if after {
		k.Flags |= FlagAfterTrigger
	}
	if deleted {
		k.Flags |= FlagDeleteTrigger
	}
	return k
}

// FunctionKey builds the key for a function trigger (events and calls).
func FunctionKey(functionID uint32, after bool) NodeKey {
	k := NodeKey{Base: uint64(functionID)}
	if after {
		k.Flags = FlagAfterCall
	} else {
		k.Flags = FlagBeforeCall
	}
	return k
}

// Pack folds the key into its 64-bit map form.
func (k NodeKey) Pack() uint64 {
	return k.Base | uint64(k.Flags)
}

// UnpackNodeKey splits a packed key back into base id and flags.
func UnpackNodeKey(packed uint64) NodeKey {
	return NodeKey{
		Base:  packed &^ uint64(flagMask),
		Flags: Flags(packed) & flagMask,
	}
}

// Valid reports whether the base id stays clear of the reserved flag
// range and the flag combination is one the dispatcher can produce.
func (k NodeKey) Valid() bool {
	if k.Base > MaxBaseID {
		return false
	}
	if k.Flags&^flagMask != 0 {
		return false
	}
	// Function flags never combine with node flags or each other.
	fn := k.Flags & (FlagBeforeCall | FlagAfterCall)
	if fn != 0 {
		return k.Flags == FlagBeforeCall || k.Flags == FlagAfterCall
	}
	return true
}

// String renders the key for diagnostics.
func (k NodeKey) String() string {
	return fmt.Sprintf("node %d%s", k.Base, k.flagSuffix())
}

func (k NodeKey) flagSuffix() string {
	switch {
	case k.Flags == 0:
		return ""
	case k.Flags == FlagBeforeCall:
		return " (before call)"
	case k.Flags == FlagAfterCall:
		return " (after call)"
	case k.Flags == FlagAfterTrigger|FlagDeleteTrigger:
		return " (after delete)"
	case k.Flags == FlagAfterTrigger:
		return " (after trigger)"
	case k.Flags == FlagDeleteTrigger:
		return " (delete trigger)"
	default:
		return " (invalid flags)"
	}
}
