package story

import "testing"

func TestNodeKey_FlagBitsDistinct(t *testing.T) {
	flags := []Flags{FlagAfterTrigger, FlagDeleteTrigger, FlagBeforeCall, FlagAfterCall}

	for i, a := range flags {
		for j, b := range flags {
			if i != j && a&b != 0 {
				t.Errorf("flag %d and flag %d share bits", i, j)
			}
		}
	}
}

func TestNodeKey_BaseBelowFlags(t *testing.T) {
	flags := []Flags{FlagAfterTrigger, FlagDeleteTrigger, FlagBeforeCall, FlagAfterCall}

	for _, f := range flags {
		if MaxBaseID >= uint64(f) {
			t.Errorf("MaxBaseID %#x reaches into flag bit %#x", MaxBaseID, uint64(f))
		}
	}
}

func TestNodeKey_PackUnpack(t *testing.T) {
	tests := []struct {
		name string
		key  NodeKey
	}{
		{"plain node", NodeTriggerKey(42, false, false)},
		{"after trigger", NodeTriggerKey(42, true, false)},
		{"delete trigger", NodeTriggerKey(42, false, true)},
		{"after delete", NodeTriggerKey(42, true, true)},
		{"before call", FunctionKey(7, false)},
		{"after call", FunctionKey(7, true)},
		{"max base", NodeKey{Base: MaxBaseID, Flags: FlagAfterTrigger}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnpackNodeKey(tt.key.Pack())
			if got != tt.key {
				t.Errorf("roundtrip mismatch: got %+v, want %+v", got, tt.key)
			}
		})
	}
}

func TestNodeKey_PackedKeysDiffer(t *testing.T) {
	// The same base id under different phases must never share a packed key.
	keys := []NodeKey{
		NodeTriggerKey(9, false, false),
		NodeTriggerKey(9, true, false),
		NodeTriggerKey(9, false, true),
		NodeTriggerKey(9, true, true),
		FunctionKey(9, false),
		FunctionKey(9, true),
	}

	seen := make(map[uint64]NodeKey)
	for _, k := range keys {
		p := k.Pack()
		if prev, ok := seen[p]; ok {
			t.Errorf("keys %+v and %+v pack to the same value %#x", prev, k, p)
		}
		seen[p] = k
	}
}

func TestNodeKey_Valid(t *testing.T) {
	tests := []struct {
		name string
		key  NodeKey
		want bool
	}{
		{"plain", NodeKey{Base: 1}, true},
		{"max base", NodeKey{Base: MaxBaseID}, true},
		{"base in flag range", NodeKey{Base: MaxBaseID + 1}, false},
		{"before call", FunctionKey(1, false), true},
		{"call plus trigger", NodeKey{Base: 1, Flags: FlagBeforeCall | FlagAfterTrigger}, false},
		{"both call flags", NodeKey{Base: 1, Flags: FlagBeforeCall | FlagAfterCall}, false},
		{"after delete", NodeKey{Base: 1, Flags: FlagAfterTrigger | FlagDeleteTrigger}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
