package story

import "testing"

func TestArgs_Empty(t *testing.T) {
	a := NewArgs()

	if a.Len() != 0 {
		t.Errorf("expected empty list, got len %d", a.Len())
	}
	if a.Head().Next != a.Head() {
		t.Error("sentinel of an empty list should point at itself")
	}

	count := 0
	a.Each(func(Value) { count++ })
	if count != 0 {
		t.Errorf("Each visited %d values on an empty list", count)
	}
}

func TestArgs_AppendAndIterate(t *testing.T) {
	a := FromValues(
		Int64Value(1),
		StringValue("two"),
		Float64Value(3.5),
	)

	if a.Len() != 3 {
		t.Fatalf("expected len 3, got %d", a.Len())
	}

	var got []Value
	a.Each(func(v Value) { got = append(got, v) })

	if len(got) != 3 {
		t.Fatalf("Each visited %d values, want 3", len(got))
	}
	if got[0].Int != 1 || got[1].Str != "two" || got[2].F64 != 3.5 {
		t.Errorf("values out of order: %v", got)
	}
}

func TestArgs_SentinelLinkage(t *testing.T) {
	a := FromValues(Int64Value(1), Int64Value(2))

	// Manual walk the way the host-facing boundary does it.
	n := a.Head().Next
	steps := 0
	for n != a.Head() {
		steps++
		n = n.Next
		if steps > 10 {
			t.Fatal("list does not wrap back to the sentinel")
		}
	}
	if steps != 2 {
		t.Errorf("walked %d nodes, want 2", steps)
	}
}

func TestArgs_NilReceiver(t *testing.T) {
	var a *Args

	if a.Len() != 0 {
		t.Error("nil list should have length 0")
	}
	a.Each(func(Value) { t.Error("Each should not visit on nil list") })
	if a.Values() != nil {
		t.Error("Values on nil list should be nil")
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Int64Value(-3), "-3"},
		{Float64Value(2.25), "2.25"},
		{StringValue("hi"), "hi"},
		{GUIDValue("3e0ae5b0"), "3e0ae5b0"},
		{Value{}, "nil"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
