package story

import (
	"fmt"
	"strconv"
)

// ValueType tags the payload of a Value.
type ValueType int

// Argument value types.
const (
	TypeNil ValueType = iota
	TypeInt64
	TypeFloat64
	TypeString
	TypeGUIDString
)

// Value is one typed argument in a node event.
type Value struct {
	Type ValueType
	Int  int64
	F64  float64
	Str  string
}

// Int64Value builds an integer argument.
func Int64Value(v int64) Value { return Value{Type: TypeInt64, Int: v} }

// Float64Value builds a float argument.
func Float64Value(v float64) Value { return Value{Type: TypeFloat64, F64: v} }

// StringValue builds a string argument.
func StringValue(v string) Value { return Value{Type: TypeString, Str: v} }

// GUIDValue builds a GUID-string argument.
func GUIDValue(v string) Value { return Value{Type: TypeGUIDString, Str: v} }

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.Type {
	case TypeInt64:
		return strconv.FormatInt(v.Int, 10)
	case TypeFloat64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case TypeString, TypeGUIDString:
		return v.Str
	case TypeNil:
		return "nil"
	default:
		return fmt.Sprintf("invalid(%d)", int(v.Type))
	}
}

// ArgNode is one element of an argument list.
type ArgNode struct {
	Value Value
	Next  *ArgNode
}

// Args is a positional argument sequence delivered with a node event.
// It mirrors the host's representation: a circular singly linked list
// with a sentinel head node whose value is unused.
type Args struct {
	head ArgNode
	tail *ArgNode
	n    int
}

// NewArgs returns an empty argument list.
func NewArgs() *Args {
	a := &Args{}
	a.head.Next = &a.head
	a.tail = &a.head
	return a
}

// FromValues builds an argument list from a value slice.
func FromValues(values ...Value) *Args {
	a := NewArgs()
	for _, v := range values {
		a.Append(v)
	}
	return a
}

// Append adds one value to the end of the list.
func (a *Args) Append(v Value) {
	n := &ArgNode{Value: v, Next: &a.head}
	a.tail.Next = n
	a.tail = n
	a.n++
}

// Len returns the number of arguments.
func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	return a.n
}

// Head returns the sentinel head node. Iteration starts at Head().Next
// and ends when it wraps back to the sentinel.
func (a *Args) Head() *ArgNode { return &a.head }

// Each calls fn for every argument in order.
func (a *Args) Each(fn func(Value)) {
	if a == nil {
		return
	}
	for n := a.head.Next; n != &a.head; n = n.Next {
		fn(n.Value)
	}
}

// Values copies the arguments into a slice.
func (a *Args) Values() []Value {
	if a == nil || a.n == 0 {
		return nil
	}
	out := make([]Value, 0, a.n)
	a.Each(func(v Value) { out = append(out, v) })
	return out
}
