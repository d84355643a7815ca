package story

import "fmt"

// DefSuffix is the naming convention linking a derived predicate to the
// stored table that backs it. Only the backing table has a node identity,
// so subscriptions against a derived predicate resolve through it.
const DefSuffix = "__DEF__"

// Symbol is one entry in the story's symbol table.
type Symbol struct {
	Name  string
	Arity uint32
	Kind  Kind

	// FunctionID identifies the symbol for function-kind dispatch
	// (events and calls).
	FunctionID uint32

	// NodeID identifies the symbol's rule-graph node, or 0 if the symbol
	// is not mapped to a node.
	NodeID uint32
}

// HasNode reports whether the symbol is mapped to a rule-graph node.
func (s *Symbol) HasNode() bool { return s.NodeID != 0 }

// SymbolTable resolves (name, arity) pairs against the currently loaded
// story. Implemented by the host integration layer; contents are only
// meaningful between one StoryLoaded and the next.
type SymbolTable interface {
	// Find returns the symbol for the given name and arity, or false if
	// the story defines no such symbol.
	Find(name string, arity uint32) (*Symbol, bool)
}

// Signature names one subscription target: a symbol plus the trigger
// phase being observed. It is the durable registration key; node keys
// derived from it are rebuilt on every story load.
type Signature struct {
	Name  string
	Arity uint32
	Phase Phase
}

// String renders the signature for diagnostics.
func (s Signature) String() string {
	return fmt.Sprintf("%s/%d (%s)", s.Name, s.Arity, s.Phase)
}
