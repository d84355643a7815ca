package story

// Kind classifies a symbol in the story's symbol table.
type Kind int

// Symbol kinds.
const (
	KindUnknown Kind = iota
	KindEvent
	KindQuery
	KindCall
	KindDatabase
	KindProc
	KindSysQuery
	KindSysCall
	// KindUserQuery is a derived predicate with no backing storage of its
	// own. Subscriptions against one are redirected to its backing table
	// (see DefSuffix).
	KindUserQuery
)

// String returns the symbol-table name of the kind.
func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindQuery:
		return "query"
	case KindCall:
		return "call"
	case KindDatabase:
		return "database"
	case KindProc:
		return "proc"
	case KindSysQuery:
		return "sysquery"
	case KindSysCall:
		return "syscall"
	case KindUserQuery:
		return "userquery"
	default:
		return "unknown"
	}
}

// Hookable reports whether subscriptions may bind to symbols of this
// kind. Only events, queries, calls, stored-fact tables, procedures and
// derived predicates participate in node dispatch.
func (k Kind) Hookable() bool {
	switch k {
	case KindEvent, KindQuery, KindCall, KindDatabase, KindProc, KindUserQuery:
		return true
	default:
		return false
	}
}

// FunctionKind reports whether the kind is dispatched by function id
// rather than by graph node id. Events and calls have no graph node; the
// engine triggers them directly.
func (k Kind) FunctionKind() bool {
	return k == KindEvent || k == KindCall
}

// NodeType classifies a node in the rule graph. Each type has its own
// dispatch table in the host.
type NodeType int

// Rule graph node types.
const (
	NodeDatabase NodeType = iota
	NodeProc
	NodeDivQuery
	NodeAnd
	NodeNotAnd
	NodeRelOp
	NodeRule
	NodeInternalQuery
	NodeUserQuery
	NodeTypeMax = NodeUserQuery
)

// String returns a short name for the node type.
func (t NodeType) String() string {
	switch t {
	case NodeDatabase:
		return "database"
	case NodeProc:
		return "proc"
	case NodeDivQuery:
		return "divquery"
	case NodeAnd:
		return "and"
	case NodeNotAnd:
		return "notand"
	case NodeRelOp:
		return "relop"
	case NodeRule:
		return "rule"
	case NodeInternalQuery:
		return "internalquery"
	case NodeUserQuery:
		return "userquery"
	default:
		return "invalid"
	}
}
