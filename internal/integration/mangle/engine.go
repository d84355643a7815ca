package mangle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"github.com/dwrance/storyhook/internal/dispatch"
	"github.com/dwrance/storyhook/internal/hook"
	"github.com/dwrance/storyhook/internal/resolve"
	"github.com/dwrance/storyhook/internal/story"
)

// Dispatcher is the lifecycle surface the engine drives on story loads.
// Satisfied by dispatch.Manager.
type Dispatcher interface {
	StoryLoaded()
	StorySetMerging(merging bool)
}

// CallImpl is a host call body. A non-nil error marks the call failed.
type CallImpl func(args *story.Args) error

// QueryImpl is a host query body returning whether the query succeeded.
type QueryImpl func(args *story.Args) bool

// hostFunc is one embedder-registered event, call or query.
type hostFunc struct {
	name  string
	arity uint32
	kind  story.Kind
	call  CallImpl
	query QueryImpl
}

// Evaluation entry-point signatures. These are the slots Bind patches.
type (
	insertFn func(nodeID uint32, args *story.Args, deleted bool) bool
	callFn   func(functionID uint32, args *story.Args) bool
	queryFn  func(nodeID uint32, args *story.Args) bool
	eventFn  func(functionID uint32, args *story.Args)
)

// funcOps is the dispatch table for function-kind symbols. Calls and
// events have no graph node; the engine triggers them directly.
type funcOps struct {
	call  callFn
	event eventFn
}

// nodeOps is the dispatch table shared by all graph nodes of one type.
// Mutation and lookup traffic flows through these pointers so installed
// hooks see it.
type nodeOps struct {
	insert insertFn
	query  queryFn
}

type symKey struct {
	name  string
	arity uint32
}

// Engine evaluates a Mangle program and surfaces it as a story host.
type Engine struct {
	log   *zap.Logger
	hooks *hook.Set
	disp  Dispatcher
	ev    dispatch.Events

	funcs []*hostFunc

	ops         funcOps
	tables      *resolve.Tables[nodeOps]
	callHook    *hook.Replace[callFn]
	eventHook   *hook.FastReplace[eventFn]
	insertHooks map[story.NodeType]*hook.Intercept[insertFn]
	queryHooks  map[story.NodeType]*hook.Intercept[queryFn]

	info     *analysis.ProgramInfo
	store    factstore.FactStore
	symbols  map[symKey]*story.Symbol
	predOf   map[uint32]ast.PredicateSym
	nodeKind map[uint32]story.NodeType
	derived  map[uint32]bool
	funcOf   map[uint32]*hostFunc
	queryOf  map[uint32]*hostFunc
	base     map[string]ast.Atom
	seen     map[uint32]map[string]ast.Atom
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithHookSet shares a hook registry with other interception users.
func WithHookSet(set *hook.Set) Option {
	return func(e *Engine) {
		e.hooks = set
	}
}

// NewEngine creates an engine with no loaded program.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log:         zap.NewNop(),
		insertHooks: make(map[story.NodeType]*hook.Intercept[insertFn]),
		queryHooks:  make(map[story.NodeType]*hook.Intercept[queryFn]),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.hooks == nil {
		e.hooks = hook.NewSet()
	}
	e.tables = resolve.NewTables[nodeOps](int(story.NodeTypeMax)+1, e.log)
	e.ops = funcOps{
		call:  e.invokeCall,
		event: e.noteEvent,
	}
	e.callHook = hook.NewReplace[callFn](e.hooks, "story.call")
	e.eventHook = hook.NewFastReplace[eventFn]()
	return e
}

// Attach wires the dispatcher whose lifecycle the engine drives on
// LoadStory. Call before the first load.
func (e *Engine) Attach(d Dispatcher) {
	e.disp = d
}

// RegisterEvent declares a host event. Registrations take effect on the
// next LoadStory.
func (e *Engine) RegisterEvent(name string, arity uint32) {
	e.funcs = append(e.funcs, &hostFunc{name: name, arity: arity, kind: story.KindEvent})
}

// RegisterCall declares a host call with its implementation.
// Registrations take effect on the next LoadStory.
func (e *Engine) RegisterCall(name string, arity uint32, impl CallImpl) {
	e.funcs = append(e.funcs, &hostFunc{name: name, arity: arity, kind: story.KindCall, call: impl})
}

// RegisterQuery declares a host query with its implementation.
// Registrations take effect on the next LoadStory.
func (e *Engine) RegisterQuery(name string, arity uint32, impl QueryImpl) {
	e.funcs = append(e.funcs, &hostFunc{name: name, arity: arity, kind: story.KindQuery, query: impl})
}

// Find implements story.SymbolTable against the loaded program.
func (e *Engine) Find(name string, arity uint32) (*story.Symbol, bool) {
	sym, ok := e.symbols[symKey{name: name, arity: arity}]
	return sym, ok
}

// Bind implements dispatch.Binder: it patches every node dispatch
// table observed so far, plus the function table, so ev observes every
// insert, call, query and event. Node types first observed on a later
// load are hooked as they appear.
func (e *Engine) Bind(ev dispatch.Events) error {
	e.ev = ev

	for nt := story.NodeType(0); nt <= story.NodeTypeMax; nt++ {
		t, ok := e.tables.Get(int(nt))
		if !ok {
			continue
		}
		if err := e.hookNodeTable(nt, t); err != nil {
			return err
		}
	}

	err := e.callHook.Install(hook.NewVarSlot(&e.ops.call), func(functionID uint32, args *story.Args) bool {
		ev.CallPre(functionID, args)
		ok := e.callHook.Original()(functionID, args)
		ev.CallPost(functionID, args, ok)
		return ok
	})
	if err != nil {
		return fmt.Errorf("hook call: %w", err)
	}

	prevEvent := e.ops.event
	err = e.eventHook.Install(hook.NewVarSlot(&e.ops.event), func(functionID uint32, args *story.Args) {
		ev.EventPre(functionID, args)
		prevEvent(functionID, args)
		ev.EventPost(functionID, args)
	})
	if err != nil {
		return fmt.Errorf("hook event: %w", err)
	}

	e.log.Info("story dispatch tables hooked")
	return nil
}

// hookNodeTable installs the observation wraps on one node type's
// dispatch table.
func (e *Engine) hookNodeTable(nt story.NodeType, t *nodeOps) error {
	ev := e.ev

	ins := hook.NewIntercept[insertFn](e.hooks, "story.insert."+nt.String())
	err := ins.Install(hook.NewVarSlot(&t.insert), func(next insertFn) insertFn {
		return func(nodeID uint32, args *story.Args, deleted bool) bool {
			ev.InsertPre(nodeID, args, deleted)
			ok := next(nodeID, args, deleted)
			ev.InsertPost(nodeID, args, deleted)
			return ok
		}
	})
	if err != nil {
		return fmt.Errorf("hook insert %s: %w", nt, err)
	}
	e.insertHooks[nt] = ins

	qry := hook.NewIntercept[queryFn](e.hooks, "story.query."+nt.String())
	err = qry.Install(hook.NewVarSlot(&t.query), func(next queryFn) queryFn {
		return func(nodeID uint32, args *story.Args) bool {
			ev.CallQueryPre(nodeID, args)
			ok := next(nodeID, args)
			ev.CallQueryPost(nodeID, args, ok)
			return ok
		}
	})
	if err != nil {
		return fmt.Errorf("hook query %s: %w", nt, err)
	}
	e.queryHooks[nt] = qry
	return nil
}

// tableFor returns the dispatch table for nodes of type nt, observing
// it into the per-type cache on first construction. The first
// observation wins, so a reload reuses the already-hooked table. A type
// first observed after binding is hooked on the spot.
func (e *Engine) tableFor(nt story.NodeType) *nodeOps {
	if t, ok := e.tables.Get(int(nt)); ok {
		return t
	}
	t := &nodeOps{insert: e.insertTuple, query: e.evalQuery}
	e.tables.Save(int(nt), t)
	if e.ev != nil {
		if err := e.hookNodeTable(nt, t); err != nil {
			e.log.Error("hooking node dispatch table failed",
				zap.Stringer("nodeType", nt), zap.Error(err))
		}
	}
	return t
}

// nodeTable returns the dispatch table backing a known node.
func (e *Engine) nodeTable(nodeID uint32) (*nodeOps, bool) {
	nt, ok := e.nodeKind[nodeID]
	if !ok {
		return nil, false
	}
	return e.tables.Get(int(nt))
}

// insertNode routes an insert or delete through the node's per-type
// dispatch table.
func (e *Engine) insertNode(nodeID uint32, args *story.Args, deleted bool) bool {
	t, ok := e.nodeTable(nodeID)
	if !ok {
		e.log.Warn("insert on unknown node", zap.Uint32("node", nodeID))
		return false
	}
	return t.insert(nodeID, args, deleted)
}

// queryNode routes a ground query through the node's per-type dispatch
// table.
func (e *Engine) queryNode(nodeID uint32, args *story.Args) bool {
	t, ok := e.nodeTable(nodeID)
	if !ok {
		e.log.Warn("query on unknown node", zap.Uint32("node", nodeID))
		return false
	}
	return t.query(nodeID, args)
}

// LoadStory parses, analyzes and evaluates a Mangle program, replacing
// any previously loaded one. The attached dispatcher is driven inside a
// merge bracket so the load itself produces no events.
func (e *Engine) LoadStory(src string) error {
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse story: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analyze story: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := mengine.EvalProgramWithStats(info, store); err != nil {
		return fmt.Errorf("evaluate story: %w", err)
	}

	e.info = info
	e.store = store
	e.buildSymbols()
	e.snapshotFacts()

	e.log.Info("story loaded",
		zap.Int("symbols", len(e.symbols)),
		zap.Int("baseFacts", len(e.base)))
	if missing := e.tables.Missing(); len(missing) > 0 {
		e.log.Debug("node types not observed by this program", zap.Ints("nodeTypes", missing))
	}

	if e.disp != nil {
		e.disp.StorySetMerging(true)
		e.disp.StoryLoaded()
		e.disp.StorySetMerging(false)
	}
	return nil
}

// buildSymbols assigns function and node identities. Host functions
// come first, then program predicates; each group is ordered by name so
// identities are stable for a given program and registration set.
func (e *Engine) buildSymbols() {
	e.symbols = make(map[symKey]*story.Symbol)
	e.predOf = make(map[uint32]ast.PredicateSym)
	e.nodeKind = make(map[uint32]story.NodeType)
	e.derived = make(map[uint32]bool)
	e.funcOf = make(map[uint32]*hostFunc)
	e.queryOf = make(map[uint32]*hostFunc)

	nextFunc, nextNode := uint32(1), uint32(1)

	funcs := make([]*hostFunc, len(e.funcs))
	copy(funcs, e.funcs)
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })
	for _, f := range funcs {
		sym := &story.Symbol{Name: f.name, Arity: f.arity, Kind: f.kind, FunctionID: nextFunc}
		e.funcOf[nextFunc] = f
		nextFunc++
		if f.kind == story.KindQuery {
			sym.NodeID = nextNode
			e.queryOf[nextNode] = f
			e.nodeKind[nextNode] = story.NodeDivQuery
			e.tableFor(story.NodeDivQuery)
			nextNode++
		}
		e.symbols[symKey{name: f.name, arity: f.arity}] = sym
	}

	ruleHeads := make(map[ast.PredicateSym]bool)
	for _, clause := range e.info.Rules {
		ruleHeads[clause.Head.Predicate] = true
	}

	// Declared, derived and evaluated predicates can each surface names
	// the others miss, so take the union.
	predSet := make(map[ast.PredicateSym]bool)
	for sym := range e.info.Decls {
		predSet[sym] = true
	}
	for head := range ruleHeads {
		predSet[head] = true
	}
	for _, sym := range e.store.ListPredicates() {
		predSet[sym] = true
	}

	preds := make([]ast.PredicateSym, 0, len(predSet))
	for sym := range predSet {
		if strings.HasPrefix(sym.Symbol, ":") {
			continue // builtin
		}
		preds = append(preds, sym)
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].Symbol < preds[j].Symbol })

	for _, p := range preds {
		arity := uint32(p.Arity)
		if ruleHeads[p] {
			def := &story.Symbol{
				Name:   p.Symbol + story.DefSuffix,
				Arity:  arity,
				Kind:   story.KindDatabase,
				NodeID: nextNode,
			}
			e.predOf[nextNode] = p
			e.nodeKind[nextNode] = story.NodeDatabase
			e.derived[nextNode] = true
			e.tableFor(story.NodeDatabase)
			nextNode++
			e.symbols[symKey{name: def.Name, arity: arity}] = def

			vis := &story.Symbol{Name: p.Symbol, Arity: arity, Kind: story.KindUserQuery, FunctionID: nextFunc}
			nextFunc++
			e.symbols[symKey{name: p.Symbol, arity: arity}] = vis
			continue
		}

		sym := &story.Symbol{Name: p.Symbol, Arity: arity, Kind: story.KindDatabase, NodeID: nextNode}
		e.predOf[nextNode] = p
		e.nodeKind[nextNode] = story.NodeDatabase
		e.tableFor(story.NodeDatabase)
		nextNode++
		e.symbols[symKey{name: p.Symbol, arity: arity}] = sym
	}
}

// snapshotFacts records the loaded program's own facts as the base set
// and seeds the derived-fact snapshots. Facts present at load fire no
// events.
func (e *Engine) snapshotFacts() {
	e.base = make(map[string]ast.Atom)
	e.seen = make(map[uint32]map[string]ast.Atom)

	for node, pred := range e.predOf {
		if e.derived[node] {
			e.seen[node] = e.factsOf(pred)
			continue
		}
		for key, atom := range e.factsOf(pred) {
			e.base[key] = atom
		}
	}
}

// factsOf returns the store's current facts for pred, keyed by their
// rendered form.
func (e *Engine) factsOf(pred ast.PredicateSym) map[string]ast.Atom {
	out := make(map[string]ast.Atom)
	_ = e.store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
		out[a.String()] = a
		return nil
	})
	return out
}

// Assert adds a fact to a database predicate, re-evaluates the program
// and reports derived-fact deltas onto their backing nodes.
func (e *Engine) Assert(name string, values ...story.Value) error {
	sym, err := e.lookup(name, uint32(len(values)), story.KindDatabase)
	if err != nil {
		return err
	}
	e.insertNode(sym.NodeID, story.FromValues(values...), false)
	return nil
}

// Retract removes a fact from a database predicate, re-evaluates the
// program and reports derived facts that disappeared as deletions.
func (e *Engine) Retract(name string, values ...story.Value) error {
	sym, err := e.lookup(name, uint32(len(values)), story.KindDatabase)
	if err != nil {
		return err
	}
	e.insertNode(sym.NodeID, story.FromValues(values...), true)
	return nil
}

// Call invokes a registered host call.
func (e *Engine) Call(name string, values ...story.Value) error {
	sym, err := e.lookup(name, uint32(len(values)), story.KindCall)
	if err != nil {
		return err
	}
	if !e.ops.call(sym.FunctionID, story.FromValues(values...)) {
		return fmt.Errorf("%w: %s", ErrCallFailed, name)
	}
	return nil
}

// RaiseEvent fires a registered host event. Events carry no engine
// state; their effect is whatever the subscribers do.
func (e *Engine) RaiseEvent(name string, values ...story.Value) error {
	sym, err := e.lookup(name, uint32(len(values)), story.KindEvent)
	if err != nil {
		return err
	}
	e.ops.event(sym.FunctionID, story.FromValues(values...))
	return nil
}

// Query answers a ground query: a registered host query runs its
// implementation; a database or derived predicate is checked for
// membership of the given tuple.
func (e *Engine) Query(name string, values ...story.Value) (bool, error) {
	if e.symbols == nil {
		return false, ErrNoStory
	}
	arity := uint32(len(values))
	sym, ok := e.Find(name, arity)
	if !ok {
		return false, fmt.Errorf("%w: %s/%d", ErrUnknownPredicate, name, arity)
	}

	node := sym.NodeID
	switch sym.Kind {
	case story.KindQuery, story.KindDatabase:
	case story.KindUserQuery:
		def, ok := e.Find(name+story.DefSuffix, arity)
		if !ok {
			return false, fmt.Errorf("%w: %s has no backing table", ErrUnknownPredicate, name)
		}
		node = def.NodeID
	default:
		return false, fmt.Errorf("%w: %s is a %s", ErrWrongKind, name, sym.Kind)
	}

	return e.queryNode(node, story.FromValues(values...)), nil
}

// Facts returns the current tuples of a predicate, including derived
// ones, in no particular order.
func (e *Engine) Facts(name string, arity uint32) ([][]story.Value, error) {
	if e.symbols == nil {
		return nil, ErrNoStory
	}
	sym, ok := e.Find(name, arity)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrUnknownPredicate, name, arity)
	}
	if sym.Kind == story.KindUserQuery {
		sym, ok = e.Find(name+story.DefSuffix, arity)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no backing table", ErrUnknownPredicate, name)
		}
	}
	pred, ok := e.predOf[sym.NodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s", ErrWrongKind, name, sym.Kind)
	}

	var out [][]story.Value
	for _, atom := range e.factsOf(pred) {
		out = append(out, argsOf(atom).Values())
	}
	return out, nil
}

func (e *Engine) lookup(name string, arity uint32, kind story.Kind) (*story.Symbol, error) {
	if e.symbols == nil {
		return nil, ErrNoStory
	}
	sym, ok := e.Find(name, arity)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrUnknownPredicate, name, arity)
	}
	if sym.Kind != kind {
		return nil, fmt.Errorf("%w: %s is a %s, want %s", ErrWrongKind, name, sym.Kind, kind)
	}
	return sym, nil
}

// insertTuple is the unhooked insert entry point. Derived tuples are
// evaluation results and only acknowledge; base tuples mutate the store
// and trigger re-evaluation.
func (e *Engine) insertTuple(nodeID uint32, args *story.Args, deleted bool) bool {
	pred, ok := e.predOf[nodeID]
	if !ok {
		e.log.Warn("insert on unknown node", zap.Uint32("node", nodeID))
		return false
	}
	if e.derived[nodeID] {
		return true
	}

	atom, err := atomFor(pred, args)
	if err != nil {
		e.log.Warn("bad tuple", zap.String("predicate", pred.Symbol), zap.Error(err))
		return false
	}
	key := atom.String()

	if deleted {
		if _, ok := e.base[key]; !ok {
			return false
		}
		delete(e.base, key)
		e.rebuild()
		return true
	}

	if _, ok := e.base[key]; ok {
		return false
	}
	e.base[key] = atom
	e.store.Add(atom)
	if _, err := mengine.EvalProgramWithStats(e.info, e.store); err != nil {
		e.log.Error("re-evaluation failed", zap.Error(err))
		return false
	}
	e.reportDerivedDeltas()
	return true
}

// rebuild re-derives the whole store from the base facts. Needed on
// retraction: evaluation only ever adds.
func (e *Engine) rebuild() {
	store := factstore.NewSimpleInMemoryStore()
	for _, atom := range e.base {
		store.Add(atom)
	}
	e.store = store
	if _, err := mengine.EvalProgramWithStats(e.info, e.store); err != nil {
		e.log.Error("re-evaluation failed", zap.Error(err))
		return
	}
	e.reportDerivedDeltas()
}

// reportDerivedDeltas diffs each derived predicate against its last
// snapshot and pushes the changes through the insert entry point, so
// hooks observe derived arrivals and departures like any other tuple.
func (e *Engine) reportDerivedDeltas() {
	for node := range e.derived {
		pred := e.predOf[node]
		now := e.factsOf(pred)
		prev := e.seen[node]
		e.seen[node] = now

		var added, removed []ast.Atom
		for key, atom := range now {
			if _, ok := prev[key]; !ok {
				added = append(added, atom)
			}
		}
		for key, atom := range prev {
			if _, ok := now[key]; !ok {
				removed = append(removed, atom)
			}
		}
		sort.Slice(added, func(i, j int) bool { return added[i].String() < added[j].String() })
		sort.Slice(removed, func(i, j int) bool { return removed[i].String() < removed[j].String() })

		for _, atom := range added {
			e.insertNode(node, argsOf(atom), false)
		}
		for _, atom := range removed {
			e.insertNode(node, argsOf(atom), true)
		}
	}
}

// invokeCall is the unhooked call entry point.
func (e *Engine) invokeCall(functionID uint32, args *story.Args) bool {
	f, ok := e.funcOf[functionID]
	if !ok || f.call == nil {
		e.log.Warn("call on unknown function", zap.Uint32("function", functionID))
		return false
	}
	if err := f.call(args); err != nil {
		e.log.Warn("host call failed", zap.String("call", f.name), zap.Error(err))
		return false
	}
	return true
}

// evalQuery is the unhooked query entry point: registered host queries
// run their implementation, predicate nodes answer tuple membership.
func (e *Engine) evalQuery(nodeID uint32, args *story.Args) bool {
	if f, ok := e.queryOf[nodeID]; ok {
		return f.query(args)
	}
	pred, ok := e.predOf[nodeID]
	if !ok {
		e.log.Warn("query on unknown node", zap.Uint32("node", nodeID))
		return false
	}
	atom, err := atomFor(pred, args)
	if err != nil {
		return false
	}
	key := atom.String()
	_, found := e.factsOf(pred)[key]
	return found
}

// noteEvent is the unhooked event entry point. Events have no
// engine-side effect.
func (e *Engine) noteEvent(functionID uint32, args *story.Args) {
	if f, ok := e.funcOf[functionID]; ok {
		e.log.Debug("event raised", zap.String("event", f.name), zap.Int("args", args.Len()))
		return
	}
	e.log.Warn("event on unknown function", zap.Uint32("function", functionID))
}
