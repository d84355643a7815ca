package dispatch

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/dwrance/storyhook/internal/dispatch/pending"
	"github.com/dwrance/storyhook/internal/story"
)

// subscription is one durable registration record. The handler index
// never changes; the node-key binding is rebuilt on every story load.
type subscription struct {
	sig     story.Signature
	handler int
}

// Manager owns subscriptions and dispatches node events to handlers.
//
// All mutation and dispatch is expected to happen on the thread that
// owns the scripting runtime's state; the only internal lock serializes
// one-time host binding. See the package documentation.
type Manager struct {
	log     *zap.Logger
	runtime Runtime
	table   story.SymbolTable
	binder  Binder

	// bindOnce serializes the one-time host hook installation.
	bindOnce sync.Mutex

	handlers []HandlerRef
	subs     []subscription
	byNode   map[uint64][]int
	pool     pending.Pool

	storyLoaded bool
	merging     bool
	hooked      bool
	generation  uint32
}

// NewManager creates a dispatcher over the given runtime, symbol table
// and host binder. log may be nil.
func NewManager(runtime Runtime, table story.SymbolTable, binder Binder, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:     log,
		runtime: runtime,
		table:   table,
		binder:  binder,
		byNode:  make(map[uint64][]int),
	}
}

// Subscribe registers a handler for the (name, arity, phase) target.
// Registration itself always succeeds and the record survives story
// reloads. If a story is already loaded the target is resolved
// immediately; otherwise resolution waits for the next load.
func (m *Manager) Subscribe(name string, arity uint32, phase story.Phase, ref HandlerRef) {
	sub := subscription{
		sig:     story.Signature{Name: name, Arity: arity, Phase: phase},
		handler: len(m.handlers),
	}
	m.handlers = append(m.handlers, ref)
	m.subs = append(m.subs, sub)

	if m.storyLoaded {
		m.ensureBound()
		m.resolve(sub)
	}
}

// StoryLoaded is called once after the rule graph finishes (re)loading.
// It installs the host hooks if needed, advances the generation, drops
// every stale node-key binding and re-resolves all retained
// subscriptions in registration order.
func (m *Manager) StoryLoaded() {
	m.ensureBound()
	m.storyLoaded = true
	m.generation++
	m.byNode = make(map[uint64][]int)

	for _, sub := range m.subs {
		m.resolve(sub)
	}
}

// StorySetMerging brackets a rule-graph rebuild. While merging, every
// event is dropped — the graph is not observable mid-rebuild.
func (m *Manager) StorySetMerging(merging bool) {
	m.merging = merging
}

// Generation returns the current story generation. Node keys resolved
// under an earlier generation are stale.
func (m *Manager) Generation() uint32 { return m.generation }

// Subscriptions returns the number of retained registration records.
func (m *Manager) Subscriptions() int { return len(m.subs) }

// ensureBound installs the dispatcher's hooks into the host engine on
// first use. The attempt happens at most once per process lifetime,
// even if it fails; a failed bind disables event delivery but never
// aborts the host.
func (m *Manager) ensureBound() {
	m.bindOnce.Lock()
	defer m.bindOnce.Unlock()

	if m.hooked {
		return
	}
	m.hooked = true

	if m.binder == nil {
		return
	}
	if err := m.binder.Bind(m); err != nil {
		m.log.Error("binding story hooks failed; event delivery disabled", zap.Error(err))
	}
}

// resolve maps one subscription onto a packed node key, or logs why it
// cannot and leaves the record inert until the next load.
func (m *Manager) resolve(sub subscription) {
	sig := sub.sig

	sym, ok := m.table.Find(sig.Name, sig.Arity)
	if ok && sym.Kind == story.KindUserQuery {
		// Derived predicates have no storage of their own; only the
		// backing table has a node identity.
		sym, ok = m.table.Find(sig.Name+story.DefSuffix, sig.Arity)
	}
	if !ok {
		m.log.Warn("couldn't register story subscriber: symbol not found in story",
			zap.String("symbol", sig.Name),
			zap.Uint32("arity", sig.Arity))
		return
	}

	if (!sym.Kind.FunctionKind() && !sym.HasNode()) || !sym.Kind.Hookable() {
		m.log.Warn("couldn't register story subscriber: symbol must be an event, query, call, database, proc or derived predicate",
			zap.String("symbol", sig.Name),
			zap.Uint32("arity", sig.Arity),
			zap.Stringer("kind", sym.Kind))
		return
	}

	var key story.NodeKey
	if sym.Kind.FunctionKind() {
		if sig.Phase.Delete() {
			m.log.Warn("couldn't register story subscriber: delete triggers are not supported on events and calls",
				zap.String("symbol", sig.Name),
				zap.Uint32("arity", sig.Arity),
				zap.Stringer("kind", sym.Kind))
			return
		}
		key = story.FunctionKey(sym.FunctionID, sig.Phase == story.PhaseAfter)
	} else {
		after := sig.Phase == story.PhaseAfter || sig.Phase == story.PhaseAfterDelete
		key = story.NodeTriggerKey(sym.NodeID, after, sig.Phase.Delete())
	}

	if !key.Valid() {
		m.log.Error("node key outside the supported id range",
			zap.String("symbol", sig.Name),
			zap.Uint64("base", key.Base))
		return
	}

	packed := key.Pack()
	m.byNode[packed] = append(m.byNode[packed], sub.handler)
}

// InsertPre implements Events.
func (m *Manager) InsertPre(nodeID uint32, args *story.Args, deleted bool) {
	m.runHandlers(story.NodeTriggerKey(nodeID, false, deleted), args)
}

// InsertPost implements Events.
func (m *Manager) InsertPost(nodeID uint32, args *story.Args, deleted bool) {
	m.runHandlers(story.NodeTriggerKey(nodeID, true, deleted), args)
}

// CallQueryPre implements Events.
func (m *Manager) CallQueryPre(nodeID uint32, args *story.Args) {
	m.runHandlers(story.NodeTriggerKey(nodeID, false, false), args)
}

// CallQueryPost implements Events.
func (m *Manager) CallQueryPost(nodeID uint32, args *story.Args, succeeded bool) {
	m.runHandlers(story.NodeTriggerKey(nodeID, true, false), args)
}

// CallPre implements Events.
func (m *Manager) CallPre(functionID uint32, args *story.Args) {
	m.runHandlers(story.FunctionKey(functionID, false), args)
}

// CallPost implements Events.
func (m *Manager) CallPost(functionID uint32, args *story.Args, succeeded bool) {
	m.runHandlers(story.FunctionKey(functionID, true), args)
}

// EventPre implements Events.
func (m *Manager) EventPre(functionID uint32, args *story.Args) {
	m.runHandlers(story.FunctionKey(functionID, false), args)
}

// EventPost implements Events.
func (m *Manager) EventPost(functionID uint32, args *story.Args) {
	m.runHandlers(story.FunctionKey(functionID, true), args)
}

// runHandlers dispatches one node event to every bound handler in
// registration order. The handler list is snapshotted first, so
// subscriptions made by a running handler start with the next event.
func (m *Manager) runHandlers(key story.NodeKey, args *story.Args) {
	if m.merging {
		return
	}

	ids := m.byNode[key.Pack()]
	if len(ids) == 0 {
		return
	}

	sess, ok := m.runtime.Pin()
	if !ok {
		return
	}
	defer sess.Release()

	buf := m.pool.Enter(ids)
	defer m.pool.Exit(buf)

	for _, id := range buf.IDs() {
		m.runHandler(sess, id, key, args)
	}
}

// runHandler invokes one handler, containing every failure mode so the
// rest of the round and the host's evaluation proceed.
func (m *Manager) runHandler(sess Session, id int, key story.NodeKey, args *story.Args) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("internal error during story event dispatch",
				zap.Stringer("key", key),
				zap.Int("handler", id),
				zap.Any("panic", r))
		}
	}()

	err := sess.Call(m.handlers[id], args)
	switch {
	case err == nil:
	case errors.Is(err, ErrInternal):
		m.log.Error("internal error during story event handler call",
			zap.Stringer("key", key),
			zap.Int("handler", id),
			zap.Error(err))
	default:
		m.log.Error("story event handler failed",
			zap.Stringer("key", key),
			zap.Int("handler", id),
			zap.Error(err))
	}
}
