package luabind

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dwrance/storyhook/internal/dispatch"
	"github.com/dwrance/storyhook/internal/story"
)

// Runtime owns one Lua state and the retained handler registry.
//
// gopher-lua's LState is not goroutine-safe. All Runtime methods,
// including dispatch rounds that pin it, must run on one goroutine.
type Runtime struct {
	L        *lua.LState
	log      *zap.Logger
	handlers []*lua.LFunction
	closed   bool
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) RuntimeOption {
	return func(rt *Runtime) {
		rt.log = log
	}
}

// NewRuntime creates a Lua state with only the safe standard libraries
// opened.
func NewRuntime(opts ...RuntimeOption) (*Runtime, error) {
	rt := &Runtime{
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rt)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	rt.L = L
	openSafeLibraries(L)

	return rt, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Intentionally NOT opened:
	// - io (file system access)
	// - os (system calls, execute)
	// - debug (can bypass sandbox)
	// - package (can load arbitrary modules)
}

// Retain stores a Lua function in the handler registry and returns its
// reference. References are dense indexes and are never recycled;
// retained handlers live as long as the runtime.
func (rt *Runtime) Retain(fn *lua.LFunction) dispatch.HandlerRef {
	rt.handlers = append(rt.handlers, fn)
	return len(rt.handlers) - 1
}

// Retained returns the number of retained handlers.
func (rt *Runtime) Retained() int { return len(rt.handlers) }

// Pin returns a session for handler calls, or false when the runtime
// has been closed.
func (rt *Runtime) Pin() (dispatch.Session, bool) {
	if rt.closed {
		return nil, false
	}
	return &Session{rt: rt}, true
}

// DoString executes a Lua chunk. Execution is synchronous.
func (rt *Runtime) DoString(code string) error {
	if rt.closed {
		return ErrStateClosed
	}
	return rt.doWithRecovery(func() error {
		return rt.L.DoString(code)
	})
}

// DoFile executes a Lua file. Execution is synchronous.
func (rt *Runtime) DoFile(path string) error {
	if rt.closed {
		return ErrStateClosed
	}
	return rt.doWithRecovery(func() error {
		return rt.L.DoFile(path)
	})
}

// doWithRecovery executes a function with panic recovery.
func (rt *Runtime) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// IsClosed returns true if the runtime has been closed.
func (rt *Runtime) IsClosed() bool { return rt.closed }

// Close releases the Lua state. Retained handler references become
// invalid; Pin returns false afterwards.
func (rt *Runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.L.Close()
	rt.closed = true
	return nil
}

// Session is a pinned view of the runtime for one dispatch round.
type Session struct {
	rt *Runtime
}

// Call invokes a retained handler with the event arguments. The Lua
// stack must be at the same height afterwards as before; a handler
// that unbalances it is a runtime fault, not a handler failure.
func (s *Session) Call(ref dispatch.HandlerRef, args *story.Args) error {
	rt := s.rt
	if rt.closed {
		return fmt.Errorf("%w: %w", ErrStateClosed, dispatch.ErrInternal)
	}
	idx, ok := ref.(int)
	if !ok || idx < 0 || idx >= len(rt.handlers) {
		return fmt.Errorf("%w (%v): %w", ErrBadHandlerRef, ref, dispatch.ErrInternal)
	}
	fn := rt.handlers[idx]

	L := rt.L
	top := L.GetTop()

	L.Push(fn)
	n := 0
	args.Each(func(v story.Value) {
		L.Push(toLua(v))
		n++
	})

	if err := L.PCall(n, 0, nil); err != nil {
		L.SetTop(top)
		return fmt.Errorf("%w: %w", dispatch.ErrHandlerFailed, err)
	}

	if got := L.GetTop(); got != top {
		L.SetTop(top)
		return fmt.Errorf("%w (%d values): %w", ErrStackImbalance, got-top, dispatch.ErrInternal)
	}
	return nil
}

// Release ends the session. The runtime outlives its sessions, so
// there is nothing to unpin.
func (s *Session) Release() {}

// toLua converts an event argument to its Lua representation.
func toLua(v story.Value) lua.LValue {
	switch v.Type {
	case story.TypeInt64:
		return lua.LNumber(v.Int)
	case story.TypeFloat64:
		return lua.LNumber(v.F64)
	case story.TypeString, story.TypeGUIDString:
		return lua.LString(v.Str)
	default:
		return lua.LNil
	}
}
