package luabind

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dwrance/storyhook/internal/dispatch"
	"github.com/dwrance/storyhook/internal/story"
)

// OpenModule installs the global `story` table backed by the given
// dispatcher. Call it once, before loading any handler scripts.
func (rt *Runtime) OpenModule(mgr *dispatch.Manager) {
	mod := rt.L.SetFuncs(rt.L.NewTable(), map[string]lua.LGFunction{
		"Subscribe":  rt.luaSubscribe(mgr),
		"Generation": luaGeneration(mgr),
	})
	rt.L.SetGlobal("story", mod)
}

// luaSubscribe implements story.Subscribe(name, arity, phase, fn).
func (rt *Runtime) luaSubscribe(mgr *dispatch.Manager) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		arity := L.CheckInt(2)
		phaseName := L.CheckString(3)
		fn := L.CheckFunction(4)

		if arity < 0 {
			L.ArgError(2, "arity must be non-negative")
			return 0
		}
		phase, err := story.ParsePhase(phaseName)
		if err != nil {
			L.ArgError(3, err.Error())
			return 0
		}

		mgr.Subscribe(name, uint32(arity), phase, rt.Retain(fn))
		rt.log.Debug("lua handler subscribed",
			zap.String("symbol", name),
			zap.Int("arity", arity),
			zap.Stringer("phase", phase))
		return 0
	}
}

// luaGeneration implements story.Generation(), returning the story
// reload counter.
func luaGeneration(mgr *dispatch.Manager) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LNumber(mgr.Generation()))
		return 1
	}
}
