package luabind

import (
	"errors"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/dwrance/storyhook/internal/dispatch"
	"github.com/dwrance/storyhook/internal/story"
)

type testTable map[string]*story.Symbol

func (t testTable) Find(name string, arity uint32) (*story.Symbol, bool) {
	sym, ok := t[name]
	if !ok || sym.Arity != arity {
		return nil, false
	}
	return sym, true
}

type testBinder struct{}

func (testBinder) Bind(dispatch.Events) error { return nil }

func retainChunk(t *testing.T, rt *Runtime, code string) dispatch.HandlerRef {
	t.Helper()
	if err := rt.DoString(code); err != nil {
		t.Fatalf("DoString: %v", err)
	}
	fn, ok := rt.L.GetGlobal("handler").(*lua.LFunction)
	if !ok {
		t.Fatal("chunk did not define a handler function")
	}
	return rt.Retain(fn)
}

func TestSessionCall_ConvertsArguments(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	ref := retainChunk(t, rt, `
		function handler(id, ratio, guid)
			seenId, seenRatio, seenGuid = id, ratio, guid
		end
	`)

	sess, ok := rt.Pin()
	if !ok {
		t.Fatal("Pin failed on an open runtime")
	}
	defer sess.Release()

	args := story.FromValues(
		story.Int64Value(42),
		story.Float64Value(0.5),
		story.GUIDValue("123e4567-e89b-12d3-a456-426614174000"),
	)
	if err := sess.Call(ref, args); err != nil {
		t.Fatalf("Call: %v", err)
	}

	if got := rt.L.GetGlobal("seenId"); got != lua.LNumber(42) {
		t.Errorf("seenId = %v, want 42", got)
	}
	if got := rt.L.GetGlobal("seenRatio"); got != lua.LNumber(0.5) {
		t.Errorf("seenRatio = %v, want 0.5", got)
	}
	if got := rt.L.GetGlobal("seenGuid"); got.String() != "123e4567-e89b-12d3-a456-426614174000" {
		t.Errorf("seenGuid = %v", got)
	}
}

func TestSessionCall_LuaErrorIsHandlerFailure(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	bad := retainChunk(t, rt, `function handler() error("script blew up") end`)
	good := retainChunk(t, rt, `function handler() recovered = true end`)

	sess, _ := rt.Pin()
	defer sess.Release()

	top := rt.L.GetTop()
	err = sess.Call(bad, story.NewArgs())
	if !errors.Is(err, dispatch.ErrHandlerFailed) {
		t.Fatalf("Call error = %v, want ErrHandlerFailed", err)
	}
	if errors.Is(err, dispatch.ErrInternal) {
		t.Error("a script error must not be classed as a runtime fault")
	}
	if rt.L.GetTop() != top {
		t.Errorf("stack not repaired after failed call: top %d, want %d", rt.L.GetTop(), top)
	}

	// The state stays usable.
	if err := sess.Call(good, story.NewArgs()); err != nil {
		t.Fatalf("Call after failure: %v", err)
	}
	if rt.L.GetGlobal("recovered") != lua.LTrue {
		t.Error("handler after a failed one did not run")
	}
}

func TestSessionCall_ErrorCarriesLuaTraceback(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	bad := retainChunk(t, rt, `function handler() error("script blew up") end`)

	sess, _ := rt.Pin()
	defer sess.Release()

	err = sess.Call(bad, story.NewArgs())
	if err == nil {
		t.Fatal("Call succeeded, want handler failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "script blew up") {
		t.Errorf("error lost the script message: %q", msg)
	}
	if !strings.Contains(msg, "stack traceback:") {
		t.Errorf("error lost the Lua traceback: %q", msg)
	}
}

func TestSessionCall_BadReferenceIsInternal(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	sess, _ := rt.Pin()
	defer sess.Release()

	err = sess.Call(99, story.NewArgs())
	if !errors.Is(err, ErrBadHandlerRef) || !errors.Is(err, dispatch.ErrInternal) {
		t.Errorf("Call error = %v, want ErrBadHandlerRef and ErrInternal", err)
	}
}

func TestClose_PinAndExecutionFail(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, ok := rt.Pin(); ok {
		t.Error("Pin succeeded on a closed runtime")
	}
	if err := rt.DoString("x = 1"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString error = %v, want ErrStateClosed", err)
	}
}

func TestUnsafeLibrariesAbsent(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	for _, lib := range []string{"io", "os", "debug", "package"} {
		if rt.L.GetGlobal(lib) != lua.LNil {
			t.Errorf("unsafe library %q is exposed", lib)
		}
	}
	if rt.L.GetGlobal("math") == lua.LNil {
		t.Error("safe library math is missing")
	}
}

func TestStoryModule_SubscribeAndDispatch(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	table := testTable{
		"OnCombatStart": {Name: "OnCombatStart", Arity: 1, Kind: story.KindDatabase, NodeID: 41},
	}
	mgr := dispatch.NewManager(rt, table, testBinder{}, nil)
	rt.OpenModule(mgr)

	err = rt.DoString(`
		starts = {}
		story.Subscribe("OnCombatStart", 1, "after", function(guid)
			starts[#starts + 1] = guid
		end)
	`)
	if err != nil {
		t.Fatalf("DoString: %v", err)
	}
	if rt.Retained() != 1 {
		t.Fatalf("retained %d handlers, want 1", rt.Retained())
	}

	mgr.StoryLoaded()
	mgr.InsertPost(41, story.FromValues(story.GUIDValue("combat-1")), false)
	mgr.InsertPost(41, story.FromValues(story.GUIDValue("combat-2")), false)

	starts := rt.L.GetGlobal("starts").(*lua.LTable)
	if starts.Len() != 2 {
		t.Fatalf("handler recorded %d events, want 2", starts.Len())
	}
	if got := starts.RawGetInt(1).String(); got != "combat-1" {
		t.Errorf("first event = %q, want combat-1", got)
	}
	if got := starts.RawGetInt(2).String(); got != "combat-2" {
		t.Errorf("second event = %q, want combat-2", got)
	}
}

func TestStoryModule_SubscribeFromHandlerDefersOneRound(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	table := testTable{
		"OnCombatStart": {Name: "OnCombatStart", Arity: 1, Kind: story.KindDatabase, NodeID: 41},
	}
	mgr := dispatch.NewManager(rt, table, testBinder{}, nil)
	rt.OpenModule(mgr)

	err = rt.DoString(`
		lateRuns = 0
		story.Subscribe("OnCombatStart", 1, "after", function()
			if not registered then
				registered = true
				story.Subscribe("OnCombatStart", 1, "after", function()
					lateRuns = lateRuns + 1
				end)
			end
		end)
	`)
	if err != nil {
		t.Fatalf("DoString: %v", err)
	}

	mgr.StoryLoaded()
	mgr.InsertPost(41, story.NewArgs(), false)
	if got := rt.L.GetGlobal("lateRuns"); got != lua.LNumber(0) {
		t.Fatalf("mid-round subscription ran in its own round: lateRuns = %v", got)
	}

	mgr.InsertPost(41, story.NewArgs(), false)
	if got := rt.L.GetGlobal("lateRuns"); got != lua.LNumber(1) {
		t.Errorf("lateRuns = %v after second event, want 1", got)
	}
}

func TestStoryModule_BadPhaseIsAnError(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	mgr := dispatch.NewManager(rt, testTable{}, testBinder{}, nil)
	rt.OpenModule(mgr)

	err = rt.DoString(`story.Subscribe("X", 0, "sometimes", function() end)`)
	if err == nil {
		t.Fatal("bad phase string accepted")
	}
}

func TestStoryModule_Generation(t *testing.T) {
	rt, err := NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	mgr := dispatch.NewManager(rt, testTable{}, testBinder{}, nil)
	rt.OpenModule(mgr)

	mgr.StoryLoaded()
	mgr.StoryLoaded()

	if err := rt.DoString(`gen = story.Generation()`); err != nil {
		t.Fatalf("DoString: %v", err)
	}
	if got := rt.L.GetGlobal("gen"); got != lua.LNumber(2) {
		t.Errorf("story.Generation() = %v, want 2", got)
	}
}
