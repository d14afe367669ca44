package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/poh/server/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for incident scripts: data-driven world
// events whose effects are authored in Lua rather than compiled in. A script
// defines one global function per incident type; the function receives the
// action payload and returns a list of mutation tables, which the engine
// converts into world.Mutation values for the store.
//
// Single-goroutine access only (simulation goroutine).
type Engine struct {
	vm     *lua.LState
	bucket *world.Bucket
	log    *zap.Logger
}

// NewEngine creates a Lua engine, installs the read-only world API and loads
// every .lua file in scriptsDir (missing directory = no scripts, not an error).
func NewEngine(scriptsDir string, bucket *world.Bucket, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, bucket: bucket, log: log}
	e.installAPI()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load incident scripts: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// LoadString compiles and runs a script from memory. Used by tests.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded incident script", zap.String("file", path))
	}
	return nil
}

// installAPI exposes the read side of the bucket to scripts as the global
// "poh" table. Scripts never mutate the bucket directly; they return
// mutation tables and the store applies them transactionally.
func (e *Engine) installAPI() {
	api := e.vm.NewTable()

	e.vm.SetField(api, "object", e.vm.NewFunction(func(L *lua.LState) int {
		key := world.Key(L.CheckString(1))
		obj, err := e.bucket.Object(key)
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLua(L, map[string]any(objRaw(obj))))
		return 1
	}))

	e.vm.SetField(api, "world", e.vm.NewFunction(func(L *lua.LState) int {
		w := e.bucket.World()
		L.Push(toLua(L, map[string]any{
			"id":               w.ID,
			"turn":             w.Turn,
			"year":             w.Year,
			"currentPlayerKey": string(w.CurrentPlayerKey),
		}))
		return 1
	}))

	e.vm.SetField(api, "classObjects", e.vm.NewFunction(func(L *lua.LState) int {
		class := L.CheckString(1)
		out := L.NewTable()
		for _, obj := range e.bucket.ClassObjects(class) {
			out.Append(toLua(L, map[string]any(objRaw(obj))))
		}
		L.Push(out)
		return 1
	}))

	e.vm.SetGlobal("poh", api)
}

// Has reports whether a global function with the given name is defined.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// RunIncident calls the named script function with the payload and converts
// its return value into a mutation batch.
func (e *Engine) RunIncident(name string, payload map[string]any) ([]world.Mutation, error) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("no incident script %q", name)
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, toLua(e.vm, payload)); err != nil {
		return nil, fmt.Errorf("incident %q: %w", name, err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return mutationsFromLua(ret)
}

func objRaw(obj world.Object) world.Raw {
	type rawer interface{ Raw() world.Raw }
	if r, ok := obj.(rawer); ok {
		return r.Raw()
	}
	return world.Raw{"key": string(obj.Key())}
}

func mutationsFromLua(v lua.LValue) ([]world.Mutation, error) {
	if v == lua.LNil {
		return nil, nil
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("incident script returned %s, want a mutation list", v.Type())
	}
	var ms []world.Mutation
	var convErr error
	tbl.ForEach(func(_, entry lua.LValue) {
		if convErr != nil {
			return
		}
		et, ok := entry.(*lua.LTable)
		if !ok {
			convErr = fmt.Errorf("mutation entry is %s, want table", entry.Type())
			return
		}
		mtype, ok := fromLua(et.RawGetString("type")).(string)
		if !ok {
			convErr = fmt.Errorf("mutation entry without type")
			return
		}
		payload, ok := fromLua(et.RawGetString("payload")).(map[string]any)
		if !ok {
			convErr = fmt.Errorf("mutation %q without payload table", mtype)
			return
		}
		ms = append(ms, world.Mutation{Type: world.MutationType(mtype), Payload: world.Raw(payload)})
	})
	return ms, convErr
}

// ── value conversion ──

func toLua(L *lua.LState, v any) lua.LValue {
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case string:
		return lua.LString(t)
	case int:
		return lua.LNumber(t)
	case int64:
		return lua.LNumber(t)
	case float64:
		return lua.LNumber(t)
	case []string:
		out := L.NewTable()
		for _, e := range t {
			out.Append(lua.LString(e))
		}
		return out
	case []any:
		out := L.NewTable()
		for _, e := range t {
			out.Append(toLua(L, e))
		}
		return out
	case map[string]float64:
		out := L.NewTable()
		for k, e := range t {
			L.SetField(out, k, lua.LNumber(e))
		}
		return out
	case map[string]any:
		out := L.NewTable()
		for k, e := range t {
			L.SetField(out, k, toLua(L, e))
		}
		return out
	default:
		return lua.LString(fmt.Sprintf("%v", t))
	}
}

func fromLua(v lua.LValue) any {
	switch t := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(t)
	case lua.LString:
		return string(t)
	case lua.LNumber:
		return float64(t)
	case *lua.LTable:
		// Array part → []any, otherwise map[string]any.
		if t.Len() > 0 {
			out := make([]any, 0, t.Len())
			for i := 1; i <= t.Len(); i++ {
				out = append(out, fromLua(t.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		t.ForEach(func(k, e lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				out[string(ks)] = fromLua(e)
			}
		})
		return out
	default:
		return nil
	}
}
