package engine

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/atsim/pkg/domain"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const destroyedKey = "__destroyed"

// unsafeGlobals are removed from the base library after it is opened.
var unsafeGlobals = []string{
	"dofile", "loadfile", "load", "loadstring", "require", "module",
	"collectgarbage", "print", "getfenv", "setfenv", "newproxy",
}

// protoCache holds compiled chunks keyed by their source.
// Compiled prototypes are immutable and can be shared across states.
type protoCache struct {
	mu     sync.Mutex
	protos map[string]*lua.FunctionProto
}

func newProtoCache() *protoCache {
	return &protoCache{protos: make(map[string]*lua.FunctionProto)}
}

func (c *protoCache) compile(src, name string) (*lua.FunctionProto, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.protos[src]; ok {
		return p, nil
	}
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("syntax error: %w", err)
	}
	p, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	c.protos[src] = p
	return p, nil
}

// sandbox is one Lua state used for a single Step call.
type sandbox struct {
	L     *lua.LState
	cache *protoCache
}

func newSandbox(ctx context.Context, cache *protoCache, m *domain.Model, tick int64) (*sandbox, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	libs := []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open %s library: %w", lib.name, err)
		}
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if mathLib, ok := L.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		mathLib.RawSetString("random", lua.LNil)
		mathLib.RawSetString("randomseed", lua.LNil)
	}

	L.SetGlobal("tick", lua.LNumber(tick))
	L.SetGlobal("destroy", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		t.RawSetString(destroyedKey, lua.LTrue)
		return 0
	}))

	sb := &sandbox{L: L, cache: cache}
	for _, f := range m.Functions {
		src := fmt.Sprintf("function %s(%s)\n%s\nend", f.Name, strings.Join(f.Params, ", "), f.Body)
		if err := sb.exec(src, "function "+f.Name); err != nil {
			L.Close()
			return nil, fmt.Errorf("function %q: %w", f.Name, err)
		}
	}

	L.SetContext(ctx)
	return sb, nil
}

func (sb *sandbox) close() {
	sb.L.Close()
}

func (sb *sandbox) call(src, name string, nret int) error {
	proto, err := sb.cache.compile(src, name)
	if err != nil {
		return err
	}
	sb.L.Push(sb.L.NewFunctionFromProto(proto))
	return sb.L.PCall(0, nret, nil)
}

// exec runs a body. Empty bodies are no-ops.
func (sb *sandbox) exec(src, name string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	return sb.call(src, name, 0)
}

// eval evaluates a condition with Lua truthiness. Empty conditions hold.
func (sb *sandbox) eval(cond, name string) (bool, error) {
	if strings.TrimSpace(cond) == "" {
		return true, nil
	}
	if err := sb.call("return ("+cond+")", name, 1); err != nil {
		return false, err
	}
	v := sb.L.Get(-1)
	sb.L.Pop(1)
	return lua.LVAsBool(v), nil
}

// bind installs one table per template parameter as a global.
// Parameters bound to the same resource share a table.
func (sb *sandbox) bind(params []string, resources []*domain.ResourceState, idx []int) map[int]*lua.LTable {
	tables := make(map[int]*lua.LTable, len(idx))
	for i, name := range params {
		t, ok := tables[idx[i]]
		if !ok {
			t = sb.L.NewTable()
			attrs := resources[idx[i]].Attributes
			// Sorted insertion keeps pairs() deterministic.
			for _, k := range slices.Sorted(maps.Keys(attrs)) {
				t.RawSetString(k, toLua(attrs[k]))
			}
			tables[idx[i]] = t
		}
		sb.L.SetGlobal(name, t)
	}
	return tables
}

func (sb *sandbox) unbind(params []string) {
	for _, name := range params {
		sb.L.SetGlobal(name, lua.LNil)
	}
}

func toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	}
	if f, ok := asFloat(v); ok {
		return lua.LNumber(f)
	}
	return lua.LString(fmt.Sprint(v))
}

func fromLua(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	}
	if v == lua.LNil {
		return nil
	}
	return v.String()
}
