// Package transform runs user-supplied Lua scripts against a JSON document.
//
// A script receives the decoded document as the global `data` and returns
// the transformed value:
//
//	data.count = #data.items
//	return data
//
// JSON null values appear as the global `null` sentinel, not Lua nil, so
// null members survive a round trip and scripts can write `x = null`.
//
// States are sandboxed: only the base, table, string, and math libraries are
// opened, and execution is bounded by a timeout.
package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single script execution.
const DefaultTimeout = 5 * time.Second

// ErrNoResult is returned when a script does not return a value.
var ErrNoResult = errors.New("transform script returned no value")

// jsonNull marks JSON null values inside Lua. Setting a table entry to Lua
// nil deletes the key, so nulls cross the bridge as a userdata sentinel
// instead. Scripts see it as the global `null` and can assign or compare it.
var jsonNull = new(struct{})

// Engine executes transform scripts. A fresh Lua state is created per run so
// scripts cannot observe each other.
type Engine struct {
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-script execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New creates a transform engine.
func New(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes script against the JSON text and returns the transformed
// document as compact JSON text. The input text must be valid JSON.
func (e *Engine) Run(ctx context.Context, script, jsonText string) (result string, err error) {
	var value any
	if err := json.Unmarshal([]byte(jsonText), &value); err != nil {
		return "", fmt.Errorf("transform input: %w", err)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibraries(L)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	L.SetContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	null := L.NewUserData()
	null.Value = jsonNull
	L.SetGlobal("null", null)
	L.SetGlobal("data", toLua(L, null, value))

	fn, err := L.LoadString(script)
	if err != nil {
		return "", fmt.Errorf("compiling transform script: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return "", fmt.Errorf("running transform script: %w", err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	if ret == lua.LNil {
		return "", ErrNoResult
	}

	out, err := fromLua(ret)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding transform result: %w", err)
	}
	return string(encoded), nil
}

// openSafeLibraries opens only libraries without filesystem or process
// access. io, os, debug, and package stay closed.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// toLua converts a decoded JSON value into a Lua value. JSON nulls become
// the null sentinel rather than Lua nil, which would drop the key.
func toLua(L *lua.LState, null *lua.LUserData, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return null
	case bool:
		return lua.LBool(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []any:
		tbl := L.CreateTable(len(v), 0)
		for i, elem := range v {
			tbl.RawSetInt(i+1, toLua(L, null, elem))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(v))
		for key, elem := range v {
			tbl.RawSetString(key, toLua(L, null, elem))
		}
		return tbl
	default:
		return null
	}
}

// fromLua converts a Lua value back into a JSON-encodable Go value. Tables
// with contiguous 1..n integer keys become arrays, all other tables become
// objects with stringified keys.
func fromLua(value lua.LValue) (any, error) {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		return tableFromLua(v)
	case *lua.LUserData:
		if v.Value == jsonNull {
			return nil, nil
		}
		return nil, fmt.Errorf("transform result contains unsupported %s value", value.Type())
	default:
		return nil, fmt.Errorf("transform result contains unsupported %s value", value.Type())
	}
}

func tableFromLua(tbl *lua.LTable) (any, error) {
	maxN := tbl.MaxN()
	if maxN > 0 {
		arr := make([]any, 0, maxN)
		var convErr error
		for i := 1; i <= maxN; i++ {
			elem, err := fromLua(tbl.RawGetInt(i))
			if err != nil {
				convErr = err
				break
			}
			arr = append(arr, elem)
		}
		if convErr != nil {
			return nil, convErr
		}
		return arr, nil
	}

	obj := make(map[string]any)
	var convErr error
	tbl.ForEach(func(key, val lua.LValue) {
		if convErr != nil {
			return
		}
		converted, err := fromLua(val)
		if err != nil {
			convErr = err
			return
		}
		obj[lua.LVAsString(key)] = converted
	})
	if convErr != nil {
		return nil, convErr
	}
	return obj, nil
}
