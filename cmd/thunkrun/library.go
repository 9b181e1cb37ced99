package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/thunk-runtime/engine"
	"github.com/wippyai/thunk-runtime/thunk"
)

// library is a named set of curried functions.
type library interface {
	Functions() []funcInfo
	Root(name string) (*thunk.Func, error)
	Close(ctx context.Context) error
}

type funcInfo struct {
	name      string
	params    []wit.Type
	result    wit.Type
	curryable bool
}

func (f funcInfo) arity() int {
	return len(f.params)
}

func (f funcInfo) paramType(i int) wit.Type {
	if i < len(f.params) {
		return f.params[i]
	}
	return wit.S64{}
}

func (f funcInfo) String() string {
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = fmt.Sprintf("arg%d: %s", i, engine.TypeName(p))
	}
	result := ""
	if f.result != nil {
		result = " -> " + engine.TypeName(f.result)
	}
	return f.name + "(" + strings.Join(params, ", ") + ")" + result
}

func lookup(lib library, name string) (funcInfo, bool) {
	for _, f := range lib.Functions() {
		if f.name == name {
			return f, true
		}
	}
	return funcInfo{}, false
}

// wasmLibrary exposes the exports of a wasm module.
type wasmLibrary struct {
	mod *engine.Module
}

func (l wasmLibrary) Functions() []funcInfo {
	var funcs []funcInfo
	for _, e := range l.mod.Exports() {
		fi := funcInfo{
			name:      e.Name,
			params:    e.Params,
			curryable: e.Curryable(),
		}
		if len(e.Results) > 0 {
			fi.result = e.Results[0]
		}
		funcs = append(funcs, fi)
	}
	return funcs
}

func (l wasmLibrary) Root(name string) (*thunk.Func, error) {
	return l.mod.Root(name)
}

func (l wasmLibrary) Close(ctx context.Context) error {
	return l.mod.Close(ctx)
}

// builtinLibrary holds the Go functions available without a wasm file.
type builtinLibrary struct {
	roots map[string]*thunk.Func
	funcs []funcInfo
}

func newBuiltinLibrary() (*builtinLibrary, error) {
	l := &builtinLibrary{roots: make(map[string]*thunk.Func)}

	add, err := l.define("add", 2, func(_ context.Context, args []thunk.Value) (thunk.Value, error) {
		a, b, err := payloads2(args)
		if err != nil {
			return nil, err
		}
		return thunk.NewValue(a + b), nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := l.define("add_one", 1, func(ctx context.Context, args []thunk.Value) (thunk.Value, error) {
		return thunk.Call(ctx, add, thunk.NewValue(1), args[0])
	}); err != nil {
		return nil, err
	}

	if _, err := l.define("call_add", 4, func(ctx context.Context, args []thunk.Value) (thunk.Value, error) {
		left, err := thunk.Call(ctx, add, args[0], args[1])
		if err != nil {
			return nil, err
		}
		right, err := thunk.Call(ctx, add, args[2], args[3])
		if err != nil {
			return nil, err
		}
		return thunk.Call(ctx, add, left, right)
	}); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *builtinLibrary) define(name string, arity int, body thunk.Body) (*thunk.Func, error) {
	fn, err := thunk.Define(name, arity, body)
	if err != nil {
		return nil, err
	}
	params := make([]wit.Type, arity)
	for i := range params {
		params[i] = wit.S64{}
	}
	l.roots[name] = fn
	l.funcs = append(l.funcs, funcInfo{name: name, params: params, result: wit.S64{}, curryable: true})
	return fn, nil
}

func payloads2(args []thunk.Value) (int64, int64, error) {
	a, err := thunk.PayloadOf(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := thunk.PayloadOf(args[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (l *builtinLibrary) Functions() []funcInfo {
	return l.funcs
}

func (l *builtinLibrary) Root(name string) (*thunk.Func, error) {
	fn, ok := l.roots[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	return fn, nil
}

func (l *builtinLibrary) Close(context.Context) error {
	return nil
}

// convertArg parses an argument for a parameter of type t.
func convertArg(value string, t wit.Type) (int64, error) {
	value = strings.TrimSpace(value)
	switch t.(type) {
	case wit.S32:
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("s32 argument %q: %w", value, err)
		}
		return v, nil
	case wit.S64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("s64 argument %q: %w", value, err)
		}
		return v, nil
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", engine.TypeName(t))
	}
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}
