package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/thunk"
)

const wasiModule = "wasi_snapshot_preview1"

// Config holds configuration for module loading
type Config struct {
	// Name is the instance name. Empty means anonymous.
	Name string

	// MemoryLimitPages sets the maximum memory of the instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 before the module even when
	// the module does not import it.
	WASI bool
}

// Export describes one exported function.
type Export struct {
	Name    string
	Params  []wit.Type
	Results []wit.Type

	core []api.ValueType
}

// Arity returns the parameter count of the export.
func (e Export) Arity() int {
	return len(e.Params)
}

// Curryable reports whether the export can become a root Function Value.
func (e Export) Curryable() bool {
	return e.unsupported() == ""
}

func (e Export) unsupported() string {
	if len(e.Params) != len(e.core) {
		return "reference type parameter"
	}
	for i, p := range e.Params {
		if !isInteger(p) {
			return fmt.Sprintf("parameter %d of type %s", i, TypeName(p))
		}
	}
	if len(e.Results) != 1 {
		return fmt.Sprintf("%d results", len(e.Results))
	}
	if !isInteger(e.Results[0]) {
		return "result of type " + TypeName(e.Results[0])
	}
	return ""
}

// String formats the export as a WIT function signature.
func (e Export) String() string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteString(": func(")
	for i, p := range e.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "p%d: %s", i, TypeName(p))
	}
	b.WriteString(")")
	switch len(e.Results) {
	case 0:
	case 1:
		b.WriteString(" -> ")
		b.WriteString(TypeName(e.Results[0]))
	default:
		b.WriteString(" -> tuple<")
		for i, r := range e.Results {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(TypeName(r))
		}
		b.WriteString(">")
	}
	return b.String()
}

// Module is an instantiated core WebAssembly module.
type Module struct {
	runtime  wazero.Runtime
	instance api.Module
	exports  map[string]Export
	mu       sync.Mutex
	closed   bool
}

// Load compiles and instantiates wasm. The module owns its wazero runtime
// and must be closed.
func Load(ctx context.Context, wasm []byte, cfg *Config) (*Module, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("compile failed", err)
	}

	if cfg.WASI || importsWASI(compiled) {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			_ = r.Close(ctx)
			return nil, errors.Load("instantiate WASI", err)
		}
	}

	modCfg := wazero.NewModuleConfig().
		WithName(cfg.Name).
		WithStartFunctions("_initialize")
	instance, err := r.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate failed", err)
	}

	m := &Module{
		runtime:  r,
		instance: instance,
		exports:  make(map[string]Export),
	}
	for name, def := range compiled.ExportedFunctions() {
		m.exports[name] = describe(name, def)
	}

	Logger().Debug("module loaded",
		zap.String("name", cfg.Name),
		zap.Int("exports", len(m.exports)))
	return m, nil
}

func importsWASI(compiled wazero.CompiledModule) bool {
	for _, def := range compiled.ImportedFunctions() {
		if mod, _, ok := def.Import(); ok && mod == wasiModule {
			return true
		}
	}
	return false
}

func describe(name string, def api.FunctionDefinition) Export {
	exp := Export{
		Name: name,
		core: def.ParamTypes(),
	}
	for _, vt := range def.ParamTypes() {
		if t, ok := witType(vt); ok {
			exp.Params = append(exp.Params, t)
		}
	}
	for _, vt := range def.ResultTypes() {
		if t, ok := witType(vt); ok {
			exp.Results = append(exp.Results, t)
		}
	}
	return exp
}

// Exports lists the exported functions sorted by name.
func (m *Module) Exports() []Export {
	out := make([]Export, 0, len(m.exports))
	for _, e := range m.exports {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Export returns the export called name.
func (m *Module) Export(name string) (Export, bool) {
	e, ok := m.exports[name]
	return e, ok
}

// Root builds the root Function Value of the export called name.
func (m *Module) Root(name string) (*thunk.Func, error) {
	exp, ok := m.exports[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "export", name)
	}
	if why := exp.unsupported(); why != "" {
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Entry(name).
			Detail("cannot curry %s: %s", exp, why).
			Build()
	}

	entry := &thunk.Native{
		Name: name,
		Body: func(ctx context.Context, args []thunk.Value) (thunk.Value, error) {
			return m.call(ctx, exp, args)
		},
	}
	return thunk.NewRoot(entry, exp.Arity())
}

func (m *Module) call(ctx context.Context, exp Export, args []thunk.Value) (thunk.Value, error) {
	params := make([]uint64, len(args))
	for i, arg := range args {
		p, ok := arg.(thunk.Scalar)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseInvoke,
				[]string{exp.Name, "args", strconv.Itoa(i)}, "value", thunk.Describe(arg))
		}
		enc, err := encode(exp.Params[i], p.Payload())
		if err != nil {
			return nil, errors.New(errors.PhaseInvoke, errors.KindOutOfBounds).
				Entry(exp.Name).
				Path("args", strconv.Itoa(i)).
				Value(p.Payload()).
				Cause(err).
				Build()
		}
		params[i] = enc
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.NotPermitted(errors.PhaseInvoke, "call "+exp.Name, "closed module")
	}

	fn := m.instance.ExportedFunction(exp.Name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseInvoke, "export", exp.Name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		Logger().Debug("export trapped", zap.String("export", exp.Name), zap.Error(err))
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidDispatch).
			Entry(exp.Name).
			Cause(err).
			Detail("call failed").
			Build()
	}
	return thunk.NewValue(decode(exp.Results[0], results[0])), nil
}

func encode(t wit.Type, v int64) (uint64, error) {
	if _, ok := t.(wit.S32); ok {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%d overflows s32", v)
		}
		return api.EncodeI32(int32(v)), nil
	}
	return uint64(v), nil
}

func decode(t wit.Type, raw uint64) int64 {
	if _, ok := t.(wit.S32); ok {
		return int64(api.DecodeI32(raw))
	}
	return int64(raw)
}

// Close closes the instance and its runtime.
// Roots built from the module fail once it is closed.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.runtime.Close(ctx)
}
