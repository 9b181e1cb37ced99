package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	thunkruntime "github.com/wippyai/thunk-runtime"
	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/thunk"
)

// Config holds configuration for runtime creation
type Config struct {
	// GC is applied through Init when a managed runtime is created.
	GC GCConfig

	// MaxValues bounds the number of live values in manual and arena mode.
	// 0 means unbounded. Managed mode relies on the collector instead.
	MaxValues int

	Mode thunkruntime.Mode
}

// Option customizes a Runtime.
type Option func(*Runtime)

// WithFatalHandler replaces the process abort performed on allocation
// failure. The failing call returns the allocation error after fn returns.
func WithFatalHandler(fn func(error)) Option {
	return func(r *Runtime) {
		r.fatal = fn
	}
}

// Runtime creates, applies, invokes and releases Function Values.
type Runtime struct {
	store store
	fatal func(error)
	cfg   Config
}

// New creates a runtime for cfg.Mode.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	if cfg.MaxValues < 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("negative MaxValues %d", cfg.MaxValues))
	}

	r := &Runtime{
		cfg:   cfg,
		fatal: abort,
	}

	switch cfg.Mode {
	case thunkruntime.ModeManaged:
		Init(cfg.GC)
		r.store = managedStore{}
	case thunkruntime.ModeManual:
		r.store = newTableStore(cfg.MaxValues, false)
	case thunkruntime.ModeArena:
		r.store = newTableStore(cfg.MaxValues, true)
	default:
		return nil, errors.Unsupported(errors.PhaseConfig, "mode "+cfg.Mode.String())
	}

	for _, opt := range opts {
		opt(r)
	}

	Logger().Debug("runtime created",
		zap.Stringer("mode", cfg.Mode),
		zap.Int("max_values", cfg.MaxValues))
	return r, nil
}

func abort(err error) {
	Logger().Error("fatal allocation failure", zap.Error(err))
	_ = Logger().Sync()
	fmt.Fprintf(os.Stderr, "thunk runtime: %v\n", err)
	os.Exit(2)
}

// Mode returns the memory mode of the runtime.
func (r *Runtime) Mode() thunkruntime.Mode {
	return r.cfg.Mode
}

func (r *Runtime) put(phase errors.Phase, v thunk.Value, children []Ref) (Ref, error) {
	ref, err := r.store.put(phase, v, children)
	if err != nil {
		if stderrors.Is(err, errors.ErrAllocation) {
			r.fatal(err)
		}
		return Ref{}, err
	}
	return ref, nil
}

// Adopt registers an existing Function Value, such as a root built with
// thunk.Define or by the engine package, and returns an owned Ref.
func (r *Runtime) Adopt(v thunk.Value) (Ref, error) {
	if v == nil {
		return Ref{}, errors.InvalidInput(errors.PhaseCreate, "nil value")
	}
	return r.put(errors.PhaseCreate, v, nil)
}

// CreateRoot creates the root Function Value of a function definition.
func (r *Runtime) CreateRoot(entry thunk.Entry, arity int) (Ref, error) {
	fn, err := thunk.NewRoot(entry, arity)
	if err != nil {
		return Ref{}, err
	}
	return r.put(errors.PhaseCreate, fn, nil)
}

// CreateValue creates a scalar Function Value.
func (r *Runtime) CreateValue(payload int64) (Ref, error) {
	return r.put(errors.PhaseCreate, thunk.NewValue(payload), nil)
}

// Apply supplies arg to the thunk t and returns a Ref to the new thunk.
// t is left unchanged and stays owned by the caller.
func (r *Runtime) Apply(t, arg Ref) (Ref, error) {
	v, err := r.store.get(errors.PhaseApply, t)
	if err != nil {
		return Ref{}, err
	}
	fn, ok := v.(*thunk.Func)
	if !ok {
		return Ref{}, errors.TypeMismatch(errors.PhaseApply, nil, "function", thunk.Describe(v))
	}
	a, err := r.store.get(errors.PhaseApply, arg)
	if err != nil {
		return Ref{}, err
	}

	next, err := thunk.Apply(fn, a)
	if err != nil {
		return Ref{}, err
	}

	children, err := r.store.children(t)
	if err != nil {
		return Ref{}, err
	}
	return r.put(errors.PhaseApply, next, append(children, arg))
}

// Invoke dispatches t with arg to t's entry point and returns a Ref to the
// result. arg may be the zero Ref to dispatch without an argument.
func (r *Runtime) Invoke(ctx context.Context, t, arg Ref) (Ref, error) {
	v, err := r.store.get(errors.PhaseInvoke, t)
	if err != nil {
		return Ref{}, err
	}
	var a thunk.Value
	if !arg.IsZero() {
		if a, err = r.store.get(errors.PhaseInvoke, arg); err != nil {
			return Ref{}, err
		}
	}

	res, err := thunk.Invoke(ctx, v, a)
	if err != nil {
		return Ref{}, err
	}

	if res == v {
		if err := r.store.retain(t); err != nil {
			return Ref{}, err
		}
		return t, nil
	}

	var children []Ref
	if _, ok := res.(*thunk.Func); ok {
		// the result may capture anything reachable from t or arg
		if children, err = r.store.children(t); err != nil {
			return Ref{}, err
		}
		children = append(children, t)
		if !arg.IsZero() {
			children = append(children, arg)
		}
	}
	return r.put(errors.PhaseInvoke, res, children)
}

// Call invokes t with each argument in turn and returns the final result.
// Intermediate results are released in manual mode.
func (r *Runtime) Call(ctx context.Context, t Ref, args ...Ref) (Ref, error) {
	if len(args) == 0 {
		return r.Invoke(ctx, t, Ref{})
	}
	cur := t
	for i, arg := range args {
		next, err := r.Invoke(ctx, cur, arg)
		if i > 0 {
			r.dropIntermediate(cur)
		}
		if err != nil {
			return Ref{}, err
		}
		cur = next
	}
	return cur, nil
}

func (r *Runtime) dropIntermediate(ref Ref) {
	if r.cfg.Mode != thunkruntime.ModeManual {
		return
	}
	if err := r.store.release(ref); err != nil {
		Logger().Warn("release intermediate", zap.Stringer("ref", ref), zap.Error(err))
	}
}

// Release gives up the caller's reference to r. In manual mode the value is
// freed once no Ref or thunk holds it; releasing again is an error.
// Arena mode ignores the call and managed mode refuses it.
func (r *Runtime) Release(ref Ref) error {
	return r.store.release(ref)
}

// Retain adds a reference to ref, so that it must be released once more.
func (r *Runtime) Retain(ref Ref) error {
	return r.store.retain(ref)
}

// Resolve returns the Function Value behind ref.
func (r *Runtime) Resolve(ref Ref) (thunk.Value, error) {
	return r.store.get(errors.PhaseInspect, ref)
}

// Dump writes the diagnostic line of the value behind ref to w.
func (r *Runtime) Dump(w io.Writer, ref Ref) error {
	v, err := r.Resolve(ref)
	if err != nil {
		return err
	}
	return thunk.Dump(w, v)
}

// Reset frees every value of an arena runtime and returns how many were freed.
func (r *Runtime) Reset() (int, error) {
	n, err := r.store.reset()
	if err != nil {
		return 0, err
	}
	Logger().Debug("arena reset", zap.Int("freed", n))
	return n, nil
}

// Live returns the number of values held in the table.
// Managed runtimes do not track values and always report 0.
func (r *Runtime) Live() int {
	return r.store.live()
}

// RefCount returns the number of references held on the value behind ref,
// counting both callers and thunks that captured it. Managed runtimes
// report 0.
func (r *Runtime) RefCount(ref Ref) (int, error) {
	return r.store.refs(ref)
}

// Values calls fn for every value held in the table until fn returns false.
// fn must not call back into the runtime. Managed runtimes hold no table
// and never call fn.
func (r *Runtime) Values(fn func(Ref, thunk.Value) bool) {
	r.store.each(fn)
}

// Close releases all values. The runtime cannot be used afterwards.
func (r *Runtime) Close() error {
	return r.store.close()
}
