package thunk

import (
	"context"
	"strconv"

	"github.com/wippyai/thunk-runtime/errors"
)

// NewRoot creates the root Function Value of a function definition:
// rank 0, no captured arguments, room reserved for arity of them.
func NewRoot(entry Entry, arity int) (*Func, error) {
	if entry == nil {
		return nil, errors.InvalidInput(errors.PhaseCreate, "nil entry point")
	}
	if arity < 0 {
		return nil, errors.New(errors.PhaseCreate, errors.KindInvalidInput).
			Entry(EntryName(entry)).
			Value(arity).
			Detail("negative arity %d", arity).
			Build()
	}
	return &Func{
		entry: entry,
		arity: arity,
		args:  make([]Value, 0, arity),
	}, nil
}

// NewValue creates a scalar Function Value carrying payload.
func NewValue(payload int64) Scalar {
	return Scalar{payload: payload}
}

// Apply supplies one more argument to fn, returning a new Function Value with
// rank+1. fn itself is left untouched and stays usable.
func Apply(fn *Func, arg Value) (*Func, error) {
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseApply, "nil thunk")
	}
	if isNil(arg) {
		return nil, errors.New(errors.PhaseApply, errors.KindInvalidInput).
			Entry(fn.Name()).
			Path("args", strconv.Itoa(len(fn.args))).
			Detail("nil argument").
			Build()
	}
	if len(fn.args) >= fn.arity {
		return nil, errors.OverApplication(fn.Name(), fn.arity)
	}

	args := make([]Value, len(fn.args)+1, fn.arity)
	copy(args, fn.args)
	args[len(fn.args)] = arg

	return &Func{
		entry: fn.entry,
		arity: fn.arity,
		args:  args,
	}, nil
}

// ApplyAll applies args to fn in order.
func ApplyAll(fn *Func, args ...Value) (*Func, error) {
	cur := fn
	for _, arg := range args {
		next, err := Apply(cur, arg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Invoke calls v's entry point with (v, arg) and returns its result.
// Saturation is not checked; the entry decides. arg may be nil.
func Invoke(ctx context.Context, v Value, arg Value) (Value, error) {
	fn, ok := v.(*Func)
	if !ok || fn == nil {
		return nil, errors.InvalidDispatch(Describe(v))
	}

	res, err := fn.entry.Dispatch(ctx, fn, arg)
	if err != nil {
		return nil, err
	}
	if isNil(res) {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidDispatch).
			Entry(fn.Name()).
			Detail("entry returned no value").
			Build()
	}
	return res, nil
}

// Call invokes v once per argument, threading each result into the next
// call. With no arguments v is invoked once with a nil argument.
func Call(ctx context.Context, v Value, args ...Value) (Value, error) {
	if len(args) == 0 {
		return Invoke(ctx, v, nil)
	}
	cur := v
	for _, arg := range args {
		next, err := Invoke(ctx, cur, arg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
