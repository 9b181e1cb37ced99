package thunk

import (
	"context"
	"fmt"

	"github.com/wippyai/thunk-runtime/errors"
)

// Entry is the dispatch capability of one function definition.
// Dispatch receives the thunk being invoked and the supplied argument, which
// may be nil, and returns the resulting Function Value.
type Entry interface {
	Dispatch(ctx context.Context, fn *Func, arg Value) (Value, error)
}

// EntryFunc adapts a plain function to Entry.
type EntryFunc func(ctx context.Context, fn *Func, arg Value) (Value, error)

func (f EntryFunc) Dispatch(ctx context.Context, fn *Func, arg Value) (Value, error) {
	return f(ctx, fn, arg)
}

// Namer is implemented by entries that have a display name.
type Namer interface {
	EntryName() string
}

// EntryName returns the display name of e.
func EntryName(e Entry) string {
	if n, ok := e.(Namer); ok {
		return n.EntryName()
	}
	return fmt.Sprintf("%T", e)
}

// Body computes the result of a saturated function from its arguments.
type Body func(ctx context.Context, args []Value) (Value, error)

// Native is an Entry backed by a Go body.
//
// Dispatching an unsaturated thunk applies the argument and returns the new
// thunk, running Body once the last argument arrives. Dispatching a thunk
// that is already saturated runs Body and, when an argument was supplied,
// invokes the result with it.
type Native struct {
	Body Body
	Name string
}

// EntryName implements Namer.
func (n *Native) EntryName() string {
	return n.Name
}

// Dispatch implements Entry.
func (n *Native) Dispatch(ctx context.Context, fn *Func, arg Value) (Value, error) {
	if !fn.Saturated() {
		if isNil(arg) {
			return fn, nil
		}
		next, err := Apply(fn, arg)
		if err != nil {
			return nil, err
		}
		if !next.Saturated() {
			return next, nil
		}
		return n.run(ctx, next)
	}

	res, err := n.run(ctx, fn)
	if err != nil || isNil(arg) {
		return res, err
	}
	return Invoke(ctx, res, arg)
}

func (n *Native) run(ctx context.Context, fn *Func) (Value, error) {
	if n.Body == nil {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidDispatch).
			Entry(n.Name).
			Detail("entry has no body").
			Build()
	}
	res, err := n.Body(ctx, fn.Args())
	if err != nil {
		return nil, err
	}
	if isNil(res) {
		return nil, errors.New(errors.PhaseInvoke, errors.KindInvalidDispatch).
			Entry(n.Name).
			Detail("body returned no value").
			Build()
	}
	return res, nil
}

// Define creates the root Function Value of a Go-implemented function.
func Define(name string, arity int, body Body) (*Func, error) {
	return NewRoot(&Native{Name: name, Body: body}, arity)
}
