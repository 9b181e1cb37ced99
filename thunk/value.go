package thunk

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/wippyai/thunk-runtime/errors"
)

// Value is a Function Value. It is either a *Func or a Scalar.
type Value interface {
	isValue()
}

// Func is a callable Function Value with some prefix of its arguments captured.
type Func struct {
	entry Entry
	// len(args) is the rank, cap(args) the arity
	args  []Value
	arity int
}

func (*Func) isValue() {}

// Entry returns the entry point of the function.
func (f *Func) Entry() Entry { return f.entry }

// Name returns the entry point's display name.
func (f *Func) Name() string { return EntryName(f.entry) }

// Arity returns the total number of arguments the function requires.
func (f *Func) Arity() int { return f.arity }

// Rank returns the number of arguments already captured.
func (f *Func) Rank() int { return len(f.args) }

// Remaining returns how many arguments are still missing.
func (f *Func) Remaining() int { return f.arity - len(f.args) }

// Saturated reports whether every argument has been supplied.
func (f *Func) Saturated() bool { return len(f.args) == f.arity }

// Args returns a copy of the captured arguments in application order.
func (f *Func) Args() []Value { return slices.Clone(f.args) }

// Arg returns the i-th captured argument.
func (f *Func) Arg(i int) (Value, error) {
	if i < 0 || i >= len(f.args) {
		return nil, errors.OutOfBounds(errors.PhaseInspect, []string{"args"}, i, len(f.args))
	}
	return f.args[i], nil
}

func (f *Func) String() string {
	return fmt.Sprintf("entry = %s, arity = %d, rank = %d", f.Name(), f.arity, len(f.args))
}

// Scalar is a realized integer result carried through argument slots.
type Scalar struct {
	payload int64
}

func (Scalar) isValue() {}

// Payload returns the carried integer.
func (s Scalar) Payload() int64 { return s.payload }

// Arity is always zero for a scalar.
func (Scalar) Arity() int { return 0 }

func (s Scalar) String() string {
	return "value = " + strconv.FormatInt(s.payload, 10)
}

// PayloadOf returns the integer carried by a Scalar.
func PayloadOf(v Value) (int64, error) {
	switch v := v.(type) {
	case Scalar:
		return v.payload, nil
	case *Scalar:
		if v != nil {
			return v.payload, nil
		}
	}
	return 0, errors.TypeMismatch(errors.PhaseInvoke, nil, "scalar", Describe(v))
}

// Describe returns a short kind description of v for error messages.
func Describe(v Value) string {
	switch v := v.(type) {
	case *Func:
		if v == nil {
			return "nil function"
		}
		return "function " + v.Name()
	case Scalar:
		return "value " + strconv.FormatInt(v.payload, 10)
	case *Scalar:
		if v == nil {
			return "nil value"
		}
		return "value " + strconv.FormatInt(v.payload, 10)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func isNil(v Value) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *Func:
		return v == nil
	case *Scalar:
		return v == nil
	}
	return false
}
