package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	thunkruntime "github.com/wippyai/thunk-runtime"
	"github.com/wippyai/thunk-runtime/runtime"
	"github.com/wippyai/thunk-runtime/thunk"
)

// session applies arguments to one function one at a time.
// chain[0] is the root and chain[i] holds the first i arguments; every
// element stays valid, so stepping back is just dropping the tail.
type session struct {
	rt    *runtime.Runtime
	fn    funcInfo
	chain []runtime.Ref
}

func newSession(rt *runtime.Runtime, lib library, fn funcInfo) (*session, error) {
	root, err := lib.Root(fn.name)
	if err != nil {
		return nil, err
	}
	ref, err := rt.Adopt(root)
	if err != nil {
		return nil, err
	}
	return &session{rt: rt, fn: fn, chain: []runtime.Ref{ref}}, nil
}

func (s *session) current() runtime.Ref {
	return s.chain[len(s.chain)-1]
}

func (s *session) rank() int {
	return len(s.chain) - 1
}

func (s *session) saturated() bool {
	return s.rank() >= s.fn.arity()
}

func (s *session) value() (thunk.Value, error) {
	return s.rt.Resolve(s.current())
}

// apply parses text for the next parameter and applies it.
func (s *session) apply(text string) (runtime.Ref, error) {
	payload, err := convertArg(text, s.fn.paramType(s.rank()))
	if err != nil {
		return runtime.Ref{}, err
	}
	arg, err := s.rt.CreateValue(payload)
	if err != nil {
		return runtime.Ref{}, err
	}
	next, err := s.rt.Apply(s.current(), arg)
	s.drop(arg)
	if err != nil {
		return runtime.Ref{}, err
	}
	s.chain = append(s.chain, next)
	return next, nil
}

// back returns to the predecessor of the current thunk.
func (s *session) back() bool {
	if len(s.chain) == 1 {
		return false
	}
	s.drop(s.current())
	s.chain = s.chain[:len(s.chain)-1]
	return true
}

// invoke dispatches the current thunk without an argument and returns the
// resulting value.
func (s *session) invoke(ctx context.Context) (thunk.Value, error) {
	res, err := s.rt.Invoke(ctx, s.current(), runtime.Ref{})
	if err != nil {
		return nil, err
	}
	defer s.drop(res)
	v, err := s.rt.Resolve(res)
	if err != nil {
		return nil, fmt.Errorf("resolve result: %w", err)
	}
	return v, nil
}

func (s *session) close() {
	for len(s.chain) > 0 {
		s.drop(s.current())
		s.chain = s.chain[:len(s.chain)-1]
	}
}

// drop releases ref when the runtime counts references.
func (s *session) drop(ref runtime.Ref) {
	if s.rt.Mode() != thunkruntime.ModeManual {
		return
	}
	if err := s.rt.Release(ref); err != nil {
		runtime.Logger().Warn("release", zap.Stringer("ref", ref), zap.Error(err))
	}
}
