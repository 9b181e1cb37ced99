package runtime

import (
	stderrors "errors"
	"sync/atomic"

	"go.uber.org/zap"

	thunkruntime "github.com/wippyai/thunk-runtime"
	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/resource"
	"github.com/wippyai/thunk-runtime/thunk"
)

// store holds Function Values for one memory mode.
type store interface {
	put(phase errors.Phase, v thunk.Value, children []Ref) (Ref, error)
	get(phase errors.Phase, r Ref) (thunk.Value, error)
	children(r Ref) ([]Ref, error)
	retain(r Ref) error
	release(r Ref) error
	refs(r Ref) (int, error)
	each(fn func(Ref, thunk.Value) bool)
	reset() (int, error)
	live() int
	close() error
}

// managedStore leaves values to the garbage collector.
type managedStore struct{}

func (managedStore) put(_ errors.Phase, v thunk.Value, _ []Ref) (Ref, error) {
	return Ref{value: v}, nil
}

func (managedStore) get(phase errors.Phase, r Ref) (thunk.Value, error) {
	if r.handle != 0 {
		return nil, errors.New(phase, errors.KindInvalidInput).
			Value(r.handle).
			Detail("table handle %v passed to managed runtime", r.handle).
			Build()
	}
	if r.value == nil {
		return nil, errors.InvalidInput(phase, "zero ref")
	}
	return r.value, nil
}

func (managedStore) children(Ref) ([]Ref, error) { return nil, nil }

func (managedStore) retain(Ref) error { return nil }

func (managedStore) release(Ref) error {
	return errors.NotPermitted(errors.PhaseRelease, "release", thunkruntime.ModeManaged.String())
}

func (s managedStore) refs(r Ref) (int, error) {
	if _, err := s.get(errors.PhaseInspect, r); err != nil {
		return 0, err
	}
	return 0, nil
}

func (managedStore) each(func(Ref, thunk.Value) bool) {}

func (managedStore) reset() (int, error) {
	return 0, errors.NotPermitted(errors.PhaseRelease, "reset", thunkruntime.ModeManaged.String())
}

func (managedStore) live() int { return 0 }

func (managedStore) close() error { return nil }

// tableStore keeps values in a handle table. In manual mode entries are
// reference counted and hold their captured arguments; in arena mode
// release is a no-op and reset frees the whole table.
type tableStore struct {
	table *resource.Table
	id    uint64
	limit int
	arena bool
}

var tableIDs atomic.Uint64

func newTableStore(limit int, arena bool) *tableStore {
	s := &tableStore{
		table: resource.NewTable(limit),
		id:    tableIDs.Add(1),
		limit: limit,
		arena: arena,
	}
	s.table.Subscribe(resource.ObserverFunc(logEvent))
	return s
}

func logEvent(e resource.Event) {
	if ce := Logger().Check(zap.DebugLevel, "value "+e.Type.String()); ce != nil {
		ce.Write(
			zap.Stringer("handle", e.Handle),
			zap.Uint32("refs", e.Refs))
	}
}

func (s *tableStore) mode() thunkruntime.Mode {
	if s.arena {
		return thunkruntime.ModeArena
	}
	return thunkruntime.ModeManual
}

func (s *tableStore) put(phase errors.Phase, v thunk.Value, children []Ref) (Ref, error) {
	var handles []resource.Handle
	if !s.arena && len(children) > 0 {
		handles = make([]resource.Handle, 0, len(children))
		for _, c := range children {
			if err := s.owns(phase, c); err != nil {
				return Ref{}, err
			}
			handles = append(handles, c.handle)
		}
	}

	h, err := s.table.Insert(v, handles)
	if err != nil {
		return Ref{}, s.mapErr(phase, 0, err)
	}
	return Ref{handle: h, table: s.id}, nil
}

// owns rejects refs that were not issued by this table.
func (s *tableStore) owns(phase errors.Phase, r Ref) error {
	switch {
	case r.handle == 0 && r.value != nil:
		return errors.InvalidInput(phase, "managed ref passed to "+s.mode().String()+" runtime")
	case r.handle == 0:
		return errors.InvalidInput(phase, "zero ref")
	case r.table != s.id:
		return errors.New(phase, errors.KindInvalidInput).
			Value(r.handle).
			Detail("handle %v belongs to another runtime", r.handle).
			Build()
	}
	return nil
}

func (s *tableStore) get(phase errors.Phase, r Ref) (thunk.Value, error) {
	if err := s.owns(phase, r); err != nil {
		return nil, err
	}
	v, err := s.table.Get(r.handle)
	if err != nil {
		return nil, s.mapErr(phase, r.handle, err)
	}
	return v.(thunk.Value), nil
}

func (s *tableStore) children(r Ref) ([]Ref, error) {
	if s.arena {
		return nil, nil
	}
	if err := s.owns(errors.PhaseApply, r); err != nil {
		return nil, err
	}
	hs, err := s.table.Children(r.handle)
	if err != nil {
		return nil, s.mapErr(errors.PhaseApply, r.handle, err)
	}
	out := make([]Ref, len(hs))
	for i, h := range hs {
		out[i] = Ref{handle: h, table: s.id}
	}
	return out, nil
}

func (s *tableStore) retain(r Ref) error {
	if s.arena {
		_, err := s.get(errors.PhaseRelease, r)
		return err
	}
	if err := s.owns(errors.PhaseRelease, r); err != nil {
		return err
	}
	if err := s.table.Retain(r.handle); err != nil {
		return s.mapErr(errors.PhaseRelease, r.handle, err)
	}
	return nil
}

func (s *tableStore) release(r Ref) error {
	if s.arena {
		_, err := s.get(errors.PhaseRelease, r)
		return err
	}
	if err := s.owns(errors.PhaseRelease, r); err != nil {
		return err
	}
	if _, err := s.table.Release(r.handle); err != nil {
		return s.mapErr(errors.PhaseRelease, r.handle, err)
	}
	return nil
}

func (s *tableStore) refs(r Ref) (int, error) {
	if err := s.owns(errors.PhaseInspect, r); err != nil {
		return 0, err
	}
	n, err := s.table.Refs(r.handle)
	if err != nil {
		return 0, s.mapErr(errors.PhaseInspect, r.handle, err)
	}
	return int(n), nil
}

func (s *tableStore) each(fn func(Ref, thunk.Value) bool) {
	s.table.Each(func(h resource.Handle, v any) bool {
		return fn(Ref{handle: h, table: s.id}, v.(thunk.Value))
	})
}

func (s *tableStore) reset() (int, error) {
	if !s.arena {
		return 0, errors.NotPermitted(errors.PhaseRelease, "reset", s.mode().String())
	}
	return s.table.Reset(), nil
}

func (s *tableStore) live() int { return s.table.Len() }

func (s *tableStore) close() error { return s.table.Close() }

func (s *tableStore) mapErr(phase errors.Phase, h resource.Handle, err error) error {
	switch {
	case stderrors.Is(err, resource.ErrExhausted):
		return errors.AllocationFailed(s.limit)
	case stderrors.Is(err, resource.ErrStale):
		var rerr *errors.Error
		if h == 0 {
			rerr = errors.Released(phase, "of a captured argument")
		} else {
			rerr = errors.Released(phase, h)
		}
		rerr.Cause = err
		return rerr
	case stderrors.Is(err, resource.ErrClosed):
		return errors.Wrap(phase, errors.KindNotPermitted, err, "runtime closed")
	default:
		return errors.Wrap(phase, errors.KindInvalidInput, err, "bad handle")
	}
}
