package inspect

import (
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/thunk-runtime/errors"
	"github.com/wippyai/thunk-runtime/thunk"
)

// Snapshot kinds.
const (
	KindFunction = "function"
	KindValue    = "value"
)

// Snapshot is the serializable shape of a Function Value.
type Snapshot struct {
	Kind    string     `cbor:"1,keyasint"`
	Entry   string     `cbor:"2,keyasint,omitempty"`
	Arity   int        `cbor:"3,keyasint,omitempty"`
	Payload int64      `cbor:"4,keyasint,omitempty"`
	Args    []Snapshot `cbor:"5,keyasint,omitempty"`
}

// Rank returns the number of captured arguments.
func (s *Snapshot) Rank() int {
	return len(s.Args)
}

func (s *Snapshot) String() string {
	if s.Kind == KindValue {
		return "value = " + strconv.FormatInt(s.Payload, 10)
	}
	return fmt.Sprintf("entry = %s, arity = %d, rank = %d", s.Entry, s.Arity, s.Rank())
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("inspect: failed to create CBOR enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{MaxNestedLevels: 1024}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("inspect: failed to create CBOR dec mode: %v", err))
	}
	decMode = dm
}

// Capture returns the snapshot of v.
func Capture(v thunk.Value) (*Snapshot, error) {
	switch v := v.(type) {
	case *thunk.Func:
		if v == nil {
			break
		}
		s := &Snapshot{
			Kind:  KindFunction,
			Entry: v.Name(),
			Arity: v.Arity(),
		}
		for _, arg := range v.Args() {
			child, err := Capture(arg)
			if err != nil {
				return nil, err
			}
			s.Args = append(s.Args, *child)
		}
		return s, nil
	case thunk.Scalar:
		return &Snapshot{Kind: KindValue, Payload: v.Payload()}, nil
	case *thunk.Scalar:
		if v == nil {
			break
		}
		return &Snapshot{Kind: KindValue, Payload: v.Payload()}, nil
	}
	return nil, errors.InvalidInput(errors.PhaseInspect, "cannot capture "+thunk.Describe(v))
}

// Encode captures v and serializes it to canonical CBOR.
func Encode(v thunk.Value) ([]byte, error) {
	s, err := Capture(v)
	if err != nil {
		return nil, err
	}
	return Marshal(s)
}

// Marshal serializes s to canonical CBOR.
func Marshal(s *Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInspect, errors.KindInvalidData, err, "encode snapshot")
	}
	return data, nil
}

// Decode reads a snapshot and validates its structure.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseInspect, errors.KindInvalidData, err, "decode snapshot")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every node is a well-formed value or function.
func (s *Snapshot) Validate() error {
	return s.validate(nil)
}

func (s *Snapshot) validate(path []string) error {
	switch s.Kind {
	case KindValue:
		if s.Entry != "" || s.Arity != 0 || len(s.Args) != 0 {
			return errors.InvalidData(errors.PhaseInspect, path, "value carries function fields")
		}
	case KindFunction:
		if s.Arity < 0 {
			return errors.InvalidData(errors.PhaseInspect, path, fmt.Sprintf("negative arity %d", s.Arity))
		}
		if len(s.Args) > s.Arity {
			return errors.InvalidData(errors.PhaseInspect, path,
				fmt.Sprintf("rank %d exceeds arity %d", len(s.Args), s.Arity))
		}
		if s.Payload != 0 {
			return errors.InvalidData(errors.PhaseInspect, path, "function carries a payload")
		}
		for i := range s.Args {
			if err := s.Args[i].validate(append(path, "args", strconv.Itoa(i))); err != nil {
				return err
			}
		}
	default:
		return errors.InvalidData(errors.PhaseInspect, path, fmt.Sprintf("unknown kind %q", s.Kind))
	}
	return nil
}
