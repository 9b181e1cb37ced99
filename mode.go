package thunkruntime

import (
	"fmt"
	"strings"

	"github.com/wippyai/thunk-runtime/errors"
)

// Mode selects how Function Values are reclaimed.
type Mode uint8

const (
	// ModeManaged delegates reclamation to the garbage collector.
	ModeManaged Mode = iota
	// ModeManual requires an explicit release of every value.
	ModeManual
	// ModeArena frees every value of a computation together.
	ModeArena
)

func (m Mode) String() string {
	switch m {
	case ModeManaged:
		return "managed"
	case ModeManual:
		return "manual"
	case ModeArena:
		return "arena"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "managed", "gc", "":
		return ModeManaged, nil
	case "manual":
		return ModeManual, nil
	case "arena":
		return ModeArena, nil
	}
	return 0, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path("mode").
		Value(s).
		Detail("unknown mode %q", s).
		Build()
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
