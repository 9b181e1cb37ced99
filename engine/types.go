package engine

import (
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// witType maps a core value type to its WIT equivalent.
// Reference types have no WIT counterpart and report false.
func witType(vt api.ValueType) (wit.Type, bool) {
	switch vt {
	case api.ValueTypeI32:
		return wit.S32{}, true
	case api.ValueTypeI64:
		return wit.S64{}, true
	case api.ValueTypeF32:
		return wit.F32{}, true
	case api.ValueTypeF64:
		return wit.F64{}, true
	default:
		return nil, false
	}
}

// TypeName returns the WIT spelling of t.
func TypeName(t wit.Type) string {
	switch t.(type) {
	case wit.S32:
		return "s32"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case nil:
		return "nil"
	default:
		return "unknown"
	}
}

func isInteger(t wit.Type) bool {
	switch t.(type) {
	case wit.S32, wit.S64:
		return true
	}
	return false
}
