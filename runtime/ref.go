package runtime

import (
	"github.com/wippyai/thunk-runtime/resource"
	"github.com/wippyai/thunk-runtime/thunk"
)

// Ref is a runtime reference to a Function Value.
// Managed runtimes hand out Refs that hold the value directly; manual and
// arena runtimes hand out table handles stamped with the issuing table, so
// a handle is only accepted by the runtime that created it. The zero Ref
// refers to nothing.
type Ref struct {
	value  thunk.Value
	handle resource.Handle
	table  uint64
}

// IsZero reports whether r refers to nothing.
func (r Ref) IsZero() bool {
	return r.value == nil && r.handle == 0
}

// Handle returns the table handle of r, or 0 for a managed Ref.
func (r Ref) Handle() resource.Handle {
	return r.handle
}

func (r Ref) String() string {
	switch {
	case r.handle != 0:
		return r.handle.String()
	case r.value != nil:
		return "@" + thunk.Describe(r.value)
	default:
		return "<zero>"
	}
}
