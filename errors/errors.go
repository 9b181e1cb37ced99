package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which runtime operation produced the error
type Phase string

const (
	PhaseCreate  Phase = "create"  // root and value construction
	PhaseApply   Phase = "apply"   // partial application
	PhaseInvoke  Phase = "invoke"  // entry dispatch
	PhaseRelease Phase = "release" // manual reclamation
	PhaseAlloc   Phase = "alloc"   // value storage
	PhaseLoad    Phase = "load"    // wasm module loading
	PhaseConfig  Phase = "config"  // configuration parsing
	PhaseInspect Phase = "inspect" // diagnostics and snapshots
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation      Kind = "allocation"
	KindOverApplication Kind = "over_application"
	KindReleased        Kind = "released"
	KindInvalidDispatch Kind = "invalid_dispatch"
	KindNotPermitted    Kind = "not_permitted"
	KindInvalidInput    Kind = "invalid_input"
	KindTypeMismatch    Kind = "type_mismatch"
	KindNotFound        Kind = "not_found"
	KindUnsupported     Kind = "unsupported"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInvalidData     Kind = "invalid_data"
)

// Sentinels for errors.Is. They carry no phase and match an error of the same
// kind raised in any phase.
var (
	ErrAllocation      = &Error{Kind: KindAllocation}
	ErrOverApplication = &Error{Kind: KindOverApplication}
	ErrReleased        = &Error{Kind: KindReleased}
	ErrInvalidDispatch = &Error{Kind: KindInvalidDispatch}
	ErrNotPermitted    = &Error{Kind: KindNotPermitted}
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Entry  string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Entry != "" {
		b.WriteString(" in ")
		b.WriteString(e.Entry)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Entry sets the name of the entry point involved
func (b *Builder) Entry(name string) *Builder {
	b.err.Entry = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OverApplication creates an error for applying an argument to a saturated thunk
func OverApplication(entry string, arity int) *Error {
	return &Error{
		Phase:  PhaseApply,
		Kind:   KindOverApplication,
		Entry:  entry,
		Detail: fmt.Sprintf("thunk already saturated (arity %d)", arity),
		Value:  arity,
	}
}

// InvalidDispatch creates an error for invoking something without an entry point
func InvalidDispatch(what string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindInvalidDispatch,
		Detail: fmt.Sprintf("cannot dispatch %s: no entry point", what),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(limit int) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("value table exhausted (limit %d)", limit),
		Value:  limit,
	}
}

// Released creates an error for a handle that was already released
func Released(phase Phase, handle any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("handle %v already released", handle),
		Value:  handle,
	}
}

// NotPermitted creates an error for an operation the current mode refuses
func NotPermitted(phase Phase, op, mode string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotPermitted,
		Detail: fmt.Sprintf("%s is not permitted in %s mode", op, mode),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a configuration parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
