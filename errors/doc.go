// Package errors provides structured error types for the thunk runtime.
//
// Errors are categorized by Phase (which runtime operation failed) and Kind
// (error category). The Error type carries the entry name, argument path and
// cause chain of the failure.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseApply, errors.KindOverApplication).
//		Entry("add").
//		Detail("rank %d already equals arity %d", 2, 2).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OverApplication("add", 2)
//	err := errors.Released(errors.PhaseRelease, handle)
//
// All errors implement the standard error interface and support errors.Is/As.
// The Err* sentinels match any phase:
//
//	if errors.Is(err, errors.ErrOverApplication) { ... }
package errors
