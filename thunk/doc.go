// Package thunk implements the Function Value representation and the
// partial-application protocol used by curried generated code.
//
// A Function Value is either a callable *Func or a realized Scalar:
//
//	root, _ := thunk.NewRoot(addEntry, 2)           // arity 2, rank 0
//	p1, _ := thunk.Apply(root, thunk.NewValue(3))   // rank 1
//	p2, _ := thunk.Apply(p1, thunk.NewValue(4))     // rank 2, saturated
//	res, _ := thunk.Invoke(ctx, p2, nil)            // entry decides what to do
//
// # Persistence
//
// Values are immutable once constructed. Apply never mutates its input, so
// any number of independent chains may branch from the same predecessor:
//
//	a, _ := thunk.Apply(root, thunk.NewValue(3))
//	b, _ := thunk.Apply(root, thunk.NewValue(10))   // root and a unchanged
//
// # Dispatch
//
// Invoke hands (thunk, argument) to the thunk's Entry and returns whatever it
// produces. The runtime does not check saturation before dispatch; that
// policy belongs to the entry. Native implements the usual policy for Go
// bodies: apply until saturated, then run.
//
// # Errors
//
// Applying to a saturated thunk reports errors.KindOverApplication, and
// invoking a Scalar reports errors.KindInvalidDispatch. Neither corrupts the
// input value.
package thunk
