// Package runtime provides the handle-based Thunk Runtime used by generated code.
//
// # Quick Start
//
//	rt, err := runtime.New(runtime.Config{Mode: thunkruntime.ModeManual})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	root, _ := rt.CreateRoot(addEntry, 2)
//	three, _ := rt.CreateValue(3)
//	four, _ := rt.CreateValue(4)
//
//	p1, _ := rt.Apply(root, three)
//	p2, _ := rt.Apply(p1, four)
//	res, _ := rt.Invoke(ctx, p2, runtime.Ref{})
//
// # Modes
//
// The memory mode is fixed when the runtime is created:
//
//	managed  - values are plain Go values; Release is refused
//	manual   - values are reference counted; every Ref is released once
//	arena    - Release is a no-op; Reset frees every value at once
//
// Managed mode performs the process-wide collector setup through Init the
// first time a managed runtime is created. Init may also be called directly
// at process start; later calls are ignored.
//
// # Ownership in Manual Mode
//
// Every Ref returned by the runtime carries one reference owned by the
// caller. A thunk produced by Apply holds references to its captured
// arguments, so an argument may be released as soon as it has been applied.
// Releasing a Ref twice, or using it after release, returns an error
// matching errors.ErrReleased; memory is never reused under a stale Ref.
//
// # Allocation Failure
//
// Config.MaxValues bounds the value table. Exceeding it is an allocation
// failure, which is fatal: the runtime logs a diagnostic and exits the
// process. WithFatalHandler replaces that behavior for embedders and tests.
package runtime
