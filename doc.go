// Package thunkruntime provides the runtime support library for curried
// function application through heap-allocated thunks.
//
// Generated code calls into this runtime instead of calling functions
// directly: every function definition gets a root Function Value, supplying
// an argument produces a new Function Value that remembers it, and a
// saturated thunk hands its arguments to the function's entry point.
//
// # Architecture Overview
//
//	thunkruntime/        Root package with the memory Mode
//	├── thunk/           Function Value representation and the apply/invoke protocol
//	├── runtime/         Handle-based facade with managed, manual and arena modes
//	├── resource/        Reference-counted handle table backing manual mode
//	├── engine/          WebAssembly exports as entry points (wazero)
//	├── inspect/         Tree rendering and CBOR snapshots of Function Values
//	├── config/          TOML/JSON runtime configuration
//	├── errors/          Structured error types
//	└── cmd/thunkrun/    Command line runner with an interactive mode
//
// # Quick Start
//
//	rt, err := runtime.New(runtime.Config{Mode: thunkruntime.ModeManual})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	add, _ := thunk.Define("add", 2, addBody)
//	root, _ := rt.Adopt(add)
//	three, _ := rt.CreateValue(3)
//	p1, _ := rt.Apply(root, three)
//
//	rt.Release(three) // p1 keeps its argument alive
//	rt.Release(p1)
//	rt.Release(root)
//
// # Memory Modes
//
// Managed mode leaves reclamation to the Go garbage collector; Release is
// refused. Manual mode reference counts every value and rejects double
// release and use after release. Arena mode ignores Release and frees every
// value on Reset.
//
// # Thread Safety
//
// Function Values are immutable and may be shared between goroutines.
// Runtime is safe for concurrent use.
package thunkruntime
