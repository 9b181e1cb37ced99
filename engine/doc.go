// Package engine turns the exports of a core WebAssembly module into root
// Function Values.
//
// A module is compiled and instantiated with wazero. Each exported function
// whose signature uses only integer types becomes a curried function: its
// arity is the export's parameter count, and once the last argument has been
// applied the export is called with the captured scalar payloads.
//
//	mod, err := engine.Load(ctx, wasmBytes, nil)
//	if err != nil {
//	    return err
//	}
//	defer mod.Close(ctx)
//
//	add, err := mod.Root("add")
//	p1, _ := thunk.Apply(add, thunk.NewValue(3))
//	res, _ := thunk.Invoke(ctx, p1, thunk.NewValue(4)) // value = 7
//
// # Type Mapping
//
// Export signatures are reported as WIT types:
//
//	Core Type    WIT Type    Curried
//	──────────────────────────────────
//	i32          s32         yes
//	i64          s64         yes
//	f32          f32         no
//	f64          f64         no
//
// An i32 parameter rejects payloads outside the int32 range. Exports with
// float parameters, reference types or other than one result can be listed
// but not turned into roots.
//
// # Thread Safety
//
// Module is safe for concurrent use. Guests that keep mutable state in
// memory or globals see calls in an unspecified order.
package engine
