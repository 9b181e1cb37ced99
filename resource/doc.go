// Package resource provides the handle table that backs manually managed
// Function Values.
//
// A table maps opaque handles to Go values. Each entry carries a reference
// count and a list of child handles it keeps alive:
//
//	table := resource.NewTable(0)
//
//	arg, _ := table.Insert(v, nil)
//	fn, _ := table.Insert(f, []resource.Handle{arg}) // retains arg
//
//	table.Release(arg) // arg still alive: fn holds it
//	table.Release(fn)  // frees fn, then arg
//
// # Generations
//
// Handles embed the generation of their slot. Freeing a slot bumps its
// generation, so a stale handle never resolves to the value that later
// reuses the slot. Releasing or reading a freed handle returns ErrStale:
//
//	table.Release(fn)
//	_, err := table.Get(fn) // ErrStale
//
// # Observers
//
// Register observers to track entry lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventFreed {
//	        log.Printf("handle %v freed", e.Handle)
//	    }
//	}))
//
// # Arenas
//
// Reset frees every entry at once and invalidates all outstanding handles,
// which is how an arena of values for one computation is torn down.
package resource
