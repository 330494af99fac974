// Package resource provides the handle table for guest-visible resources.
//
// A guest never sees a native window directly. It holds a small integer
// handle that the host maps back to the window through a Table:
//
//	table := resource.NewTable[*Window](0)
//
//	// Insert a value, get a handle
//	h, err := table.Insert(w)
//
//	// Retrieve value by handle
//	w, ok := table.Get(h)
//
//	// Remove and get value
//	w, ok := table.Remove(h)
//
// # Handle Reuse
//
// Freed slots are reused, but every removal bumps the slot generation that
// is encoded in the handle. A handle that outlived its entry therefore stays
// invalid after the slot is handed out again, instead of silently aliasing a
// newer resource. Generations are 16 bits wide and wrap after 65536 reuses of
// the same slot.
//
// A table cannot tell whether a handle was issued by a different table;
// callers keep one table per resource kind.
//
// # Capacity
//
// Tables are bounded. Insert on a full table returns an exhausted error
// (errors.KindExhausted) and leaves the table unchanged.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc[*Window](func(e resource.Event[*Window]) {
//	    log.Printf("window %d %s", e.Handle, e.Type)
//	}))
package resource
