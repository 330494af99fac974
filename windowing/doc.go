// Package windowing implements the wasi:windowing/window capability.
//
// A guest sees windows as resource handles:
//
//	resource window {
//	    constructor();
//	    create: static func() -> result<window, error-code>;
//	    set-visible: func(visible: bool) -> result<_, error-code>;
//	    id: func() -> window-id;
//	}
//
// The constructor and create both ask the UI thread for a new hidden window
// through the broker. The constructor traps on any failure; create reports
// table exhaustion as resource-exhausted. Operations on a handle the table
// does not hold report invalid-handle, and dropping such a handle is logged
// and otherwise ignored. Losing the UI thread traps the guest.
//
// The id method returns the correlation id carried by event-handler calls,
// so a guest can match events to the windows it created.
package windowing
