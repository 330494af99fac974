package native

import (
	"time"

	"github.com/wippyai/wasm-windowing/event"
)

// Options describes a window to construct.
type Options struct {
	Title  string
	X      int
	Y      int
	Width  int
	Height int
}

// DefaultOptions returns the geometry every guest-requested window starts
// with: 100x100 at (100, 100).
func DefaultOptions() Options {
	return Options{
		Title:  "wasm window",
		X:      100,
		Y:      100,
		Width:  100,
		Height: 100,
	}
}

// Window is a native window. Its methods must be called on the UI thread.
// Windows are always constructed hidden.
type Window interface {
	// ID returns the correlation id carried by events for this window.
	// Ids are unique for the lifetime of the backend.
	ID() uint64
	SetVisible(visible bool) error
	Visible() bool
	// Destroy releases the native window. Further events for its id stop.
	Destroy()
}

// Event is a normalized native event addressed to a window.
type Event struct {
	Event  event.Event
	Window uint64
}

// Backend is a native windowing subsystem confined to one OS thread.
// Every method except Wake must be called on that thread.
type Backend interface {
	// NewWindow constructs a hidden window.
	NewWindow(opts Options) (Window, error)

	// Wait blocks until native input arrives, Wake is called, or timeout
	// elapses.
	Wait(timeout time.Duration)

	// Wake interrupts a pending or the next Wait. Safe from any goroutine.
	Wake()

	// Drain returns the events collected since the last call, oldest first.
	Drain() []Event

	// Done is closed when the environment shuts the subsystem down.
	Done() <-chan struct{}

	// Terminate destroys remaining windows and releases the subsystem.
	Terminate()
}
