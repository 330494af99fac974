// Package host runs a windowing guest.
//
// Load links a component against WASI, an exit override and the windowing
// host, then finds its run and event-handler exports. Execution serializes
// guest calls on one goroutine, and Dispatcher feeds it native events from
// the UI thread while keeping the window broker served, so a guest call that
// creates a window never waits on a thread that is waiting on it.
package host
