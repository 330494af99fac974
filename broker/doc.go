// Package broker bridges guest goroutines and the UI thread.
//
// Native windows can only be built and mutated on the UI thread, while guest
// code runs elsewhere. The broker is the one-way request path between them:
//
//	guest goroutine                    UI thread
//	---------------                    ---------
//	RequestWindow(ctx) --request-->    ServiceRequests()
//	        (waits)    <--window---      backend.NewWindow(opts)
//
//	Do(ctx, fn)        --task----->    ServiceTasks()
//	        (waits)    <--error----      fn()
//
// Every submission wakes the native event loop. Requests are answered in
// submission order, each through its own reply channel.
//
// The UI thread must never block on a guest without servicing the broker.
// ServeUntil does both: it waits for a guest call to finish while answering
// any requests that call makes.
//
// Close marks the UI thread as gone. Waiting and future callers fail with
// errors.KindBrokerUnavailable, which the host treats as fatal.
package broker
