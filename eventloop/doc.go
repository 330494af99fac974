// Package eventloop runs the UI thread's main loop.
//
// The loop wakes on a fixed deadline schedule, or earlier when native input
// or a window request arrives. Each wake serves the window broker, then
// hands queued native events to the dispatcher one at a time. Early wakes
// keep the current deadline, so input does not change the tick rate.
package eventloop
