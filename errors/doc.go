// Package errors provides structured error types for the windowing host.
//
// Errors are categorized by Phase (which part of the host failed) and Kind
// (error category). The Error type carries the guest export, the resource
// handle and the cause chain when they are known.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWindow, errors.KindInvalidHandle).
//		Handle(h).
//		Detail("set-visible on dropped window").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(h, "drop")
//	err := errors.GuestTrap("wasi:cli/run@0.2.0#run", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// IsFatal separates conditions the guest can observe from those that end the
// process.
package errors
