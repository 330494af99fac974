// Package native abstracts the platform windowing subsystem.
//
// Platform windowing APIs must be driven from a single OS thread, usually the
// process main thread. A Backend owns that thread: windows are created,
// mutated and destroyed there, and input callbacks run there while Wait is
// blocked. Other goroutines reach it only through Wake.
//
// Two backends exist:
//
//	native/desktop   GLFW windows on the main thread
//	native/headless  in-memory windows with injectable events
//
// # Key Codes
//
// Key events carry a Unicode scalar value. Keys with a printable label carry
// that character. Space, Enter, Tab, Backspace, Escape and Delete carry their
// ASCII control codes. Other named keys (arrows, function keys, modifiers)
// carry PrivateUseBase plus the subsystem key number, so no press is silently
// lost. Keys that cannot be identified carry UnknownKey (U+FFFD).
// Auto-repeat is not reported.
package native
