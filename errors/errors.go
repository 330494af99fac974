package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates which part of the host produced the error
type Phase string

const (
	PhaseTable    Phase = "table"    // resource handle table
	PhaseBroker   Phase = "broker"   // window request channel
	PhaseWindow   Phase = "window"   // windowing capability host
	PhaseDispatch Phase = "dispatch" // native event to guest delivery
	PhaseGuest    Phase = "guest"    // guest entry point execution
	PhaseLoad     Phase = "load"     // component loading and linking
	PhaseHost     Phase = "host"     // host function registration
	PhaseNative   Phase = "native"   // native windowing subsystem
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle     Kind = "invalid_handle"
	KindExhausted         Kind = "exhausted"
	KindBrokerUnavailable Kind = "broker_unavailable"
	KindNative            Kind = "native"
	KindGuestTrap         Kind = "guest_trap"
	KindGuestError        Kind = "guest_error"
	KindExited            Kind = "exited"
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindRegistration      Kind = "registration"
	KindInstantiation     Kind = "instantiation"
	KindSignature         Kind = "signature"
	KindInvalidData       Kind = "invalid_data"
)

// Error is the structured error type used throughout the host
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Export string
	Detail string
	Path   []string
	Handle uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Export != "" {
		b.WriteString(" in ")
		b.WriteString(e.Export)
	}

	if e.Handle != 0 {
		fmt.Fprintf(&b, " (handle %d)", e.Handle)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Export sets the guest export name involved
func (b *Builder) Export(name string) *Builder {
	b.err.Export = name
	return b
}

// Handle sets the resource handle involved
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Sentinels for errors.Is matching. Only Phase and Kind are compared.
var (
	ErrInvalidHandle     = &Error{Phase: PhaseTable, Kind: KindInvalidHandle}
	ErrExhausted         = &Error{Phase: PhaseTable, Kind: KindExhausted}
	ErrBrokerUnavailable = &Error{Phase: PhaseBroker, Kind: KindBrokerUnavailable}
	ErrGuestTrap         = &Error{Phase: PhaseGuest, Kind: KindGuestTrap}
	ErrGuestError        = &Error{Phase: PhaseGuest, Kind: KindGuestError}
	ErrExited            = &Error{Phase: PhaseGuest, Kind: KindExited}
)

// Convenience constructors for common error patterns

// InvalidHandle creates an error for a handle the table does not hold
func InvalidHandle(handle uint32, op string) *Error {
	return &Error{
		Phase:  PhaseTable,
		Kind:   KindInvalidHandle,
		Handle: handle,
		Detail: fmt.Sprintf("invalid window handle for %s", op),
	}
}

// Exhausted creates a resource exhaustion error
func Exhausted(capacity int) *Error {
	return &Error{
		Phase:  PhaseTable,
		Kind:   KindExhausted,
		Detail: fmt.Sprintf("resource table full (%d entries)", capacity),
		Value:  capacity,
	}
}

// BrokerUnavailable creates an error for a torn-down window broker
func BrokerUnavailable(op string) *Error {
	return &Error{
		Phase:  PhaseBroker,
		Kind:   KindBrokerUnavailable,
		Detail: fmt.Sprintf("%s: ui thread is gone", op),
	}
}

// Native creates an error for a failing native windowing call
func Native(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseNative,
		Kind:   KindNative,
		Detail: detail,
		Cause:  cause,
	}
}

// GuestTrap creates an error for a guest call that trapped or panicked
func GuestTrap(export string, cause error) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindGuestTrap,
		Export: export,
		Cause:  cause,
	}
}

// GuestError creates an error for a guest call that returned an error value
func GuestError(export string, value any) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindGuestError,
		Export: export,
		Value:  value,
		Detail: "guest returned error",
	}
}

// Exited creates an error for a call refused after the guest exited
func Exited(code uint32) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindExited,
		Value:  code,
		Detail: fmt.Sprintf("guest exited with status %d", code),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Signature creates an error for an export whose type does not match
func Signature(export, detail string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindSignature,
		Export: export,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(namespace string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", namespace),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate component",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsFatal reports whether err must terminate the host process.
// Broker loss, guest traps and native failures are fatal. Invalid handles
// and exhaustion are reported to the guest and the host keeps running.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindInvalidHandle, KindExhausted:
		return false
	case KindBrokerUnavailable, KindGuestTrap, KindGuestError, KindNative:
		return true
	}
	return true
}
