package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseWindow,
				Kind:   KindInvalidHandle,
				Path:   []string{"window", "set-visible"},
				Export: "wasi:windowing/window#[method]window.set-visible",
				Handle: 7,
				Detail: "dropped",
			},
			contains: []string{"[window]", "invalid_handle", "window.set-visible", "handle 7", "dropped"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseBroker,
				Kind:  KindBrokerUnavailable,
			},
			contains: []string{"[broker]", "broker_unavailable"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseGuest,
				Kind:   KindGuestTrap,
				Detail: "unreachable",
				Cause:  errors.New("wasm trap"),
			},
			contains: []string{"[guest]", "guest_trap", "unreachable", "caused by", "wasm trap"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseNative,
		Kind:  KindNative,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := InvalidHandle(3, "drop")

	if !errors.Is(err, ErrInvalidHandle) {
		t.Error("Is should match same phase and kind")
	}
	if errors.Is(err, ErrExhausted) {
		t.Error("Is should not match different kind")
	}
	if err.Is(&Error{Phase: PhaseWindow, Kind: KindInvalidHandle}) {
		t.Error("Is should not match different phase")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, ErrInvalidHandle) {
		t.Error("errors.Is should see through fmt wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDispatch, KindGuestTrap).
		Path("event", "close").
		Export("wasi:windowing/event-handler#event-handler").
		Handle(9).
		Value(42).
		Cause(cause).
		Detail("window %d", 3).
		Build()

	if err.Phase != PhaseDispatch {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDispatch)
	}
	if err.Kind != KindGuestTrap {
		t.Errorf("Kind = %v, want %v", err.Kind, KindGuestTrap)
	}
	if len(err.Path) != 2 || err.Path[0] != "event" || err.Path[1] != "close" {
		t.Errorf("Path = %v, want [event close]", err.Path)
	}
	if err.Export != "wasi:windowing/event-handler#event-handler" {
		t.Errorf("Export = %v", err.Export)
	}
	if err.Handle != 9 {
		t.Errorf("Handle = %d, want 9", err.Handle)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "window 3" {
		t.Errorf("Detail = %v, want 'window 3'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Exhausted", func(t *testing.T) {
		err := Exhausted(16)
		if err.Kind != KindExhausted {
			t.Errorf("Kind = %v, want %v", err.Kind, KindExhausted)
		}
		if !strings.Contains(err.Detail, "16") {
			t.Errorf("Detail = %v, should contain capacity", err.Detail)
		}
	})

	t.Run("BrokerUnavailable", func(t *testing.T) {
		err := BrokerUnavailable("request window")
		if !errors.Is(err, ErrBrokerUnavailable) {
			t.Errorf("err = %v, want broker unavailable", err)
		}
	})

	t.Run("GuestError", func(t *testing.T) {
		err := GuestError("wasi:cli/run@0.2.0#run", nil)
		if err.Kind != KindGuestError || err.Export == "" {
			t.Errorf("err = %+v", err)
		}
	})

	t.Run("Exited", func(t *testing.T) {
		err := Exited(2)
		if err.Value != uint32(2) {
			t.Errorf("Value = %v, want 2", err.Value)
		}
	})

	t.Run("Signature", func(t *testing.T) {
		err := Signature("x#event-handler", "want 2 params")
		if err.Phase != PhaseLoad || err.Kind != KindSignature {
			t.Errorf("err = %+v", err)
		}
	})
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"invalid handle", InvalidHandle(1, "drop"), false},
		{"exhausted", Exhausted(1), false},
		{"broker", BrokerUnavailable("x"), true},
		{"trap", GuestTrap("run", errors.New("boom")), true},
		{"native", Native("create window", errors.New("no display")), true},
		{"wrapped exhausted", fmt.Errorf("new: %w", Exhausted(4)), false},
		{"plain error", errors.New("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
