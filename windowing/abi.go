package windowing

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/resource"
)

// ErrorCode is the WIT error-code enum.
type ErrorCode uint8

const (
	ErrorInvalidHandle ErrorCode = iota
	ErrorResourceExhausted
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorInvalidHandle:
		return "invalid-handle"
	case ErrorResourceExhausted:
		return "resource-exhausted"
	}
	return "unknown"
}

// Error is the err arm of the window results seen by the guest.
type Error struct {
	Code ErrorCode
}

func (e *Error) Error() string {
	return "windowing error: " + e.Code.String()
}

// Register implements runtime.ExplicitRegistrar.
func (h *Host) Register() map[string]any {
	return map[string]any{
		"[constructor]window":            h.abiConstructor,
		"[static]window.create":          h.abiCreate,
		"[method]window.set-visible":     h.abiSetVisible,
		"[method]window.try-set-visible": h.abiTrySetVisible,
		"[method]window.id":              h.abiID,
		"[resource-drop]window":          h.abiDrop,
	}
}

// abiConstructor has no error channel; any failure traps the guest.
func (h *Host) abiConstructor(ctx context.Context) uint32 {
	handle, err := h.New(ctx)
	if err != nil {
		panic(err)
	}
	return uint32(handle)
}

func (h *Host) abiCreate(ctx context.Context) (uint32, *Error) {
	handle, err := h.New(ctx)
	if err != nil {
		if code, ok := guestCode(err); ok {
			return 0, &Error{Code: code}
		}
		panic(err)
	}
	return uint32(handle), nil
}

// abiSetVisible has no error channel. An invalid handle is logged and
// ignored; anything else traps the guest.
func (h *Host) abiSetVisible(ctx context.Context, self uint32, visible bool) {
	err := h.SetVisible(ctx, resource.Handle(self), visible)
	if err == nil {
		return
	}
	if _, ok := guestCode(err); ok {
		Logger().Warn("set-visible on invalid window handle", zap.Uint32("handle", self), zap.Error(err))
		return
	}
	panic(err)
}

func (h *Host) abiTrySetVisible(ctx context.Context, self uint32, visible bool) *Error {
	err := h.SetVisible(ctx, resource.Handle(self), visible)
	if err == nil {
		return nil
	}
	if code, ok := guestCode(err); ok {
		Logger().Warn("try-set-visible rejected", zap.Uint32("handle", self), zap.Error(err))
		return &Error{Code: code}
	}
	panic(err)
}

// abiID returns 0 for an invalid handle; no window ever has id 0.
func (h *Host) abiID(_ context.Context, self uint32) uint64 {
	id, err := h.ID(resource.Handle(self))
	if err != nil {
		Logger().Warn("id of invalid window handle", zap.Uint32("handle", self))
		return 0
	}
	return id
}

func (h *Host) abiDrop(ctx context.Context, self uint32) {
	err := h.Drop(ctx, resource.Handle(self))
	if err == nil {
		return
	}
	if _, ok := guestCode(err); ok {
		Logger().Warn("invalid window handle to drop", zap.Uint32("handle", self))
		return
	}
	panic(err)
}

// guestCode maps recoverable errors to the code reported to the guest.
func guestCode(err error) (ErrorCode, bool) {
	switch {
	case stderrors.Is(err, errors.ErrInvalidHandle):
		return ErrorInvalidHandle, true
	case stderrors.Is(err, errors.ErrExhausted):
		return ErrorResourceExhausted, true
	}
	return 0, false
}
