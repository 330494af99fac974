package windowing

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/native"
	"github.com/wippyai/wasm-windowing/resource"
)

// Namespace is the WIT interface served by Host.
const Namespace = "wasi:windowing/window"

// Broker moves work onto the UI thread. *broker.Broker implements it.
type Broker interface {
	RequestWindow(ctx context.Context) (native.Window, error)
	Do(ctx context.Context, name string, fn func() error) error
}

// Host is the windowing capability offered to a guest. It owns the table
// from guest handles to native windows.
//
// Host methods run on guest goroutines. Every native call is forwarded to
// the UI thread through the broker.
type Host struct {
	broker Broker
	table  *resource.Table[native.Window]
	byID   map[uint64]resource.Handle
	// built on the UI thread, not yet claimed by New
	pending map[uint64]struct{}
	mu      sync.RWMutex
}

// NewHost creates a host whose table holds at most capacity windows.
func NewHost(b Broker, capacity int) *Host {
	return &Host{
		broker:  b,
		table:   resource.NewTable[native.Window](capacity),
		byID:    make(map[uint64]resource.Handle),
		pending: make(map[uint64]struct{}),
	}
}

// Namespace implements runtime.Host.
func (h *Host) Namespace() string {
	return Namespace
}

// New obtains a fresh hidden window from the UI thread and returns its
// handle. Blocks until the UI thread answers.
//
// Exhaustion returns an exhausted error after releasing the window. A lost
// broker or a native failure returns a fatal error.
func (h *Host) New(ctx context.Context) (resource.Handle, error) {
	w, err := h.broker.RequestWindow(ctx)
	if err != nil {
		Logger().Error("window request failed", zap.Error(err))
		return 0, err
	}

	h.mu.Lock()
	delete(h.pending, w.ID())
	if prev, dup := h.byID[w.ID()]; dup {
		h.mu.Unlock()
		return 0, errors.New(errors.PhaseWindow, errors.KindInvalidInput).
			Handle(uint32(prev)).
			Detail("native window %d delivered twice", w.ID()).
			Build()
	}
	handle, err := h.table.Insert(w)
	if err == nil {
		h.byID[w.ID()] = handle
	}
	h.mu.Unlock()

	if err != nil {
		Logger().Warn("window table exhausted", zap.Int("capacity", h.table.Capacity()))
		if derr := h.destroy(ctx, w); derr != nil {
			return 0, derr
		}
		return 0, err
	}

	Logger().Debug("window created",
		zap.Uint32("handle", uint32(handle)),
		zap.Uint64("window", w.ID()))
	return handle, nil
}

// SetVisible shows or hides the window behind handle.
func (h *Host) SetVisible(ctx context.Context, handle resource.Handle, visible bool) error {
	w, ok := h.table.Get(handle)
	if !ok {
		return errors.InvalidHandle(uint32(handle), "set-visible")
	}
	err := h.broker.Do(ctx, "set-visible", func() error {
		return w.SetVisible(visible)
	})
	if err != nil {
		return err
	}
	Logger().Debug("window visibility changed",
		zap.Uint32("handle", uint32(handle)),
		zap.Bool("visible", visible))
	return nil
}

// Drop removes handle and destroys its window. A second drop of the same
// handle returns an invalid-handle error.
func (h *Host) Drop(ctx context.Context, handle resource.Handle) error {
	h.mu.Lock()
	w, ok := h.table.Remove(handle)
	if ok {
		delete(h.byID, w.ID())
	}
	h.mu.Unlock()

	if !ok {
		return errors.InvalidHandle(uint32(handle), "drop")
	}
	Logger().Debug("window dropped",
		zap.Uint32("handle", uint32(handle)),
		zap.Uint64("window", w.ID()))
	return h.destroy(ctx, w)
}

// ID returns the native correlation id of the window behind handle.
func (h *Host) ID(handle resource.Handle) (uint64, error) {
	w, ok := h.table.Get(handle)
	if !ok {
		return 0, errors.InvalidHandle(uint32(handle), "id")
	}
	return w.ID(), nil
}

// Reserve marks w as owned before its handle is inserted, so events the
// UI thread reads for it in the meantime are not dropped. Pass it to
// broker.OnBuilt. New releases the reservation.
func (h *Host) Reserve(w native.Window) {
	h.mu.Lock()
	h.pending[w.ID()] = struct{}{}
	h.mu.Unlock()
}

// Owns reports whether the table holds, or is about to hold, the native
// window with id. Safe from any goroutine.
func (h *Host) Owns(id uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.byID[id]; ok {
		return true
	}
	_, ok := h.pending[id]
	return ok
}

// Len returns the number of live windows.
func (h *Host) Len() int {
	return h.table.Len()
}

// Subscribe observes window handle lifecycle.
func (h *Host) Subscribe(o resource.Observer[native.Window]) {
	h.table.Subscribe(o)
}

// Close empties the table and destroys the remaining windows directly.
// UI thread only, after the guest has stopped.
func (h *Host) Close() {
	h.mu.Lock()
	windows := h.table.Close()
	h.byID = make(map[uint64]resource.Handle)
	h.pending = make(map[uint64]struct{})
	h.mu.Unlock()

	for _, w := range windows {
		w.Destroy()
	}
	if len(windows) > 0 {
		Logger().Debug("released windows at shutdown", zap.Int("count", len(windows)))
	}
}

func (h *Host) destroy(ctx context.Context, w native.Window) error {
	return h.broker.Do(ctx, "destroy", func() error {
		w.Destroy()
		return nil
	})
}
