// Package headless implements an in-memory native backend.
//
// Windows exist only as records. Events are injected from any goroutine and
// surface through Drain exactly like platform input would. The backend is
// used by tests and by runs without a display.
package headless

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wippyai/wasm-windowing/event"
	"github.com/wippyai/wasm-windowing/native"
)

// Backend is a native.Backend without a display.
type Backend struct {
	failCreate error
	wake       chan struct{}
	done       chan struct{}
	windows    map[uint64]*Window
	queue      []native.Event
	created    []*Window
	nextID     atomic.Uint64
	waits      atomic.Int64
	mu         sync.Mutex
	closeOnce  sync.Once
}

var _ native.Backend = (*Backend)(nil)

// New creates an empty headless backend.
func New() *Backend {
	return &Backend{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		windows: make(map[uint64]*Window),
	}
}

// NewWindow records a hidden window.
func (b *Backend) NewWindow(opts native.Options) (native.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failCreate != nil {
		return nil, b.failCreate
	}

	w := &Window{
		id:      b.nextID.Add(1),
		opts:    opts,
		backend: b,
	}
	b.windows[w.id] = w
	b.created = append(b.created, w)
	return w, nil
}

// Wait blocks until Wake, Inject, Close or timeout.
func (b *Backend) Wait(timeout time.Duration) {
	b.waits.Add(1)
	if timeout <= 0 {
		select {
		case <-b.wake:
		default:
		}
		return
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-b.wake:
	case <-b.done:
	case <-t.C:
	}
}

// Wake interrupts Wait. Wakes coalesce.
func (b *Backend) Wake() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Drain returns queued events, oldest first.
func (b *Backend) Drain() []native.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out
}

// Done is closed by Close.
func (b *Backend) Done() <-chan struct{} {
	return b.done
}

// Terminate destroys all windows.
func (b *Backend) Terminate() {
	b.mu.Lock()
	ws := make([]*Window, 0, len(b.windows))
	for _, w := range b.windows {
		ws = append(ws, w)
	}
	b.mu.Unlock()

	for _, w := range ws {
		w.Destroy()
	}
}

// Inject queues ev for window id and wakes the loop. Safe from any goroutine.
// Events for destroyed or unknown windows are queued anyway; filtering
// belongs to the consumer.
func (b *Backend) Inject(id uint64, ev event.Event) {
	b.mu.Lock()
	b.queue = append(b.queue, native.Event{Window: id, Event: ev})
	b.mu.Unlock()
	b.Wake()
}

// Close simulates the environment shutting the subsystem down.
func (b *Backend) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// FailCreate makes subsequent NewWindow calls fail with err; nil restores.
func (b *Backend) FailCreate(err error) {
	b.mu.Lock()
	b.failCreate = err
	b.mu.Unlock()
}

// Windows returns every window created so far, in creation order.
func (b *Backend) Windows() []*Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Window(nil), b.created...)
}

// Live returns the number of windows not yet destroyed.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.windows)
}

// Waits returns how many times Wait was called.
func (b *Backend) Waits() int64 {
	return b.waits.Load()
}

// Window is a headless window record.
type Window struct {
	backend   *Backend
	opts      native.Options
	id        uint64
	visible   atomic.Bool
	destroyed atomic.Bool
}

var _ native.Window = (*Window)(nil)

func (w *Window) ID() uint64 { return w.id }

func (w *Window) SetVisible(visible bool) error {
	w.visible.Store(visible)
	return nil
}

func (w *Window) Visible() bool { return w.visible.Load() }

func (w *Window) Destroy() {
	if !w.destroyed.CompareAndSwap(false, true) {
		return
	}
	w.backend.mu.Lock()
	delete(w.backend.windows, w.id)
	w.backend.mu.Unlock()
}

// Destroyed reports whether Destroy was called.
func (w *Window) Destroyed() bool { return w.destroyed.Load() }

// Options returns the options the window was created with.
func (w *Window) Options() native.Options { return w.opts }
