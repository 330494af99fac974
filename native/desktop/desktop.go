// Package desktop implements the native backend on GLFW.
//
// GLFW must run on the process main thread. Importing this package locks the
// main goroutine to its OS thread; New, every Backend method except Wake,
// and every Window method must then be called from main.
package desktop

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/event"
	"github.com/wippyai/wasm-windowing/native"
)

func init() {
	// some operating systems require us to be on the main thread
	runtime.LockOSThread()
}

// Backend is the GLFW native.Backend.
type Backend struct {
	windows map[*glfw.Window]*Window
	done    chan struct{}
	queue   []native.Event
	nextID  uint64
}

var _ native.Backend = (*Backend)(nil)

// New initializes GLFW.
func New() (*Backend, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Native("initialize glfw", err)
	}
	return &Backend{
		windows: make(map[*glfw.Window]*Window),
		done:    make(chan struct{}),
	}, nil
}

// NewWindow creates a hidden GLFW window with no client API.
func (b *Backend) NewWindow(opts native.Options) (native.Window, error) {
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Visible, glfw.False)

	glw, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		return nil, errors.Native("create window", err)
	}
	glw.SetPos(opts.X, opts.Y)

	b.nextID++
	w := &Window{glw: glw, backend: b, id: b.nextID}
	b.windows[glw] = w

	glw.SetCloseCallback(b.onClose)
	glw.SetKeyCallback(b.onKey)
	glw.SetMouseButtonCallback(b.onMouseButton)
	glw.SetCursorPosCallback(b.onCursorPos)

	Logger().Debug("window created",
		zap.Uint64("window", w.id),
		zap.Int("x", opts.X), zap.Int("y", opts.Y),
		zap.Int("width", opts.Width), zap.Int("height", opts.Height))
	return w, nil
}

// Wait processes native events until input arrives, Wake is called or the
// timeout elapses. Callbacks run inside this call.
func (b *Backend) Wait(timeout time.Duration) {
	if timeout <= 0 {
		glfw.PollEvents()
		return
	}
	glfw.WaitEventsTimeout(timeout.Seconds())
}

// Wake posts an empty event. GLFW allows this from any thread.
func (b *Backend) Wake() {
	glfw.PostEmptyEvent()
}

func (b *Backend) Drain() []native.Event {
	out := b.queue
	b.queue = nil
	return out
}

// Done is never closed by GLFW itself; window close requests arrive as
// events instead.
func (b *Backend) Done() <-chan struct{} {
	return b.done
}

// Terminate destroys remaining windows and shuts GLFW down.
func (b *Backend) Terminate() {
	for _, w := range b.windows {
		w.glw.Destroy()
	}
	b.windows = nil
	glfw.Terminate()
}

func (b *Backend) push(glw *glfw.Window, ev event.Event) {
	w, ok := b.windows[glw]
	if !ok {
		return
	}
	b.queue = append(b.queue, native.Event{Window: w.id, Event: ev})
}

func (b *Backend) onClose(glw *glfw.Window) {
	// the guest decides whether the window goes away
	glw.SetShouldClose(false)
	b.push(glw, event.Close{})
}

func (b *Backend) onKey(glw *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code := keyCode(key, scancode, mods)
	switch action {
	case glfw.Press:
		b.push(glw, event.KeyDown{Code: code})
	case glfw.Release:
		b.push(glw, event.KeyUp{Code: code})
	}
}

func (b *Backend) onMouseButton(glw *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	x, y := glw.GetCursorPos()
	click := event.Click{Button: mouseButton(button), Position: event.Position{X: x, Y: y}}
	switch action {
	case glfw.Press:
		b.push(glw, event.ClickDown{Click: click})
	case glfw.Release:
		b.push(glw, event.ClickUp{Click: click})
	}
}

func (b *Backend) onCursorPos(glw *glfw.Window, x, y float64) {
	b.push(glw, event.Move{Position: event.Position{X: x, Y: y}})
}

func mouseButton(button glfw.MouseButton) event.Button {
	switch button {
	case glfw.MouseButtonLeft:
		return event.ButtonLeft
	case glfw.MouseButtonRight:
		return event.ButtonRight
	case glfw.MouseButtonMiddle:
		return event.ButtonMiddle
	}
	return event.ButtonOther
}

// Window is a GLFW window.
type Window struct {
	glw     *glfw.Window
	backend *Backend
	id      uint64
}

var _ native.Window = (*Window)(nil)

func (w *Window) ID() uint64 { return w.id }

func (w *Window) SetVisible(visible bool) error {
	if w.glw == nil {
		return errors.Native("set visible on destroyed window", nil)
	}
	if visible {
		w.glw.Show()
	} else {
		w.glw.Hide()
	}
	return nil
}

func (w *Window) Visible() bool {
	if w.glw == nil {
		return false
	}
	return w.glw.GetAttrib(glfw.Visible) == glfw.True
}

func (w *Window) Destroy() {
	if w.glw == nil {
		return
	}
	delete(w.backend.windows, w.glw)
	w.glw.Destroy()
	w.glw = nil
	Logger().Debug("window destroyed", zap.Uint64("window", w.id))
}
