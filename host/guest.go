package host

import (
	"context"

	"github.com/wippyai/wasm-runtime/runtime"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/event"
)

// Guest is the set of entry points the host drives.
type Guest interface {
	// Run executes the startup entry point.
	Run(ctx context.Context) error
	// HandleEvent delivers one event for window.
	HandleEvent(ctx context.Context, window uint64, ev event.Event) error
}

// ComponentGuest drives an instantiated component through its exports.
type ComponentGuest struct {
	inst    *runtime.Instance
	exports Exports
}

// NewComponentGuest wraps inst. exports names the run and event-handler
// functions, as found by FindExports.
func NewComponentGuest(inst *runtime.Instance, exports Exports) *ComponentGuest {
	return &ComponentGuest{inst: inst, exports: exports}
}

// Run calls the run export. An err result is a guest error.
func (g *ComponentGuest) Run(ctx context.Context) error {
	res, err := g.inst.Call(ctx, g.exports.Run)
	if err != nil {
		return err
	}
	return runResult(g.exports.Run, res)
}

// runResult maps the lifted result<_, _> of export to an error. Anything
// other than an err arm is success.
func runResult(export string, res any) error {
	if m, ok := res.(map[string]any); ok {
		if v, failed := m["err"]; failed {
			return errors.GuestError(export, v)
		}
	}
	return nil
}

// HandleEvent calls the event-handler export.
func (g *ComponentGuest) HandleEvent(ctx context.Context, window uint64, ev event.Event) error {
	_, err := g.inst.Call(ctx, g.exports.EventHandler, eventArgs(window, ev)...)
	return err
}

func eventArgs(window uint64, ev event.Event) []any {
	return []any{window, event.Encode(ev)}
}

// Close releases the instance.
func (g *ComponentGuest) Close(ctx context.Context) error {
	return g.inst.Close(ctx)
}
