package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/event"
	"github.com/wippyai/wasm-windowing/native"
)

// State is the lifecycle of one event on its way to the guest.
//
//	Received -> Normalized -> Dispatched -> Acknowledged
//	    |                                -> Faulted
//	    |                                -> Discarded (refused, never ran)
//	    +-> Discarded
type State uint8

const (
	StateReceived State = iota
	StateNormalized
	StateDispatched
	StateAcknowledged
	StateFaulted
	StateDiscarded
)

var stateNames = [...]string{"received", "normalized", "dispatched", "acknowledged", "faulted", "discarded"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Terminal reports whether s ends the event's lifecycle.
func (s State) Terminal() bool {
	return s == StateAcknowledged || s == StateFaulted || s == StateDiscarded
}

// Record describes one transition of one event.
type Record struct {
	At     time.Time
	Event  event.Event
	Err    error
	Seq    uint64
	Window uint64
	State  State
}

// Owner tells whether a native window belongs to the guest.
type Owner interface {
	Owns(window uint64) bool
}

// Server keeps the UI thread's request path alive while it waits.
// *broker.Broker implements it.
type Server interface {
	ServeUntil(done <-chan error) error
}

// Dispatcher turns native events into guest event-handler calls.
// Dispatch is called on the UI thread and returns when the guest has
// handled the event.
type Dispatcher struct {
	exec      *Execution
	owner     Owner
	server    Server
	observers []func(Record)
	seq       uint64
	mu        sync.RWMutex
}

// NewDispatcher creates a dispatcher delivering to exec the events of
// windows owner holds.
func NewDispatcher(exec *Execution, owner Owner, server Server) *Dispatcher {
	return &Dispatcher{exec: exec, owner: owner, server: server}
}

// Observe registers fn to receive every transition. fn runs on the UI
// thread and must not block.
func (d *Dispatcher) Observe(fn func(Record)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, fn)
}

// Dispatch delivers ev synchronously. Events for windows the guest does not
// own are discarded, as are events the guest can no longer take. A returned
// error means the guest exited or faulted.
func (d *Dispatcher) Dispatch(ctx context.Context, ev native.Event) error {
	d.seq++
	rec := Record{Seq: d.seq, Window: ev.Window, Event: ev.Event, State: StateReceived}
	d.emit(&rec)

	if ev.Event == nil {
		rec.Err = errors.InvalidInput(errors.PhaseDispatch, "empty native event")
		d.transition(&rec, StateDiscarded)
		return nil
	}
	if !d.owner.Owns(ev.Window) {
		Logger().Debug("discarding event for unowned window",
			zap.Uint64("window", ev.Window),
			zap.String("event", event.String(ev.Event)))
		d.transition(&rec, StateDiscarded)
		return nil
	}
	d.transition(&rec, StateNormalized)

	done := d.exec.Dispatch(ctx, ev.Window, ev.Event)
	d.transition(&rec, StateDispatched)

	err := d.server.ServeUntil(done)
	rec.Err = err
	switch {
	case err == nil:
		d.transition(&rec, StateAcknowledged)
	case Refused(err):
		d.transition(&rec, StateDiscarded)
	case stderrors.Is(err, errors.ErrExited):
		d.transition(&rec, StateAcknowledged)
	default:
		d.transition(&rec, StateFaulted)
	}
	return err
}

func (d *Dispatcher) transition(rec *Record, s State) {
	rec.State = s
	d.emit(rec)
}

func (d *Dispatcher) emit(rec *Record) {
	rec.At = time.Now()
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, fn := range d.observers {
		fn(*rec)
	}
}
