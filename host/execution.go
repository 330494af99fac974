package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/event"
)

// Status is the lifecycle state of an Execution.
type Status int32

const (
	StatusRunning Status = iota
	StatusExited
	StatusFaulted
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusExited:
		return "exited"
	case StatusFaulted:
		return "faulted"
	case StatusClosed:
		return "closed"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// Call names used in log fields and errors.
const (
	callRun   = "run"
	callEvent = "event-handler"
)

// Execution owns a guest and runs its entry points one at a time, in the
// order they were submitted, on a dedicated goroutine.
//
// Submission never blocks. The UI thread can queue an event while the
// startup call is still in flight; the event runs when that call returns.
//
// Once the guest exits or faults, queued and later calls are refused with
// the exit or fault error.
type Execution struct {
	guest   Guest
	exit    *ExitHost
	err     error
	signal  chan struct{}
	quit    chan struct{}
	stopped chan struct{}
	queue   []call
	status  atomic.Int32
	code    atomic.Uint32
	calls   atomic.Uint64
	mu      sync.Mutex
	closing bool
}

type call struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
	name string
}

// NewExecution starts the call goroutine for guest. exit may be nil when
// the guest cannot call wasi:cli/exit.
func NewExecution(guest Guest, exit *ExitHost) *Execution {
	e := &Execution{
		guest:   guest,
		exit:    exit,
		signal:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.loop()
	return e
}

// Run submits the startup entry point.
func (e *Execution) Run(ctx context.Context) <-chan error {
	return e.submit(ctx, callRun, e.guest.Run)
}

// Dispatch submits one event for window.
func (e *Execution) Dispatch(ctx context.Context, window uint64, ev event.Event) <-chan error {
	return e.submit(ctx, callEvent, func(ctx context.Context) error {
		return e.guest.HandleEvent(ctx, window, ev)
	})
}

// Status returns the current lifecycle state.
func (e *Execution) Status() Status {
	return Status(e.status.Load())
}

// Exited reports whether the guest requested exit.
func (e *Execution) Exited() bool {
	return e.Status() == StatusExited
}

// Faulted reports whether a guest call trapped or failed.
func (e *Execution) Faulted() bool {
	return e.Status() == StatusFaulted
}

// ExitCode returns the guest's exit status. Meaningful once Exited.
func (e *Execution) ExitCode() uint32 {
	return e.code.Load()
}

// Err returns the error that stopped the execution, if any.
func (e *Execution) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Calls returns the number of guest calls completed.
func (e *Execution) Calls() uint64 {
	return e.calls.Load()
}

// Close stops accepting calls and waits for the in-flight call, if any,
// until ctx expires. Queued calls are refused.
func (e *Execution) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closing {
		e.closing = true
		close(e.quit)
	}
	e.mu.Unlock()

	select {
	case <-e.stopped:
		e.status.CompareAndSwap(int32(StatusRunning), int32(StatusClosed))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Execution) submit(ctx context.Context, name string, fn func(context.Context) error) <-chan error {
	done := make(chan error, 1)

	e.mu.Lock()
	if err := e.refusal(); err != nil {
		e.mu.Unlock()
		done <- err
		return done
	}
	e.queue = append(e.queue, call{ctx: ctx, fn: fn, done: done, name: name})
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
	return done
}

// refusal returns the error for calls that can no longer run. e.mu held.
func (e *Execution) refusal() error {
	var err error
	if e.closing {
		err = errors.New(errors.PhaseGuest, errors.KindInvalidInput).Detail("execution closed").Build()
	} else {
		switch e.Status() {
		case StatusExited:
			err = errors.Exited(e.ExitCode())
		case StatusFaulted:
			err = e.err
		}
	}
	if err == nil {
		return nil
	}
	return &refusedError{err: err}
}

// refusedError marks a call that never reached the guest.
type refusedError struct {
	err error
}

func (r *refusedError) Error() string { return "call refused: " + r.err.Error() }
func (r *refusedError) Unwrap() error { return r.err }

// Refused reports whether err is from a call that was never run because the
// guest had already exited, faulted or been closed.
func Refused(err error) bool {
	var r *refusedError
	return stderrors.As(err, &r)
}

func (e *Execution) loop() {
	defer close(e.stopped)
	for {
		c, ok := e.next()
		if !ok {
			e.refuseQueued()
			return
		}

		e.mu.Lock()
		refused := e.refusal()
		e.mu.Unlock()
		if refused != nil {
			c.done <- refused
			continue
		}

		c.done <- e.invoke(c)
		e.calls.Add(1)
	}
}

func (e *Execution) next() (call, bool) {
	for {
		e.mu.Lock()
		if e.closing {
			e.mu.Unlock()
			return call{}, false
		}
		if len(e.queue) > 0 {
			c := e.queue[0]
			e.queue[0] = call{}
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return c, true
		}
		e.mu.Unlock()

		select {
		case <-e.signal:
		case <-e.quit:
		}
	}
}

func (e *Execution) refuseQueued() {
	e.mu.Lock()
	queued := e.queue
	e.queue = nil
	err := e.refusal()
	e.mu.Unlock()
	for _, c := range queued {
		c.done <- err
	}
}

// invoke runs one call and classifies its outcome.
func (e *Execution) invoke(c call) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = e.classify(c.name, panicError(r))
		}
	}()
	return e.classify(c.name, c.fn(c.ctx))
}

func (e *Execution) classify(name string, err error) error {
	if code, ok := e.exitRequested(err); ok {
		e.code.Store(code)
		e.status.Store(int32(StatusExited))
		Logger().Info("guest exited", zap.String("call", name), zap.Uint32("code", code))
		return errors.Exited(code)
	}
	if err == nil {
		return nil
	}

	var fault error
	var se *errors.Error
	if stderrors.As(err, &se) && se.Phase == errors.PhaseGuest {
		fault = err
	} else {
		fault = errors.GuestTrap(name, err)
	}

	e.mu.Lock()
	e.err = fault
	e.mu.Unlock()
	e.status.Store(int32(StatusFaulted))
	Logger().Error("guest faulted", zap.String("call", name), zap.Error(fault))
	return fault
}

func (e *Execution) exitRequested(err error) (uint32, bool) {
	if e.exit != nil && e.exit.Exited() {
		return e.exit.Code(), true
	}
	if code, ok := exitCode(err); ok {
		if e.exit != nil {
			e.exit.record(code)
		}
		return code, true
	}
	return 0, false
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
