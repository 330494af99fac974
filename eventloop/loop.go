package eventloop

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/native"
)

// DefaultPeriod is the wake schedule of the loop, about 60 per second.
const DefaultPeriod = 16 * time.Millisecond

// ErrSubsystemClosed is returned when the environment shuts the native
// windowing subsystem down under the loop.
var ErrSubsystemClosed = errors.New(errors.PhaseNative, errors.KindNative).
	Detail("windowing subsystem closed").
	Build()

// Servicer answers pending cross-thread requests. *broker.Broker implements it.
type Servicer interface {
	Service() int
}

// Dispatcher delivers one native event to the guest and waits for it.
// *host.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev native.Event) error
}

// Options tunes a Loop.
type Options struct {
	// OnTick runs on the UI thread each time a deadline is reached.
	OnTick func(tick uint64)
	// Period between deadlines. Zero means DefaultPeriod.
	Period time.Duration
}

// Loop drives the native event loop on the UI thread.
type Loop struct {
	backend    native.Backend
	broker     Servicer
	dispatcher Dispatcher
	onTick     func(uint64)
	period     time.Duration
	ticks      atomic.Uint64
	events     atomic.Uint64
}

// New creates a loop. It must run on the thread that owns backend.
func New(backend native.Backend, broker Servicer, dispatcher Dispatcher, opts Options) *Loop {
	period := opts.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Loop{
		backend:    backend,
		broker:     broker,
		dispatcher: dispatcher,
		onTick:     opts.OnTick,
		period:     period,
	}
}

// Ticks returns the number of deadlines reached.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Events returns the number of native events handed to the dispatcher.
func (l *Loop) Events() uint64 { return l.events.Load() }

// Run services the loop until the guest stops or the environment does.
// startup yields the outcome of the guest's run call.
//
// Run returns nil when the guest exits, the guest's error when startup or
// an event call fails, ctx.Err() on cancellation and ErrSubsystemClosed
// when the backend goes away.
func (l *Loop) Run(ctx context.Context, startup <-chan error) error {
	inner, cancel := context.WithCancel(ctx)
	defer cancel()

	started := make(chan error, 1)
	go func() {
		select {
		case err := <-startup:
			started <- err
			l.backend.Wake()
		case <-inner.Done():
		}
	}()
	stop := context.AfterFunc(ctx, l.backend.Wake)
	defer stop()

	deadline := time.Now().Add(l.period)
	for {
		select {
		case <-ctx.Done():
			Logger().Info("event loop cancelled", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-l.backend.Done():
			Logger().Warn("windowing subsystem closed")
			return ErrSubsystemClosed
		case err := <-started:
			if err != nil {
				return l.stop("run", err)
			}
			Logger().Debug("guest startup finished")
		default:
		}

		l.broker.Service()

		for _, ev := range l.backend.Drain() {
			l.events.Add(1)
			if err := l.dispatcher.Dispatch(ctx, ev); err != nil {
				return l.stop("event", err)
			}
		}

		now := time.Now()
		if !now.Before(deadline) {
			n := l.ticks.Add(1)
			if l.onTick != nil {
				l.onTick(n)
			}
			deadline = deadline.Add(l.period)
			if !deadline.After(now) {
				deadline = now.Add(l.period)
			}
		}
		l.backend.Wait(time.Until(deadline))
	}
}

// stop maps a guest outcome to the loop's result. Exit ends the loop cleanly.
func (l *Loop) stop(call string, err error) error {
	if stderrors.Is(err, errors.ErrExited) {
		Logger().Info("guest exited, stopping event loop", zap.String("call", call))
		return nil
	}
	Logger().Error("guest failed, stopping event loop", zap.String("call", call), zap.Error(err))
	return err
}
