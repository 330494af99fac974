package broker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/native"
)

// queueDepth bounds outstanding requests and tasks. Senders block, and stay
// cancellable, once it is reached.
const queueDepth = 64

// Broker carries window construction and window mutations from guest
// goroutines to the UI thread.
//
// Each request owns a private, single-use reply channel, so concurrent
// requesters can never receive each other's window.
type Broker struct {
	backend   native.Backend
	requests  chan request
	tasks     chan task
	done      chan struct{}
	opts      native.Options
	built     func(native.Window)
	served    atomic.Uint64
	closeOnce sync.Once
}

type request struct {
	reply chan reply
}

type reply struct {
	win native.Window
	err error
}

type task struct {
	fn    func() error
	reply chan error
	name  string
}

// New creates a broker that builds windows on backend with opts.
func New(backend native.Backend, opts native.Options) *Broker {
	return &Broker{
		backend:  backend,
		opts:     opts,
		requests: make(chan request, queueDepth),
		tasks:    make(chan task, queueDepth),
		done:     make(chan struct{}),
	}
}

// OnBuilt registers fn to run on the UI thread for every window built,
// before the window is handed to its requester. Call it before serving.
func (b *Broker) OnBuilt(fn func(native.Window)) {
	b.built = fn
}

// RequestWindow asks the UI thread for a fresh hidden window and waits for
// it. Safe from any goroutine except the UI thread.
//
// ctx only bounds submission. Once the request is queued the caller waits
// for the reply or for the broker to close, so no window is built for a
// requester that has gone away.
func (b *Broker) RequestWindow(ctx context.Context) (native.Window, error) {
	req := request{reply: make(chan reply, 1)}

	select {
	case b.requests <- req:
	case <-b.done:
		return nil, errors.BrokerUnavailable("request window")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	b.backend.Wake()

	select {
	case r := <-req.reply:
		return r.win, r.err
	case <-b.done:
		select {
		case r := <-req.reply:
			return r.win, r.err
		default:
		}
		return nil, errors.BrokerUnavailable("request window")
	}
}

// Do runs fn on the UI thread and returns its error. Safe from any goroutine
// except the UI thread.
func (b *Broker) Do(ctx context.Context, name string, fn func() error) error {
	t := task{fn: fn, name: name, reply: make(chan error, 1)}

	select {
	case b.tasks <- t:
	case <-b.done:
		return errors.BrokerUnavailable(name)
	case <-ctx.Done():
		return ctx.Err()
	}
	b.backend.Wake()

	select {
	case err := <-t.reply:
		return err
	case <-b.done:
		select {
		case err := <-t.reply:
			return err
		default:
		}
		return errors.BrokerUnavailable(name)
	}
}

// ServiceRequests answers every pending window request in submission
// order. UI thread only. Returns the number of requests served.
func (b *Broker) ServiceRequests() int {
	n := 0
	for {
		select {
		case req := <-b.requests:
			b.serve(req)
			n++
		default:
			return n
		}
	}
}

// ServiceTasks runs every pending task in submission order. UI thread only.
func (b *Broker) ServiceTasks() int {
	n := 0
	for {
		select {
		case t := <-b.tasks:
			b.run(t)
			n++
		default:
			return n
		}
	}
}

// Service drains requests, then tasks. UI thread only.
func (b *Broker) Service() int {
	return b.ServiceRequests() + b.ServiceTasks()
}

// ServeUntil keeps answering requests and tasks until done yields, then
// returns what it yielded. UI thread only.
//
// The UI thread calls this while it waits on a guest call, so a guest that
// needs a window in the middle of that call still gets one.
func (b *Broker) ServeUntil(done <-chan error) error {
	for {
		select {
		case err := <-done:
			return err
		case req := <-b.requests:
			b.serve(req)
		case t := <-b.tasks:
			b.run(t)
		case <-b.done:
			return <-done
		}
	}
}

// Close tears the broker down. Pending and future requests fail with a
// broker-unavailable error. Safe to call more than once.
func (b *Broker) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		Logger().Debug("broker closed", zap.Uint64("served", b.served.Load()))
	})
}

// Closed reports whether Close was called.
func (b *Broker) Closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Served returns the number of windows built so far.
func (b *Broker) Served() uint64 {
	return b.served.Load()
}

func (b *Broker) serve(req request) {
	w, err := b.backend.NewWindow(b.opts)
	if err != nil {
		Logger().Error("native window construction failed", zap.Error(err))
		req.reply <- reply{err: errors.Native("construct window", err)}
		return
	}
	b.served.Add(1)
	Logger().Debug("window built", zap.Uint64("window", w.ID()))
	if b.built != nil {
		b.built(w)
	}
	req.reply <- reply{win: w}
}

func (b *Broker) run(t task) {
	err := t.fn()
	if err != nil {
		Logger().Debug("ui task failed", zap.String("task", t.name), zap.Error(err))
	}
	t.reply <- err
}
