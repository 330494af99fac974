package windowing

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-windowing/broker"
	werrors "github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/native"
	"github.com/wippyai/wasm-windowing/native/headless"
	"github.com/wippyai/wasm-windowing/resource"
)

type fixture struct {
	backend *headless.Backend
	broker  *broker.Broker
	host    *Host
}

// newFixture starts a goroutine standing in for the UI thread.
func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	backend := headless.New()
	b := broker.New(backend, native.DefaultOptions())
	f := &fixture{backend: backend, broker: b, host: NewHost(b, capacity)}
	b.OnBuilt(f.host.Reserve)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			backend.Wait(5 * time.Millisecond)
			b.Service()
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})
	return f
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestHost_NewDistinctHandles(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	h1, err := f.host.New(ctx)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := f.host.New(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == 0 || h2 == 0 || h1 == h2 {
		t.Fatalf("handles = %d, %d", h1, h2)
	}
	if f.host.Len() != 2 {
		t.Fatalf("Len = %d, want 2", f.host.Len())
	}

	for _, w := range f.backend.Windows() {
		if w.Visible() {
			t.Errorf("window %d visible before set-visible", w.ID())
		}
		if !f.host.Owns(w.ID()) {
			t.Errorf("host does not own window %d", w.ID())
		}
	}
}

func TestHost_SetVisible(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	h, _ := f.host.New(ctx)
	if err := f.host.SetVisible(ctx, h, true); err != nil {
		t.Fatal(err)
	}
	w := f.backend.Windows()[0]
	if !w.Visible() {
		t.Fatal("window not visible after set-visible(true)")
	}
	if err := f.host.SetVisible(ctx, h, false); err != nil {
		t.Fatal(err)
	}
	if w.Visible() {
		t.Fatal("window visible after set-visible(false)")
	}
}

func TestHost_DropThenUse(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	h, _ := f.host.New(ctx)
	id, err := f.host.ID(h)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.host.Drop(ctx, h); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if !f.backend.Windows()[0].Destroyed() {
		t.Fatal("native window not destroyed on drop")
	}
	if f.host.Owns(id) {
		t.Fatal("dropped window still owned")
	}

	if err := f.host.SetVisible(ctx, h, true); !errors.Is(err, werrors.ErrInvalidHandle) {
		t.Fatalf("SetVisible after drop = %v, want invalid handle", err)
	}
	if err := f.host.Drop(ctx, h); !errors.Is(err, werrors.ErrInvalidHandle) {
		t.Fatalf("double drop = %v, want invalid handle", err)
	}
	if _, err := f.host.ID(h); !errors.Is(err, werrors.ErrInvalidHandle) {
		t.Fatalf("ID after drop = %v", err)
	}
}

func TestHost_Exhausted(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	if _, err := f.host.New(ctx); err != nil {
		t.Fatal(err)
	}
	_, err := f.host.New(ctx)
	if !errors.Is(err, werrors.ErrExhausted) {
		t.Fatalf("New on full table = %v, want exhausted", err)
	}
	if werrors.IsFatal(err) {
		t.Fatal("exhaustion must not be fatal")
	}
	if f.backend.Live() != 1 {
		t.Fatalf("Live = %d, surplus window leaked", f.backend.Live())
	}
	if f.host.Len() != 1 {
		t.Fatalf("Len = %d", f.host.Len())
	}
}

func TestHost_BrokerGone(t *testing.T) {
	f := newFixture(t, 0)
	f.broker.Close()

	_, err := f.host.New(context.Background())
	if !errors.Is(err, werrors.ErrBrokerUnavailable) {
		t.Fatalf("New = %v, want broker unavailable", err)
	}
	if !werrors.IsFatal(err) {
		t.Fatal("broker loss must be fatal")
	}
}

func TestHost_Subscribe(t *testing.T) {
	f := newFixture(t, 0)
	var events []resource.EventType
	f.host.Subscribe(resource.ObserverFunc[native.Window](func(e resource.Event[native.Window]) {
		events = append(events, e.Type)
	}))

	h, _ := f.host.New(context.Background())
	f.host.Drop(context.Background(), h)

	if len(events) != 2 || events[0] != resource.EventCreated || events[1] != resource.EventDropped {
		t.Fatalf("events = %v", events)
	}
}

func TestHost_Close(t *testing.T) {
	f := newFixture(t, 0)
	for i := 0; i < 3; i++ {
		f.host.New(context.Background())
	}
	f.host.Close()
	if f.backend.Live() != 0 {
		t.Fatalf("Live = %d after Close", f.backend.Live())
	}
	if f.host.Len() != 0 {
		t.Fatalf("Len = %d after Close", f.host.Len())
	}
}

func TestHost_OwnsBeforeHandleInserted(t *testing.T) {
	backend := headless.New()
	b := broker.New(backend, native.DefaultOptions())
	h := NewHost(b, 0)
	built := make(chan uint64, 1)
	b.OnBuilt(func(w native.Window) {
		h.Reserve(w)
		built <- w.ID()
	})

	type result struct {
		handle resource.Handle
		err    error
	}
	res := make(chan result, 1)
	go func() {
		handle, err := h.New(context.Background())
		res <- result{handle, err}
	}()

	// serve on this goroutine; the requester has not seen the reply yet
	for b.ServiceRequests() == 0 {
		backend.Wait(time.Millisecond)
	}
	id := <-built
	if !h.Owns(id) {
		t.Fatalf("Owns(%d) = false once built", id)
	}

	r := <-res
	if r.err != nil {
		t.Fatal(r.err)
	}
	if got, _ := h.ID(r.handle); got != id || !h.Owns(id) {
		t.Fatalf("ID = %d, Owns = %v, want %d owned", got, h.Owns(id), id)
	}
}

func TestHost_ExhaustedReleasesReservation(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	if _, err := f.host.New(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := f.host.New(ctx); !errors.Is(err, werrors.ErrExhausted) {
		t.Fatalf("New on full table = %v, want exhausted", err)
	}

	windows := f.backend.Windows()
	if len(windows) != 2 {
		t.Fatalf("built %d windows, want 2", len(windows))
	}
	if !f.host.Owns(windows[0].ID()) {
		t.Error("first window not owned")
	}
	if f.host.Owns(windows[1].ID()) {
		t.Error("surplus window still owned after exhaustion")
	}
}

func TestRegister_Names(t *testing.T) {
	h := NewHost(nil, 0)
	if h.Namespace() != "wasi:windowing/window" {
		t.Errorf("Namespace = %q", h.Namespace())
	}
	funcs := h.Register()
	for _, name := range []string{
		"[constructor]window",
		"[static]window.create",
		"[method]window.set-visible",
		"[method]window.try-set-visible",
		"[method]window.id",
		"[resource-drop]window",
	} {
		if _, ok := funcs[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}
}

func TestABI_Create(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	first, werr := f.host.abiCreate(ctx)
	if werr != nil || first == 0 {
		t.Fatalf("abiCreate = %d, %v", first, werr)
	}
	_, werr = f.host.abiCreate(ctx)
	if werr == nil || werr.Code != ErrorResourceExhausted {
		t.Fatalf("abiCreate on full table = %v, want resource-exhausted", werr)
	}
}

func TestABI_ConstructorTrapsOnExhaustion(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.host.abiConstructor(ctx)

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, werrors.ErrExhausted) {
			t.Fatalf("recover = %v, want exhausted error", r)
		}
	}()
	f.host.abiConstructor(ctx)
}

func TestABI_SetVisibleAndID(t *testing.T) {
	logs := observeLogs(t)
	f := newFixture(t, 0)
	ctx := context.Background()

	self := f.host.abiConstructor(ctx)
	f.host.abiSetVisible(ctx, self, true)
	if !f.backend.Windows()[0].Visible() {
		t.Fatal("window not visible after set-visible(true)")
	}
	if id := f.host.abiID(ctx, self); id != f.backend.Windows()[0].ID() {
		t.Fatalf("abiID = %d", id)
	}

	f.host.abiDrop(ctx, self)
	f.host.abiSetVisible(ctx, self, true)
	if n := logs.FilterMessage("set-visible on invalid window handle").Len(); n != 1 {
		t.Fatalf("got %d invalid set-visible log entries, want 1", n)
	}
	if id := f.host.abiID(ctx, self); id != 0 {
		t.Fatalf("abiID after drop = %d, want 0", id)
	}
}

func TestABI_TrySetVisible(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	self := f.host.abiConstructor(ctx)
	if werr := f.host.abiTrySetVisible(ctx, self, true); werr != nil {
		t.Fatalf("abiTrySetVisible = %v", werr)
	}
	if !f.backend.Windows()[0].Visible() {
		t.Fatal("window not visible after try-set-visible(true)")
	}

	f.host.abiDrop(ctx, self)
	if werr := f.host.abiTrySetVisible(ctx, self, false); werr == nil || werr.Code != ErrorInvalidHandle {
		t.Fatalf("abiTrySetVisible after drop = %v, want invalid-handle", werr)
	}
}

type goneBroker struct{}

func (goneBroker) RequestWindow(context.Context) (native.Window, error) {
	return nil, werrors.BrokerUnavailable("request window")
}

func (goneBroker) Do(_ context.Context, name string, _ func() error) error {
	return werrors.BrokerUnavailable(name)
}

func TestABI_SetVisibleTrapsWithoutBroker(t *testing.T) {
	h := NewHost(goneBroker{}, 0)
	w, err := headless.New().NewWindow(native.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	self, err := h.table.Insert(w)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, werrors.ErrBrokerUnavailable) {
			t.Fatalf("recover = %v, want broker unavailable", r)
		}
	}()
	h.abiSetVisible(context.Background(), uint32(self), true)
}

func TestABI_DropInvalidIsLogged(t *testing.T) {
	logs := observeLogs(t)
	f := newFixture(t, 0)

	f.host.abiDrop(context.Background(), 42)

	entries := logs.FilterMessage("invalid window handle to drop").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	if entries[0].ContextMap()["handle"] != uint32(42) {
		t.Errorf("handle field = %v", entries[0].ContextMap()["handle"])
	}
}
