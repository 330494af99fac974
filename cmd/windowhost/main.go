package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-windowing/broker"
	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/eventloop"
	"github.com/wippyai/wasm-windowing/host"
	"github.com/wippyai/wasm-windowing/internal/config"
	"github.com/wippyai/wasm-windowing/native"
	"github.com/wippyai/wasm-windowing/native/desktop"
	"github.com/wippyai/wasm-windowing/native/headless"
	"github.com/wippyai/wasm-windowing/windowing"
)

// shutdownTimeout bounds the wait for an in-flight guest call on exit.
const shutdownTimeout = 2 * time.Second

type options struct {
	logLevel string
	period   time.Duration
	headless bool
	inspect  bool
}

func main() {
	var opts options
	flag.BoolVar(&opts.headless, "headless", false, "Run without a display; windows exist only in memory")
	flag.BoolVar(&opts.inspect, "inspect", false, "Show a live view of windows and dispatched events")
	flag.DurationVar(&opts.period, "period", 0, "Event loop period (overrides loop.period)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: windowhost [flags] <guest>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Runs <build_dir>/<guest>/target/<target>/<profile>/<guest>.wasm.")
		fmt.Fprintln(os.Stderr, "Configuration is read from "+config.Path()+" and WINDOWHOST_* variables.")
		fmt.Fprintln(os.Stderr, "")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(flag.Arg(0), opts))
}

// run hosts one guest on the calling goroutine, which must be the main
// thread, and returns the process exit status.
func run(name string, opts options) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.period > 0 {
		cfg.Loop.Period = opts.period
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := newLogger(cfg.Log, opts.inspect)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	setLoggers(log)

	path, err := cfg.GuestPath(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: read guest: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var caught atomic.Int32
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case s := <-sigs:
			if sig, ok := s.(syscall.Signal); ok {
				caught.Store(int32(sig))
			}
			log.Info("signal received", zap.Stringer("signal", s))
			cancel()
		case <-ctx.Done():
		}
	}()

	backend, err := newBackend(opts.headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer backend.Terminate()

	b := broker.New(backend, native.Options{
		Title:  cfg.Window.Title,
		X:      cfg.Window.X,
		Y:      cfg.Window.Y,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
	})
	windows := windowing.NewHost(b, cfg.Table.Capacity)
	b.OnBuilt(windows.Reserve)

	guestCfg, err := guestConfig(cfg.WASI, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	comp, err := host.Load(ctx, data, windows, guestCfg)
	if err != nil {
		log.Error("load guest", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.Info("guest loaded", zap.String("guest", name), zap.String("path", path))

	exec := host.NewExecution(comp.Guest(), comp.Exit)
	dispatcher := host.NewDispatcher(exec, windows, b)

	loopOpts := eventloop.Options{Period: cfg.Loop.Period}
	var view *inspector
	if opts.inspect {
		view = newInspector(name, cancel)
		windows.Subscribe(view.windowObserver())
		dispatcher.Observe(view.observeDispatch)
		loopOpts.OnTick = view.tick
		view.start()
	}

	loop := eventloop.New(backend, b, dispatcher, loopOpts)
	loopErr := loop.Run(ctx, exec.Run(ctx))

	b.Close()
	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer closeCancel()
	stopped := exec.Close(closeCtx) == nil
	windows.Close()
	if stopped {
		if err := comp.Close(closeCtx); err != nil {
			log.Warn("close guest", zap.Error(err))
		}
	} else {
		log.Warn("guest call still running at shutdown")
	}
	if view != nil {
		view.stop()
	}

	code := exitStatus(loopErr, exec, syscall.Signal(caught.Load()))
	if code != 0 && loopErr != nil && !stderrors.Is(loopErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", loopErr)
	}
	log.Info("host exiting",
		zap.Int("status", code),
		zap.Uint64("ticks", loop.Ticks()),
		zap.Uint64("events", loop.Events()),
		zap.Uint64("guest_calls", exec.Calls()))
	return code
}

// exitStatus maps the loop outcome to a process status: the guest's own
// status when it exited, 128+signal when interrupted, 0 when the inspector
// was quit, 1 for any failure.
func exitStatus(loopErr error, exec *host.Execution, sig syscall.Signal) int {
	switch {
	case loopErr == nil && exec.Exited():
		return int(exec.ExitCode())
	case loopErr == nil:
		return 0
	case sig != 0 && stderrors.Is(loopErr, context.Canceled):
		return 128 + int(sig)
	case stderrors.Is(loopErr, context.Canceled):
		return 0
	case errors.KindOf(loopErr) == errors.KindExited:
		return int(exec.ExitCode())
	}
	return 1
}

// guestConfig builds the guest's WASI environment. argv defaults to the
// guest name.
func guestConfig(w config.WASIConfig, name string) (host.Config, error) {
	env, err := w.Environ()
	if err != nil {
		return host.Config{}, err
	}
	preopens, err := w.PreopenDirs()
	if err != nil {
		return host.Config{}, err
	}
	args := w.Args
	if len(args) == 0 {
		args = []string{name}
	}
	return host.Config{
		Env:          env,
		Args:         args,
		Preopens:     preopens,
		InheritStdio: w.InheritStdio,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
	}, nil
}

func newBackend(headlessMode bool) (native.Backend, error) {
	if headlessMode {
		return headless.New(), nil
	}
	b, err := desktop.New()
	if err != nil {
		return nil, err
	}
	return b, nil
}
