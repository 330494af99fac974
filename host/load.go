package host

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-runtime/component"
	"github.com/wippyai/wasm-runtime/runtime"
	"github.com/wippyai/wasm-runtime/wasi/preview2"

	"github.com/wippyai/wasm-windowing/errors"
	"github.com/wippyai/wasm-windowing/event"
)

// Interfaces a guest must export.
const (
	RunInterface          = "wasi:cli/run"
	EventHandlerInterface = "wasi:windowing/event-handler"
)

// Exports names the guest entry points, as "interface#function".
type Exports struct {
	Run          string
	EventHandler string
}

// Config controls the WASI environment given to the guest.
type Config struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Env      map[string]string
	Preopens map[string]string
	Cwd      string
	Args     []string
	// InheritStdio routes guest stdout and stderr to Stdout and Stderr
	// instead of in-memory buffers.
	InheritStdio bool
}

// Component is a linked and instantiated guest.
type Component struct {
	Runtime  *runtime.Runtime
	Instance *runtime.Instance
	WASI     *preview2.WASI
	Exit     *ExitHost
	Exports  Exports
}

// FindExports locates the run and event-handler exports of a component and
// checks the event-handler signature.
func FindExports(data []byte) (Exports, error) {
	validated, err := component.DecodeAndValidate(data)
	if err != nil {
		return Exports{}, errors.Load("decode component", err)
	}

	resolver := component.NewTypeResolverWithInstances(
		validated.Raw.TypeIndexSpace,
		validated.Raw.InstanceTypes,
	)
	reg, err := component.NewCanonRegistry(validated.Raw, resolver)
	if err != nil {
		return Exports{}, errors.Load("build canon registry", err)
	}

	names := make([]string, 0, len(reg.Lifts))
	for name := range reg.Lifts {
		names = append(names, name)
	}
	sort.Strings(names)

	var exp Exports
	for _, name := range names {
		iface, fn, ok := strings.Cut(name, "#")
		if !ok {
			continue
		}
		switch {
		case fn == "run" && matchesInterface(iface, RunInterface):
			exp.Run = name
		case fn == "event-handler" && matchesInterface(iface, EventHandlerInterface):
			if err := checkEventHandler(name, reg.Lifts[name]); err != nil {
				return Exports{}, err
			}
			exp.EventHandler = name
		}
	}

	if exp.Run == "" {
		return Exports{}, errors.NotFound(errors.PhaseLoad, "export", RunInterface+"#run")
	}
	if exp.EventHandler == "" {
		return Exports{}, errors.NotFound(errors.PhaseLoad, "export", EventHandlerInterface+"#event-handler")
	}
	return exp, nil
}

// matchesInterface accepts iface with or without a version suffix.
func matchesInterface(iface, want string) bool {
	return iface == want || strings.HasPrefix(iface, want+"@")
}

func checkEventHandler(name string, lift *component.LiftDef) error {
	if len(lift.Params) != 2 {
		return errors.Signature(name, fmt.Sprintf("want 2 params, got %d", len(lift.Params)))
	}
	if len(lift.Results) != 0 {
		return errors.Signature(name, fmt.Sprintf("want no results, got %d", len(lift.Results)))
	}
	if _, ok := unalias(lift.Params[0]).(wit.U64); !ok {
		return errors.Signature(name, fmt.Sprintf("window-id must be u64, got %T", lift.Params[0]))
	}
	if err := event.Matches(lift.Params[1]); err != nil {
		return errors.New(errors.PhaseLoad, errors.KindSignature).
			Export(name).
			Cause(err).
			Build()
	}
	return nil
}

func unalias(t wit.Type) wit.Type {
	for {
		td, ok := t.(*wit.TypeDef)
		if !ok {
			return t
		}
		inner, ok := td.Kind.(wit.Type)
		if !ok {
			return t
		}
		t = inner
	}
}

// Load links data against WASI, the exit override and windows, then
// instantiates it. The caller owns the returned component and must Close it.
func Load(ctx context.Context, data []byte, windows runtime.Host, cfg Config) (*Component, error) {
	exports, err := FindExports(data)
	if err != nil {
		return nil, err
	}

	rt, err := runtime.New(ctx)
	if err != nil {
		return nil, errors.Load("create runtime", err)
	}

	c := &Component{Runtime: rt, Exports: exports, Exit: NewExitHost()}
	if err := c.link(ctx, data, windows, cfg); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	Logger().Info("component instantiated",
		zap.String("run", exports.Run),
		zap.String("event_handler", exports.EventHandler))
	return c, nil
}

func (c *Component) link(ctx context.Context, data []byte, windows runtime.Host, cfg Config) error {
	wasi := preview2.New().WithArgs(cfg.Args)
	if len(cfg.Env) > 0 {
		wasi = wasi.WithEnv(cfg.Env)
	}
	if cfg.Cwd != "" {
		wasi = wasi.WithCwd(cfg.Cwd)
	}
	if len(cfg.Preopens) > 0 {
		wasi = wasi.WithPreopens(cfg.Preopens)
	}
	c.WASI = wasi

	if err := c.Runtime.RegisterWASI(wasi); err != nil {
		return err
	}

	// later registrations replace the WASI defaults for the same names
	hosts := []runtime.Host{c.Exit, windows}
	if cfg.InheritStdio {
		hosts = append(hosts,
			newStdoutHost(wasi.Resources(), cfg.Stdout),
			newStderrHost(wasi.Resources(), cfg.Stderr))
	}
	for _, h := range hosts {
		if err := c.Runtime.RegisterHost(h); err != nil {
			return errors.Registration(h.Namespace(), err)
		}
	}

	mod, err := c.Runtime.LoadComponent(ctx, data)
	if err != nil {
		return errors.Load("link component", err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return errors.Instantiation(err)
	}
	c.Instance = inst
	return nil
}

// Guest returns the entry points of the instance.
func (c *Component) Guest() *ComponentGuest {
	return NewComponentGuest(c.Instance, c.Exports)
}

// Close releases the instance, the runtime and the WASI environment.
func (c *Component) Close(ctx context.Context) error {
	var first error
	if c.Instance != nil {
		if err := c.Instance.Close(ctx); err != nil {
			first = err
		}
		c.Instance = nil
	}
	if c.Runtime != nil {
		if err := c.Runtime.Close(ctx); err != nil && first == nil {
			first = err
		}
		c.Runtime = nil
	}
	if c.WASI != nil {
		c.WASI.Close()
		c.WASI = nil
	}
	return first
}
