package host

import (
	"context"
	stderrors "errors"
	"sync/atomic"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// ExitNamespace is the WASI interface ExitHost replaces.
const ExitNamespace = "wasi:cli/exit@0.2.3"

// ExitHost records a guest's request to exit instead of ending the process
// from inside a guest call. The host exits once the loop has shut down.
type ExitHost struct {
	exited atomic.Bool
	code   atomic.Uint32
}

// NewExitHost creates an exit host that has not seen an exit.
func NewExitHost() *ExitHost {
	return &ExitHost{}
}

func (h *ExitHost) Namespace() string {
	return ExitNamespace
}

// Register implements runtime.ExplicitRegistrar.
func (h *ExitHost) Register() map[string]any {
	return map[string]any{
		"exit": h.Exit,
	}
}

// Exit records status and unwinds the guest call. status is the lowered
// result discriminant: 0 for ok, 1 for err.
func (h *ExitHost) Exit(_ context.Context, status uint32) {
	h.record(status)
	Logger().Debug("guest requested exit", zap.Uint32("status", status))
	panic(sys.NewExitError(status))
}

// Exited reports whether the guest has exited.
func (h *ExitHost) Exited() bool {
	return h.exited.Load()
}

// Code returns the recorded exit status.
func (h *ExitHost) Code() uint32 {
	return h.code.Load()
}

func (h *ExitHost) record(code uint32) {
	if h.exited.CompareAndSwap(false, true) {
		h.code.Store(code)
	}
}

// exitCode extracts a wazero exit from v, a returned error or a recovered
// panic value.
func exitCode(v any) (uint32, bool) {
	err, ok := v.(error)
	if !ok {
		return 0, false
	}
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		return exit.ExitCode(), true
	}
	return 0, false
}
