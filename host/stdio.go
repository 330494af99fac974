package host

import (
	"context"
	"io"
	"sync"

	"github.com/wippyai/wasm-runtime/wasi/preview2"
)

// Namespaces of the WASI stdio interfaces replaced when stdio is inherited.
const (
	StdoutNamespace = "wasi:cli/stdout@0.2.3"
	StderrNamespace = "wasi:cli/stderr@0.2.3"
)

// writerStream is a WASI output stream that writes straight through to w.
type writerStream struct {
	w  io.Writer
	mu sync.Mutex
}

func newWriterStream(w io.Writer) *writerStream {
	return &writerStream{w: w}
}

func (s *writerStream) Type() preview2.ResourceType { return preview2.ResourceOutputStream }
func (s *writerStream) Drop()                       {}

func (s *writerStream) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(data)
	if err != nil {
		return &preview2.StreamError{Closed: true}
	}
	return nil
}

func (s *writerStream) CheckWrite() (uint64, error) {
	return preview2.DefaultBufferSize, nil
}

func (s *writerStream) Flush() error { return nil }

// streamHost hands out handles to one writerStream.
type streamHost struct {
	resources *preview2.ResourceTable
	stream    *writerStream
	namespace string
	fn        string
}

func newStdoutHost(resources *preview2.ResourceTable, w io.Writer) *streamHost {
	return &streamHost{resources: resources, stream: newWriterStream(w), namespace: StdoutNamespace, fn: "get-stdout"}
}

func newStderrHost(resources *preview2.ResourceTable, w io.Writer) *streamHost {
	return &streamHost{resources: resources, stream: newWriterStream(w), namespace: StderrNamespace, fn: "get-stderr"}
}

func (h *streamHost) Namespace() string {
	return h.namespace
}

// Register implements runtime.ExplicitRegistrar.
func (h *streamHost) Register() map[string]any {
	return map[string]any{
		h.fn: func(_ context.Context) uint32 {
			return h.resources.Add(h.stream)
		},
	}
}
