// Package wasmwindowing hosts sandboxed WebAssembly components that open
// native windows.
//
// A guest imports wasi:windowing/window and exports wasi:cli/run and
// wasi:windowing/event-handler (see wit/windowing.wit). Native windows live
// on the main OS thread; guest calls run on one goroutine. The packages
// bridge the two:
//
//	wasmwindowing/
//	├── resource/         Generation-checked handle table
//	├── broker/           Window construction and mutation on the UI thread
//	├── windowing/        The wasi:windowing/window host
//	├── event/            Guest event variant and its canonical ABI value
//	├── host/             Loading, serialized guest execution, event dispatch
//	├── eventloop/        The UI thread's fixed-period loop
//	├── native/           Backend interface and key codes
//	│   ├── desktop/      GLFW backend
//	│   └── headless/     In-memory backend
//	├── errors/           Structured errors
//	└── cmd/windowhost/   Command line host
//
// # Running a Guest
//
//	windowhost example1
//
// loads ../example-apps/example1/target/wasm32-wasi/release/example1.wasm,
// calls run and delivers window events until the guest exits.
// The process exits with the guest's status.
//
// # Threads
//
// Only the UI thread touches native windows. A guest call that needs a
// window sends a request through the broker and waits; the UI thread keeps
// answering such requests even while it waits for a guest call to finish,
// so creating a window from inside an event handler cannot deadlock.
package wasmwindowing
