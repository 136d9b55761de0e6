// Package gotpl is an ownership-safe bridge to an external template engine
// running in a foreign runtime.
//
// The engine itself (template parsing and execution) is an external
// collaborator: a WebAssembly module exposing a fixed render contract. This
// package makes the crossing safe and ergonomic: it marshals host values into
// boundary-compatible buffers, invokes the foreign entry point, takes
// exclusive ownership of the memory the engine allocates for its result,
// guarantees that memory is released exactly once on every exit path, and
// translates foreign error signals into a typed error taxonomy.
//
// # Architecture Overview
//
//	gotpl/           Root package: boundary contract, marshaling, result
//	                 guard, and the render builder
//	├── errors/      Structured error types callers can branch on
//	├── engine/      wazero-backed engine implementation
//	├── enginetest/  Instrumented in-process engine for tests
//	└── cmd/gotpl/   Command-line renderer with an interactive mode
//
// # Quick Start
//
//	eng, err := engine.NewEngine(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	out, err := gotpl.New(eng, "Hello, {{.name}}!", map[string]any{"name": "MoYan"}).
//	    EscapeHTML(true).
//	    OnMissingKey(gotpl.ErrorOnMissing).
//	    Render(ctx)
//
// # Memory Model
//
// The engine allocates its result buffers with its own runtime's allocator;
// the host cannot free them directly. Every render call wraps the returned
// buffer pair in an OwnedResult that invokes the engine's deallocation
// function on both handles exactly once, including on error and panic paths.
// Result views borrowed from the guard are invalid after release; all data is
// copied into owned strings before the guard lets go.
//
// # Thread Safety
//
// The bridge holds no shared mutable state between calls: each call's buffers
// and guard are local to that call. Concurrent renders are safe provided the
// Engine implementation is reentrant or serializes internally (the wazero
// engine does the latter).
package gotpl
