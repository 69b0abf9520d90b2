// Package wasmbind generates and drives the glue that lets a typed function
// signature be called across a WebAssembly module boundary whose call
// convention only understands flat i32/i64/f32/f64 values.
//
// # Architecture Overview
//
//	wasmbind/            Root package with the Memory and Allocator interfaces
//	├── schema/          Type Model: types, signatures, records, extern modules
//	├── idl/             TOML interface descriptions → schema.Bundle
//	├── transcoder/      Lowering/lifting, vector and record codecs
//	│   └── internal/    slot mapping (abi) and record layout (layout)
//	├── callctx/         Result registers and the deferred-release list
//	├── embed/           Schema sections written into / read from modules
//	├── wasm/            Binary section scanner and minimal module builder
//	├── runtime/         wazero host that speaks the protocol
//	├── gen/             Go host-binding generator
//	├── errors/          Structured error types
//	└── cmd/wasmbind/    Command line front-end
//
// # Protocol
//
// Scalars travel as single slots. Strings and vectors travel as a
// (pointer, length) pair into linear memory; records travel as a pointer to
// a packed, padding-free buffer whose size is fixed by the declaration.
// Nested sequences use tables of descriptors, one per element.
//
// A complex result cannot be returned as two values, so the callee stores it
// in result registers and defers the release of its buffers:
//
//	call fn(args...)                 // epilogue: set_result_ptr/set_result_size
//	ptr  := get_result_ptr()
//	size := get_result_size()
//	... read result ...
//	release_objects()                // drains the deferred list
//
// The sequence call → read → release must complete before the next
// value-producing call on the same instance.
//
// # Quick Start
//
//	doc, err := idl.Load("api.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rt, _ := runtime.New(ctx, nil)
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadWithBundle(ctx, wasmBytes, doc.Bundle)
//	inst, err := mod.Instantiate(ctx)
//	defer inst.Close(ctx)
//
//	out, err := inst.Call(ctx, "greet", "World")
//
// Modules that carry their schema as custom sections (see embed and
// "wasmbind embed") load with rt.Load instead. "wasmbind gen" emits a typed
// Client over Instance.Call plus Define functions for extern namespaces.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance is single-threaded
// and non-reentrant, matching the module's own execution model.
package wasmbind
