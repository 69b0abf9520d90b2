// Package wasm reads and writes just enough of the WebAssembly binary
// format for schema embedding and protocol test guests.
//
// # Sections
//
// Sections walks the top-level sections of a module without decoding
// them. CustomSections, AppendCustomSection and StripCustomSections work on
// custom sections (id 0), which carry a name followed by opaque bytes and
// have no execution semantics.
//
// # Module builder
//
// Module and Code are exported so tests outside this package can build
// guest modules without a wasm toolchain. Module assembles a core module
// from function types, imported and defined functions, one memory, mutable
// globals, exports, data segments and custom sections. Code emits function
// bodies one instruction at a time; it does no validation, so a malformed
// body surfaces when the runtime compiles the module:
//
//	m := wasm.NewModule()
//	m.Memory(1)
//	add := m.Func([]wasm.ValType{wasm.I32, wasm.I32}, []wasm.ValType{wasm.I32}, nil,
//		wasm.NewCode().LocalGet(0).LocalGet(1).I32Add().Bytes())
//	m.ExportFunc("add", add)
//	bin := m.Encode()
package wasm
