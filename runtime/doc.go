// Package runtime runs modules that speak the wasmbind protocol under
// wazero.
//
// A Runtime compiles modules and hosts extern namespaces. Load recovers the
// schema bundle from the module's custom sections; LoadWithBundle supplies
// it explicitly. Every exported function of the bundle is checked against
// the module's core exports before the module is accepted.
//
// Instance.Call lowers Go arguments into the instance's memory, calls the
// export, reads a complex result through get_result_ptr/get_result_size or
// the returned record pointer, lifts a copy, then calls release_objects and
// frees the buffers it wrote for borrowed arguments.
//
// # Guest contract
//
// Besides "memory", a guest that receives strings, vectors or records
// exports:
//
//	alloc(size, align i32) -> i32
//	free(ptr, size, align i32)       optional
//	get_result_ptr() -> i32          when any output is a string or vector
//	get_result_size() -> i32
//	release_objects()                when any output is complex
//
// # Externs
//
// DefineExtern implements an ExternModule with Go functions. The host
// module exports each import plus its own get_result_ptr, get_result_size
// and release_objects. Results are written into the caller's memory with
// the caller's allocator and stay alive until the caller invokes the
// namespace's release_objects.
package runtime
