// Package transcoder lowers Go values into boundary slots and linear memory
// and lifts them back.
//
// # Architecture
//
// Transcoding is split into compile time and call time:
//
//  1. Compile: a schema.Type is resolved against the record registry into
//     a CompiledType carrying widths, strides, record field offsets and the
//     Go type a lifted value has. Compiled types are cached per Compiler.
//  2. Lower: Encoder walks a value, allocating guest buffers for strings,
//     vectors and records, and emits the raw slots of the call.
//  3. Lift: Decoder rebuilds a value from slots and memory.
//
// # Slots
//
//	bool, i8..i32, u8..u32   one i32
//	i64, u64                 one i64
//	f32 / f64                one f32 / f64
//	string, list<T>          (ptr, len) as two i32
//	record argument          (ptr, size) as two i32
//	record result            ptr as one i32
//
// # Vectors
//
// Scalar elements are stored contiguously at native width (bool as one
// byte). String and list elements become an 8-byte (ptr, len) table entry
// pointing at their own buffer; record elements a 4-byte pointer. The
// length slot always counts logical elements.
//
// # Records
//
// Fields are packed in declaration order with no padding; the total size
// is fixed per record and known before any value is written.
//
// # Empty values
//
// An empty string or vector lowers to (0, 0) without allocating. A length
// of zero is never dereferenced on the way back, whatever the pointer
// holds.
//
// # Lifted Go types
//
//	bool, i8..i64, u8..u64   bool, int8..int64, uint8..uint64
//	f32, f64                 float32, float64
//	string                   string
//	list<T>                  []T, e.g. [][]string for list<list<string>>
//	record                   Record
//
// Lowering is lenient: any Go integer that fits, integral floats, named
// types, []any, arrays, Go structs (matched by `wasm` tag, name or
// kebab-case name), map[string]any and Record are accepted.
package transcoder
