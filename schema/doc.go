// Package schema is the Type Model: the closed set of value types that can
// cross the module boundary and the declarations built from them.
//
// # Types
//
//	bool  i8 i16 i32 i64  u8 u16 u32 u64  f32 f64  string  list<T>  <record>
//
// A Type is an immutable value. Record(name) is a reference resolved through
// a Registry; a name missing from the registry is a KindReference error.
//
// # Declarations
//
// Type expressions use WIT syntax (s8…s64 and i8…i64 are both accepted) with
// reference markers: "&string", "&mut list<u8>", "list<&string>". Markers at
// the outermost position become the PassingStyle; markers nested inside a
// list are recorded as reference depths and checked against the position
// the declaration is used in (see Position).
//
// All declarations are built once and never mutated afterwards.
package schema
