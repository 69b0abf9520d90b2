// Package layout computes the packed wire layout of records and the table
// stride of vector elements.
//
// # Layout Rules
//
// Records are fields concatenated in declaration order with no padding:
//
//	bool, i8, u8            1
//	i16, u16                2
//	i32, u32, f32           4
//	i64, u64, f64           8
//	record (pointer)        4
//	string, list (ptr,len)  8
//
// Vector elements of scalar kind are stored contiguously at the same
// width. String and list elements use an 8-byte (ptr, len) table entry;
// record elements use a 4-byte pointer entry.
//
// This package is internal to the transcoder.
package layout
