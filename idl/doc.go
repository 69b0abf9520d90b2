// Package idl loads interface descriptions written in TOML.
//
// A description declares records, exported functions and extern
// namespaces. Type expressions use WIT spelling with i8…i64 aliases,
// record names, and & / &mut reference markers on arguments:
//
//	[package]
//	name = "geometry"
//	go_package = "geobind"
//
//	[policy]
//	record_field_refs = "strict"   # or "relaxed"
//
//	[[record]]
//	name = "point"
//	fields = [{ name = "x", type = "f64" }, { name = "y", type = "f64" }]
//
//	[[function]]
//	name = "length"
//	params = [{ name = "pts", type = "&list<point>" }]
//	result = "f64"
//
//	[[extern]]
//	namespace = "env"
//
//	  [[extern.import]]
//	  name = "log"
//	  link_name = "host_log"
//	  params = [{ name = "msg", type = "&string" }]
//
// Keys the loader does not know are errors.
package idl
