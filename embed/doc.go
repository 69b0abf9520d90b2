// Package embed writes a schema bundle into a module as custom sections and
// reads it back.
//
// Every record, exported function and extern namespace gets its own
// section named <prefix><kind>.<sanitized name>, where kind is fn, rec or
// ext and the default prefix is "wasmbind.". The payload is a versioned
// document whose type fields are declaration expressions ("&string",
// "list<point>"), serialized by a Codec; msgpack is the default.
//
// Embedding strips sections carrying the same prefix first, so running it
// twice yields the same module.
package embed
