// Package abi holds the low-level rules of the boundary call convention:
// which raw slots a type occupies, how Go values are coerced into slot
// integers and floats, and the safety limits applied while decoding.
//
// This package is internal to the transcoder.
package abi
