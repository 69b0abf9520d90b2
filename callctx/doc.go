// Package callctx holds the per-instance state of the result protocol:
// the two result registers and the list of objects that must outlive the
// call that produced them.
//
// The protocol runs in three steps on one thread of control:
//
//	call     the callee stores (ptr, size) with SetResultPtr/SetResultSize
//	         and defers every buffer the caller still has to read
//	read     the caller reads ResultPtr/ResultSize and copies the value out
//	release  ReleaseAll drains the pending list
//
// Begin enforces the ordering: starting a value-producing call while a
// previous result is still unreleased returns a KindOrdering error instead
// of silently invalidating buffers the caller may still reference.
package callctx
