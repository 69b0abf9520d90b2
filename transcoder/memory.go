package transcoder

import (
	wasmbind "github.com/wippyai/wasmbind"
)

type Memory = wasmbind.Memory
type Allocator = wasmbind.Allocator

// Tracker is told about every buffer the encoder allocates on behalf of a
// value whose memory stays with the caller, so it can be freed once the
// call has returned.
type Tracker interface {
	DeferAlloc(ptr, size, align uint32)
}
