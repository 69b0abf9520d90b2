package runtime

import (
	"github.com/wippyai/wasmbind/embed"
)

// Config holds runtime configuration. A nil *Config means defaults.
type Config struct {
	// Embed configures how schema sections are read by Load.
	Embed *embed.Options

	// AllocExport names the guest allocator export. Default "alloc".
	AllocExport string

	// FreeExport names the guest deallocator export. Default "free".
	// A module without it leaks host-written argument buffers.
	FreeExport string

	// MemoryLimitPages caps guest memory in 64 KiB pages.
	// 0 keeps wazero's default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// CloseOnContextDone aborts a running guest call when its context
	// is cancelled.
	CloseOnContextDone bool
}

const (
	defaultAllocExport = "alloc"
	defaultFreeExport  = "free"
)

func (c *Config) withDefaults() Config {
	var out Config
	if c != nil {
		out = *c
	}
	if out.AllocExport == "" {
		out.AllocExport = defaultAllocExport
	}
	if out.FreeExport == "" {
		out.FreeExport = defaultFreeExport
	}
	return out
}
