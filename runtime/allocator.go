package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	wasmbind "github.com/wippyai/wasmbind"
	"github.com/wippyai/wasmbind/errors"
)

// guestAllocator implements wasmbind.Allocator with the guest's own
// alloc/free exports. The context of the current call is installed with
// setContext before any lowering.
type guestAllocator struct {
	allocFn api.Function
	freeFn  api.Function
	ctx     context.Context
	stack   []uint64
	mu      sync.Mutex
}

func newGuestAllocator(mod api.Module, cfg *Config) *guestAllocator {
	return &guestAllocator{
		allocFn: mod.ExportedFunction(cfg.AllocExport),
		freeFn:  mod.ExportedFunction(cfg.FreeExport),
		stack:   make([]uint64, 3),
	}
}

func (a *guestAllocator) setContext(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
}

func (a *guestAllocator) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *guestAllocator) Alloc(size, align uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, errors.NotFound(errors.PhaseRuntime, "allocator export", "alloc")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stack[0] = api.EncodeU32(size)
	a.stack[1] = api.EncodeU32(align)
	if err := a.allocFn.CallWithStack(a.context(), a.stack[:2]); err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(a.stack[0])
	if ptr == 0 && size > 0 {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, size, align)
	}
	return ptr, nil
}

func (a *guestAllocator) Free(ptr, size, align uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stack[0] = api.EncodeU32(ptr)
	a.stack[1] = api.EncodeU32(size)
	a.stack[2] = api.EncodeU32(align)
	if err := a.freeFn.CallWithStack(a.context(), a.stack[:3]); err != nil {
		Logger().Warn("free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}

var _ wasmbind.Allocator = (*guestAllocator)(nil)
