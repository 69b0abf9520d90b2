package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	wasmbind "github.com/wippyai/wasmbind"
	"github.com/wippyai/wasmbind/callctx"
	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/transcoder"
)

// Instance is one instantiation of a Module. Calls are serialized; the
// guest is single-threaded and not reentrant.
type Instance struct {
	module *Module
	mod    api.Module
	mem    *Memory
	alloc  *guestAllocator
	// call tracks buffers written for borrowed arguments of the current
	// call and enforces call, read, release ordering.
	call    *callctx.Context
	fns     map[string]api.Function
	getPtr  api.Function
	getSize api.Function
	release api.Function
	mu      sync.Mutex
}

// Call invokes an exported function of the bundle. The returned value is a
// copy and stays valid after the guest's buffers are released.
func (i *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	bf, ok := i.module.funcs[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.mod == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "instance is closed")
	}
	if err := i.call.Begin(); err != nil {
		return nil, err
	}
	i.alloc.setContext(ctx)

	flat, err := i.module.encoder.EncodeParams(bf.sig, args, i.mem, i.alloc, i.call)
	if err != nil {
		return nil, multierr.Append(err, i.call.ReleaseAll())
	}

	results, err := i.fns[name].Call(ctx, flat...)
	if err != nil {
		return nil, multierr.Append(errors.Trap(name, err), i.call.ReleaseAll())
	}

	out, err := i.readResult(ctx, bf, results)
	if bf.mode == transcoder.ResultPointer || bf.mode == transcoder.ResultRegisters {
		if _, relErr := i.release.Call(ctx); relErr != nil {
			err = multierr.Append(err, errors.Trap(transcoder.ReleaseObjects, relErr))
		}
	}
	err = multierr.Append(err, i.call.ReleaseAll())
	if err != nil {
		Logger().Debug("call failed", zap.String("function", name), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (i *Instance) readResult(ctx context.Context, bf *boundFunc, results []uint64) (any, error) {
	switch bf.mode {
	case transcoder.ResultNone:
		return nil, nil
	case transcoder.ResultRegisters:
		ptr, err := i.getPtr.Call(ctx)
		if err != nil {
			return nil, errors.Trap(transcoder.GetResultPtr, err)
		}
		size, err := i.getSize.Call(ctx)
		if err != nil {
			return nil, errors.Trap(transcoder.GetResultSize, err)
		}
		results = []uint64{ptr[0], size[0]}
	}
	return i.module.decoder.DecodeResult(*bf.sig.Output, results, i.mem)
}

// Memory returns the instance's linear memory.
func (i *Instance) Memory() wasmbind.Memory {
	return i.mem
}

// Raw returns the underlying wazero module.
func (i *Instance) Raw() api.Module {
	return i.mod
}

// Close closes the instance. Buffers still pending are abandoned with the
// memory that holds them.
func (i *Instance) Close(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.mod == nil {
		return nil
	}
	i.module.runtime.forget(i.mod)
	err := i.mod.Close(ctx)
	i.mod = nil
	i.fns = nil
	return err
}
