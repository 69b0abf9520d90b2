package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbind/callctx"
	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder"
)

// hostModule serves one extern namespace. Results are tracked per calling
// instance because each caller releases through its own allocator.
type hostModule struct {
	runtime   *Runtime
	namespace string
	encoder   *transcoder.Encoder
	decoder   *transcoder.Decoder
	callers   map[api.Module]*caller
	mu        sync.Mutex
}

type caller struct {
	cc    *callctx.Context
	alloc *guestAllocator
}

type hostFunc struct {
	host  *hostModule
	sig   *schema.FunctionSignature
	impl  *goFunc
	slots int
	mode  transcoder.ResultMode
}

var reservedSymbols = map[string]bool{
	transcoder.GetResultPtr:   true,
	transcoder.GetResultSize:  true,
	transcoder.ReleaseObjects: true,
}

// DefineExtern implements ext with Go functions keyed by link symbol or,
// failing that, by declared name. records resolves record types used by
// the imports. Modules importing the namespace must be instantiated after
// this returns.
func (r *Runtime) DefineExtern(ctx context.Context, ext *schema.ExternModule, records *schema.Registry, impls map[string]any) error {
	if ext == nil {
		return errors.InvalidInput(errors.PhaseRuntime, "nil extern module")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hosts[ext.Namespace]; ok {
		return errors.Duplicate(errors.PhaseRuntime, "extern namespace", ext.Namespace)
	}

	c := transcoder.NewCompiler(records)
	h := &hostModule{
		runtime:   r,
		namespace: ext.Namespace,
		encoder:   transcoder.NewEncoder(c),
		decoder:   transcoder.NewDecoder(c),
		callers:   make(map[api.Module]*caller),
	}

	used := make(map[string]bool, len(impls))
	builder := r.rt.NewHostModuleBuilder(ext.Namespace)
	for _, imp := range ext.Imports {
		sym := imp.Symbol()
		if reservedSymbols[sym] {
			return errors.Duplicate(errors.PhaseRuntime, "import", ext.Namespace+"#"+sym)
		}
		if err := resolveSignature(records, ext.Namespace, imp.Signature); err != nil {
			return err
		}
		key := sym
		impl, ok := impls[key]
		if !ok {
			key = imp.Signature.Name
			impl, ok = impls[key]
		}
		if !ok {
			return errors.NotFound(errors.PhaseRuntime, "implementation", ext.Namespace+"#"+sym)
		}
		used[key] = true

		g, err := newGoFunc(imp.Signature, impl)
		if err != nil {
			return err
		}
		params, results, mode := transcoder.SignatureSlots(imp.Signature)
		hf := &hostFunc{host: h, sig: imp.Signature, impl: g, slots: len(params), mode: mode}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(hf.call), params, results).
			WithName(sym).
			Export(sym)
	}
	for key := range impls {
		if !used[key] {
			return errors.InvalidInput(errors.PhaseRuntime, "implementation "+key+" matches no import of "+ext.Namespace)
		}
	}

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.getResultPtr), noValues, oneI32).
		Export(transcoder.GetResultPtr)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.getResultSize), noValues, oneI32).
		Export(transcoder.GetResultSize)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.releaseObjects), noValues, noValues).
		Export(transcoder.ReleaseObjects)

	if _, err := builder.Instantiate(ctx); err != nil {
		return errors.Instantiation(err)
	}
	r.hosts[ext.Namespace] = h
	Logger().Debug("extern defined",
		zap.String("namespace", ext.Namespace),
		zap.Int("imports", len(ext.Imports)))
	return nil
}

func resolveSignature(records *schema.Registry, namespace string, sig *schema.FunctionSignature) error {
	for _, p := range sig.Params {
		if err := records.Resolve(p.Type, namespace, sig.Name, p.Name); err != nil {
			return err
		}
	}
	if sig.Output != nil {
		return records.Resolve(*sig.Output, namespace, sig.Name, "result")
	}
	return nil
}

func (h *hostModule) caller(ctx context.Context, mod api.Module) *caller {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.callers[mod]
	if !ok {
		alloc := newGuestAllocator(mod, &h.runtime.cfg)
		c = &caller{cc: callctx.New(alloc), alloc: alloc}
		h.callers[mod] = c
	}
	c.alloc.setContext(ctx)
	return c
}

func (h *hostModule) forget(mod api.Module) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.callers, mod)
}

func (h *hostModule) getResultPtr(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeU32(h.caller(ctx, mod).cc.ResultPtr())
}

func (h *hostModule) getResultSize(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = api.EncodeU32(h.caller(ctx, mod).cc.ResultSize())
}

func (h *hostModule) releaseObjects(ctx context.Context, mod api.Module, _ []uint64) {
	if err := h.caller(ctx, mod).cc.ReleaseAll(); err != nil {
		Logger().Warn("release failed", zap.String("namespace", h.namespace), zap.Error(err))
	}
}

// call runs inside the guest's call. Errors abort the guest call by
// panicking; wazero returns them wrapped to whoever called the guest.
func (f *hostFunc) call(ctx context.Context, mod api.Module, stack []uint64) {
	c := f.host.caller(ctx, mod)
	if f.mode == transcoder.ResultPointer || f.mode == transcoder.ResultRegisters {
		if err := c.cc.Begin(); err != nil {
			panic(err)
		}
	}

	mem := newMemory(mod.Memory())
	args, err := f.host.decoder.DecodeParams(f.sig, stack[:f.slots], mem)
	if err != nil {
		panic(err)
	}
	if err := f.freeOwnedArgs(stack[:f.slots], mem, c.alloc); err != nil {
		panic(err)
	}

	out, err := f.impl.invoke(ctx, args)
	if err != nil {
		panic(errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
			Path(f.host.namespace, f.sig.Name).
			Detail("host function failed").
			Cause(err).
			Build())
	}

	switch f.mode {
	case transcoder.ResultDirect:
		slots, err := f.host.encoder.LowerResult(*f.sig.Output, out, mem, nil, nil)
		if err != nil {
			panic(err)
		}
		stack[0] = slots[0]
	case transcoder.ResultPointer:
		slots, err := f.host.encoder.LowerResult(*f.sig.Output, out, mem, c.alloc, c.cc)
		if err != nil {
			panic(multierr.Append(err, c.cc.ReleaseAll()))
		}
		c.cc.SetResultPtr(api.DecodeU32(slots[0]))
		stack[0] = slots[0]
	case transcoder.ResultRegisters:
		slots, err := f.host.encoder.LowerResult(*f.sig.Output, out, mem, c.alloc, c.cc)
		if err != nil {
			panic(multierr.Append(err, c.cc.ReleaseAll()))
		}
		c.cc.SetResultPtr(api.DecodeU32(slots[0]))
		c.cc.SetResultSize(api.DecodeU32(slots[1]))
	}
}

// freeOwnedArgs frees every buffer of a by-value argument once it has been
// lifted; ownership passed to this side with the call.
func (f *hostFunc) freeOwnedArgs(flat []uint64, mem *Memory, alloc *guestAllocator) error {
	pos := 0
	for _, p := range f.sig.Params {
		n := len(transcoder.ArgSlots(p.Type))
		if !p.Style.Borrowed() && !p.Type.Kind().IsScalar() {
			bufs, _, err := f.host.decoder.Buffers(p.Type, flat[pos:], mem)
			if err != nil {
				return err
			}
			for _, b := range bufs {
				alloc.Free(b.Ptr, b.Size, b.Align)
			}
		}
		pos += n
	}
	return nil
}
