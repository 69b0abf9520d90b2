package runtime

import (
	"context"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbind/callctx"
	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder"
)

// Module is a compiled module whose exports were checked against a bundle.
// It is safe for concurrent use; instances are not.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
	bundle   *schema.Bundle
	encoder  *transcoder.Encoder
	decoder  *transcoder.Decoder
	funcs    map[string]*boundFunc
}

type boundFunc struct {
	sig     *schema.FunctionSignature
	params  []api.ValueType
	results []api.ValueType
	mode    transcoder.ResultMode
}

var (
	i32      = api.ValueTypeI32
	noValues = []api.ValueType{}
	oneI32   = []api.ValueType{i32}
)

func newModule(r *Runtime, compiled wazero.CompiledModule, bundle *schema.Bundle) (*Module, error) {
	c := transcoder.NewCompiler(bundle.Records)
	m := &Module{
		runtime:  r,
		compiled: compiled,
		bundle:   bundle,
		encoder:  transcoder.NewEncoder(c),
		decoder:  transcoder.NewDecoder(c),
		funcs:    make(map[string]*boundFunc, len(bundle.Functions)),
	}

	exports := compiled.ExportedFunctions()
	var needAlloc, needRegisters, needRelease bool
	for _, f := range bundle.Functions {
		params, results, mode := transcoder.SignatureSlots(f)
		def, ok := exports[f.Name]
		if !ok {
			return nil, errors.NotFound(errors.PhaseRuntime, "exported function", f.Name)
		}
		if err := checkCoreSignature(f.Name, def, params, results); err != nil {
			return nil, err
		}
		for _, p := range f.Params {
			if !p.Type.Kind().IsScalar() {
				needAlloc = true
			}
		}
		switch mode {
		case transcoder.ResultRegisters:
			needRegisters, needRelease = true, true
		case transcoder.ResultPointer:
			needRelease = true
		}
		m.funcs[f.Name] = &boundFunc{sig: f, params: params, results: results, mode: mode}
	}

	cfg := &r.cfg
	required := []struct {
		name    string
		need    bool
		params  []api.ValueType
		results []api.ValueType
	}{
		{cfg.AllocExport, needAlloc, []api.ValueType{i32, i32}, oneI32},
		{cfg.FreeExport, false, []api.ValueType{i32, i32, i32}, noValues},
		{transcoder.GetResultPtr, needRegisters, noValues, oneI32},
		{transcoder.GetResultSize, needRegisters, noValues, oneI32},
		{transcoder.ReleaseObjects, needRelease, noValues, noValues},
	}
	for _, req := range required {
		def, ok := exports[req.name]
		if !ok {
			if req.need {
				return nil, errors.NotFound(errors.PhaseRuntime, "protocol export", req.name)
			}
			continue
		}
		if err := checkCoreSignature(req.name, def, req.params, req.results); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func checkCoreSignature(name string, def api.FunctionDefinition, params, results []api.ValueType) error {
	if equalTypes(def.ParamTypes(), params) && equalTypes(def.ResultTypes(), results) {
		return nil
	}
	return errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
		Path(name).
		Detail("core signature %s does not match declared %s",
			formatCore(def.ParamTypes(), def.ResultTypes()), formatCore(params, results)).
		Build()
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatCore(params, results []api.ValueType) string {
	names := func(ts []api.ValueType) string {
		s := make([]string, len(ts))
		for i, t := range ts {
			s[i] = api.ValueTypeName(t)
		}
		return "(" + strings.Join(s, ", ") + ")"
	}
	return names(params) + " -> " + names(results)
}

// Bundle returns the declarations the module was bound with.
func (m *Module) Bundle() *schema.Bundle {
	return m.bundle
}

// Close releases the compiled code. Instances stay usable until closed.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates an isolated instance. Extern namespaces the module
// imports must be defined on the runtime first.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	cfg := wazero.NewModuleConfig().WithName("").WithStartFunctions()
	mod, err := m.runtime.rt.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	alloc := newGuestAllocator(mod, &m.runtime.cfg)
	inst := &Instance{
		module:  m,
		mod:     mod,
		mem:     newMemory(mod.Memory()),
		alloc:   alloc,
		call:    callctx.New(alloc),
		fns:     make(map[string]api.Function, len(m.funcs)),
		getPtr:  mod.ExportedFunction(transcoder.GetResultPtr),
		getSize: mod.ExportedFunction(transcoder.GetResultSize),
		release: mod.ExportedFunction(transcoder.ReleaseObjects),
	}
	for name := range m.funcs {
		inst.fns[name] = mod.ExportedFunction(name)
	}
	Logger().Debug("instantiated", zap.Int("functions", len(inst.fns)))
	return inst, nil
}
