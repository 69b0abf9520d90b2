package runtime

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbind/embed"
	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
)

// Runtime owns a wazero runtime plus the extern namespaces defined on it.
// It is safe for concurrent use.
type Runtime struct {
	rt    wazero.Runtime
	cfg   Config
	hosts map[string]*hostModule
	mu    sync.Mutex
}

func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	c := cfg.withDefaults()

	rc := wazero.NewRuntimeConfig().WithCustomSections(true)
	if c.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	if c.CloseOnContextDone {
		rc = rc.WithCloseOnContextDone(true)
	}

	return &Runtime{
		rt:    wazero.NewRuntimeWithConfig(ctx, rc),
		cfg:   c,
		hosts: make(map[string]*hostModule),
	}, nil
}

// Close releases all runtime resources, including every instance.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Load compiles bin and recovers its bundle from the embedded schema
// sections.
func (r *Runtime) Load(ctx context.Context, bin []byte) (*Module, error) {
	bundle, err := embed.NewReader(r.cfg.Embed).Extract(bin)
	if err != nil {
		return nil, err
	}
	return r.LoadWithBundle(ctx, bin, bundle)
}

// LoadWithBundle compiles bin and binds the functions of bundle to its
// exports, ignoring any embedded sections.
func (r *Runtime) LoadWithBundle(ctx context.Context, bin []byte, bundle *schema.Bundle) (*Module, error) {
	if bundle == nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "nil bundle")
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	compiled, err := r.rt.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Detail("compile module").
			Cause(err).
			Build()
	}

	m, err := newModule(r, compiled, bundle)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}
	Logger().Debug("module loaded",
		zap.String("package", bundle.Package),
		zap.Int("functions", len(m.funcs)))
	return m, nil
}

// forget drops the per-caller state every extern namespace holds for mod.
func (r *Runtime) forget(mod api.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.hosts {
		h.forget(mod)
	}
}
