package runtime

import (
	"context"
	"testing"

	"github.com/wippyai/wasmbind/idl"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/wasm"
)

var (
	i32x1 = []wasm.ValType{wasm.I32}
	i32x2 = []wasm.ValType{wasm.I32, wasm.I32}
	i32x3 = []wasm.ValType{wasm.I32, wasm.I32, wasm.I32}
	f64x1 = []wasm.ValType{wasm.F64}
)

// guest builds protocol modules: a bump allocator starting at 1024, a free
// that only counts calls, result registers and a counting release_objects.
type guest struct {
	m *wasm.Module

	alloc uint32

	heap, frees, releases, resPtr, resSize uint32
}

func newGuest(imports func(m *wasm.Module)) *guest {
	m := wasm.NewModule()
	if imports != nil {
		imports(m)
	}
	m.Memory(1)

	g := &guest{m: m}
	g.heap = m.Global(wasm.I32, 1024)
	g.frees = m.Global(wasm.I32, 0)
	g.releases = m.Global(wasm.I32, 0)
	g.resPtr = m.Global(wasm.I32, 0)
	g.resSize = m.Global(wasm.I32, 0)
	m.ExportGlobal("heap", g.heap)
	m.ExportGlobal("frees", g.frees)
	m.ExportGlobal("releases", g.releases)

	// ptr = (heap + align - 1) & -align; heap = ptr + size
	g.alloc = m.Func(i32x2, i32x1, i32x1, wasm.NewCode().
		GlobalGet(g.heap).LocalGet(1).I32Add().I32Const(1).I32Sub().
		I32Const(0).LocalGet(1).I32Sub().I32And().
		LocalTee(2).LocalGet(0).I32Add().GlobalSet(g.heap).
		LocalGet(2).
		Bytes())
	m.ExportFunc("alloc", g.alloc)

	m.ExportFunc("free", m.Func(i32x3, nil, nil, g.bump(g.frees).Bytes()))
	m.ExportFunc("get_result_ptr", m.Func(nil, i32x1, nil, wasm.NewCode().GlobalGet(g.resPtr).Bytes()))
	m.ExportFunc("get_result_size", m.Func(nil, i32x1, nil, wasm.NewCode().GlobalGet(g.resSize).Bytes()))
	m.ExportFunc("release_objects", m.Func(nil, nil, nil, g.bump(g.releases).Bytes()))
	return g
}

func (g *guest) bump(global uint32) *wasm.Code {
	return wasm.NewCode().GlobalGet(global).I32Const(1).I32Add().GlobalSet(global)
}

// setResult stores (ptr, size) from locals into the result registers.
func (g *guest) setResult(c *wasm.Code, ptrLocal, sizeLocal uint32) *wasm.Code {
	return c.LocalGet(ptrLocal).GlobalSet(g.resPtr).LocalGet(sizeLocal).GlobalSet(g.resSize)
}

func (g *guest) export(name string, params, results, locals []wasm.ValType, body *wasm.Code) {
	g.m.ExportFunc(name, g.m.Func(params, results, locals, body.Bytes()))
}

func (g *guest) encode() []byte {
	return g.m.Encode()
}

// counter reads one of the exported bookkeeping globals.
func counter(t *testing.T, inst *Instance, name string) uint32 {
	t.Helper()
	gl := inst.Raw().ExportedGlobal(name)
	if gl == nil {
		t.Fatalf("global %s not exported", name)
	}
	return uint32(gl.Get())
}

const calcSchema = `
[package]
name = "calc"

[[record]]
name = "point"
fields = [{ name = "x", type = "f64" }, { name = "y", type = "f64" }]

[[function]]
name = "add"
params = [{ name = "a", type = "i32" }, { name = "b", type = "i32" }]
result = "i32"

[[function]]
name = "echo"
params = [{ name = "s", type = "&string" }]
result = "string"

[[function]]
name = "pair"
params = [{ name = "s", type = "&string" }]
result = "list<string>"

[[function]]
name = "sum"
params = [{ name = "v", type = "&list<f64>" }]
result = "f64"

[[function]]
name = "make_point"
params = [{ name = "x", type = "f64" }, { name = "y", type = "f64" }]
result = "point"

[[function]]
name = "point_sum"
params = [{ name = "p", type = "&point" }]
result = "f64"

[[function]]
name = "consume"
params = [{ name = "s", type = "string" }]
result = "u32"

[[function]]
name = "boom"

[[function]]
name = "bad"
result = "string"
`

func parseBundle(t *testing.T, doc string) *schema.Bundle {
	t.Helper()
	d, err := idl.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d.Bundle
}

// calcGuest implements every function of calcSchema.
func calcGuest() *guest {
	g := newGuest(nil)

	g.export("add", i32x2, i32x1, nil, wasm.NewCode().LocalGet(0).LocalGet(1).I32Add())

	// echo copies the borrowed string into a fresh buffer.
	g.export("echo", i32x2, nil, i32x1, g.setResult(wasm.NewCode().
		LocalGet(1).I32Const(1).Call(g.alloc).LocalSet(2).
		LocalGet(2).LocalGet(0).LocalGet(1).MemoryCopy(), 2, 1))

	// pair returns a two-entry table pointing at the argument twice.
	g.m.ExportFunc("pair", g.m.Func(i32x2, nil, i32x1, wasm.NewCode().
		I32Const(16).I32Const(4).Call(g.alloc).LocalSet(2).
		LocalGet(2).LocalGet(0).I32Store(0).
		LocalGet(2).LocalGet(1).I32Store(4).
		LocalGet(2).LocalGet(0).I32Store(8).
		LocalGet(2).LocalGet(1).I32Store(12).
		LocalGet(2).GlobalSet(g.resPtr).
		I32Const(2).GlobalSet(g.resSize).
		Bytes()))

	// sum(ptr, n): locals i, acc
	g.export("sum", i32x2, f64x1, []wasm.ValType{wasm.I32, wasm.F64}, wasm.NewCode().
		Block().Loop().
		LocalGet(2).LocalGet(1).I32Eq().BrIf(1).
		LocalGet(3).
		LocalGet(0).LocalGet(2).I32Const(8).I32Mul().I32Add().F64Load(0).
		F64Add().LocalSet(3).
		LocalGet(2).I32Const(1).I32Add().LocalSet(2).
		Br(0).
		End().End().
		LocalGet(3))

	g.export("make_point", []wasm.ValType{wasm.F64, wasm.F64}, i32x1, i32x1, wasm.NewCode().
		I32Const(16).I32Const(8).Call(g.alloc).LocalSet(2).
		LocalGet(2).LocalGet(0).F64Store(0).
		LocalGet(2).LocalGet(1).F64Store(8).
		LocalGet(2))

	g.export("point_sum", i32x2, f64x1, nil, wasm.NewCode().
		LocalGet(0).F64Load(0).LocalGet(0).F64Load(8).F64Add())

	g.export("consume", i32x2, i32x1, nil, wasm.NewCode().LocalGet(1))

	g.export("boom", nil, nil, nil, wasm.NewCode().Unreachable())

	// bad announces a result far past the end of memory.
	g.export("bad", nil, nil, nil, wasm.NewCode().
		I32Const(-16).GlobalSet(g.resPtr).
		I32Const(64).GlobalSet(g.resSize))
	return g
}

func newTestRuntime(t *testing.T, cfg *Config) (context.Context, *Runtime) {
	t.Helper()
	ctx := context.Background()
	rt, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return ctx, rt
}
