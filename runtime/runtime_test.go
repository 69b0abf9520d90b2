package runtime

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasmbind/embed"
	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/transcoder"
	"github.com/wippyai/wasmbind/wasm"
)

func TestConfig_Defaults(t *testing.T) {
	var nilCfg *Config
	c := nilCfg.withDefaults()
	if c.AllocExport != "alloc" || c.FreeExport != "free" {
		t.Errorf("defaults = %+v", c)
	}

	c = (&Config{AllocExport: "cabi_realloc", MemoryLimitPages: 4}).withDefaults()
	if c.AllocExport != "cabi_realloc" || c.FreeExport != "free" || c.MemoryLimitPages != 4 {
		t.Errorf("overrides lost: %+v", c)
	}
}

func TestInstance_Call(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	bundle := parseBundle(t, calcSchema)

	mod, err := rt.LoadWithBundle(ctx, calcGuest().encode(), bundle)
	if err != nil {
		t.Fatalf("LoadWithBundle: %v", err)
	}

	tests := []struct {
		name     string
		fn       string
		args     []any
		want     any
		frees    uint32
		releases uint32
	}{
		{name: "scalars", fn: "add", args: []any{int32(40), 2}, want: int32(42)},
		{name: "borrowed string", fn: "echo", args: []any{"héllo"}, want: "héllo", frees: 1, releases: 1},
		{name: "empty string", fn: "echo", args: []any{""}, want: "", releases: 1},
		{name: "string vector", fn: "pair", args: []any{"ab"}, want: []string{"ab", "ab"}, frees: 1, releases: 1},
		{name: "scalar vector", fn: "sum", args: []any{[]float64{1.5, 2.5, 4}}, want: 8.0, frees: 1},
		{name: "empty vector", fn: "sum", args: []any{[]float64{}}, want: 0.0},
		{name: "record result", fn: "make_point", args: []any{1.0, 2.0},
			want: transcoder.NewRecord("point", 1.0, 2.0), releases: 1},
		{name: "record argument", fn: "point_sum", args: []any{struct{ X, Y float64 }{3, 4}}, want: 7.0, frees: 1},
		{name: "owned string", fn: "consume", args: []any{"abc"}, want: uint32(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := mod.Instantiate(ctx)
			if err != nil {
				t.Fatalf("Instantiate: %v", err)
			}
			defer inst.Close(ctx)

			got, err := inst.Call(ctx, tt.fn, tt.args...)
			if err != nil {
				t.Fatalf("Call(%s): %v", tt.fn, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
			if n := counter(t, inst, "frees"); n != tt.frees {
				t.Errorf("frees = %d, want %d", n, tt.frees)
			}
			if n := counter(t, inst, "releases"); n != tt.releases {
				t.Errorf("releases = %d, want %d", n, tt.releases)
			}
		})
	}
}

func TestInstance_CallIsRepeatable(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	mod, err := rt.LoadWithBundle(ctx, calcGuest().encode(), parseBundle(t, calcSchema))
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	for i := 0; i < 3; i++ {
		got, err := inst.Call(ctx, "echo", "again")
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != "again" {
			t.Fatalf("call %d = %v", i, got)
		}
	}
	if n := counter(t, inst, "releases"); n != 3 {
		t.Errorf("releases = %d, want 3", n)
	}
}

func TestInstance_CallErrors(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	mod, err := rt.LoadWithBundle(ctx, calcGuest().encode(), parseBundle(t, calcSchema))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		fn       string
		args     []any
		kind     errors.Kind
		releases uint32
	}{
		{name: "unknown function", fn: "nope", kind: errors.KindNotFound},
		{name: "argument count", fn: "add", args: []any{1}, kind: errors.KindInvalidInput},
		{name: "argument type", fn: "echo", args: []any{42}, kind: errors.KindTypeMismatch},
		{name: "trap", fn: "boom", kind: errors.KindTrap},
		{name: "result out of bounds", fn: "bad", kind: errors.KindOutOfBounds, releases: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := mod.Instantiate(ctx)
			if err != nil {
				t.Fatal(err)
			}
			defer inst.Close(ctx)

			_, err = inst.Call(ctx, tt.fn, tt.args...)
			if !errors.HasKind(err, tt.kind) {
				t.Fatalf("err = %v, want kind %s", err, tt.kind)
			}
			if n := counter(t, inst, "releases"); n != tt.releases {
				t.Errorf("releases = %d, want %d", n, tt.releases)
			}
			// A failed call leaves nothing pending.
			if _, err := inst.Call(ctx, "add", 1, 2); err != nil {
				t.Errorf("follow-up call: %v", err)
			}
		})
	}
}

func TestInstance_ArgumentEncodingFailureFreesEarlierArgs(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	doc := calcSchema + `
[[function]]
name = "join"
params = [{ name = "a", type = "&string" }, { name = "b", type = "&list<f64>" }]
`
	g := calcGuest()
	g.export("join", []wasm.ValType{wasm.I32, wasm.I32, wasm.I32, wasm.I32}, nil, nil, wasm.NewCode())

	mod, err := rt.LoadWithBundle(ctx, g.encode(), parseBundle(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	_, err = inst.Call(ctx, "join", "first", []string{"not", "floats"})
	if !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Fatalf("err = %v", err)
	}
	if n := counter(t, inst, "frees"); n != 1 {
		t.Errorf("frees = %d, want the first argument freed", n)
	}
}

func TestInstance_ArgumentEncodingFailureFreesOwnedArgs(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	doc := calcSchema + `
[[function]]
name = "give"
params = [{ name = "a", type = "string" }, { name = "b", type = "list<f64>" }]
`
	g := calcGuest()
	g.export("give", []wasm.ValType{wasm.I32, wasm.I32, wasm.I32, wasm.I32}, nil, nil, wasm.NewCode())

	mod, err := rt.LoadWithBundle(ctx, g.encode(), parseBundle(t, doc))
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	_, err = inst.Call(ctx, "give", "first", []string{"not", "floats"})
	if !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Fatalf("err = %v", err)
	}
	if n := counter(t, inst, "frees"); n != 1 {
		t.Errorf("frees = %d, want the by-value string freed", n)
	}

	// The instance stays usable.
	if _, err := inst.Call(ctx, "add", 1, 2); err != nil {
		t.Errorf("add after failure: %v", err)
	}
}

func TestRuntime_LoadEmbedded(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	bundle := parseBundle(t, calcSchema)

	bin, err := embed.NewWriter(nil).Embed(calcGuest().encode(), bundle)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	mod, err := rt.Load(ctx, bin)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := mod.Bundle().Function("make_point"); !ok {
		t.Error("make_point missing from recovered bundle")
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	got, err := inst.Call(ctx, "point_sum", map[string]any{"x": 1.25, "y": 2.0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 3.25 {
		t.Errorf("point_sum = %v", got)
	}
}

func TestRuntime_LoadWithoutSections(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	_, err := rt.Load(ctx, calcGuest().encode())
	if !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestRuntime_LoadChecksExports(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)

	t.Run("core signature mismatch", func(t *testing.T) {
		doc := `
[[function]]
name = "add"
params = [{ name = "a", type = "i64" }, { name = "b", type = "i32" }]
result = "i32"
`
		_, err := rt.LoadWithBundle(ctx, calcGuest().encode(), parseBundle(t, doc))
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("missing function", func(t *testing.T) {
		doc := `
[[function]]
name = "missing"
`
		_, err := rt.LoadWithBundle(ctx, calcGuest().encode(), parseBundle(t, doc))
		if !errors.HasKind(err, errors.KindNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("missing release_objects", func(t *testing.T) {
		m := wasm.NewModule()
		m.Memory(1)
		m.ExportFunc("get_result_ptr", m.Func(nil, i32x1, nil, wasm.NewCode().I32Const(0).Bytes()))
		m.ExportFunc("get_result_size", m.Func(nil, i32x1, nil, wasm.NewCode().I32Const(0).Bytes()))
		m.ExportFunc("bad", m.Func(nil, nil, nil, wasm.NewCode().Bytes()))

		doc := `
[[function]]
name = "bad"
result = "string"
`
		_, err := rt.LoadWithBundle(ctx, m.Encode(), parseBundle(t, doc))
		if !errors.HasKind(err, errors.KindNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("scalar only module needs no protocol exports", func(t *testing.T) {
		m := wasm.NewModule()
		m.ExportFunc("add", m.Func(i32x2, i32x1, nil, wasm.NewCode().LocalGet(0).LocalGet(1).I32Add().Bytes()))
		doc := `
[[function]]
name = "add"
params = [{ name = "a", type = "i32" }, { name = "b", type = "i32" }]
result = "i32"
`
		if _, err := rt.LoadWithBundle(ctx, m.Encode(), parseBundle(t, doc)); err != nil {
			t.Errorf("LoadWithBundle: %v", err)
		}
	})

	t.Run("not a module", func(t *testing.T) {
		_, err := rt.LoadWithBundle(ctx, []byte("nope"), parseBundle(t, calcSchema))
		if !errors.HasKind(err, errors.KindInvalidData) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestInstance_ClosedCall(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	mod, err := rt.LoadWithBundle(ctx, calcGuest().encode(), parseBundle(t, calcSchema))
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := inst.Call(ctx, "add", 1, 2); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("err = %v", err)
	}
}

func TestMemory_Bounds(t *testing.T) {
	ctx, rt := newTestRuntime(t, nil)
	mod, err := rt.LoadWithBundle(ctx, calcGuest().encode(), parseBundle(t, calcSchema))
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	mem := inst.Memory().(*Memory)
	if mem.Size() != 65536 {
		t.Errorf("Size = %d", mem.Size())
	}
	if err := mem.WriteU32(100, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	if v, err := mem.ReadU32(100); err != nil || v != 0xdeadbeef {
		t.Errorf("ReadU32 = %#x, %v", v, err)
	}

	checks := map[string]error{
		"read":    func() error { _, err := mem.Read(65530, 8); return err }(),
		"write":   mem.Write(65535, []byte{1, 2}),
		"read u8": func() error { _, err := mem.ReadU8(65536); return err }(),
		"u64":     mem.WriteU64(65532, 1),
	}
	for name, err := range checks {
		if !errors.HasKind(err, errors.KindOutOfBounds) {
			t.Errorf("%s: err = %v", name, err)
		}
	}

	var zero Memory
	if _, err := zero.ReadU16(0); !errors.HasKind(err, errors.KindOutOfBounds) {
		t.Errorf("memoryless read: %v", err)
	}
}
