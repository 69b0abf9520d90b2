package transcoder

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasmbind/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	add := func(name string, fields ...schema.Field) {
		rt, err := schema.NewRecordType(name, fields)
		if err != nil {
			t.Fatal(err)
		}
		if err := reg.Add(rt); err != nil {
			t.Fatal(err)
		}
	}
	add("greeting",
		schema.Field{Name: "a", Type: schema.I32},
		schema.Field{Name: "b", Type: schema.String})
	add("point",
		schema.Field{Name: "x", Type: schema.F64},
		schema.Field{Name: "y", Type: schema.F64})
	add("shape",
		schema.Field{Name: "name", Type: schema.String},
		schema.Field{Name: "closed", Type: schema.Bool},
		schema.Field{Name: "origin", Type: schema.Record("point")},
		schema.Field{Name: "points", Type: schema.Vector(schema.Record("point"))},
		schema.Field{Name: "tags", Type: schema.Vector(schema.Vector(schema.String))},
		schema.Field{Name: "weight", Type: schema.I8},
		schema.Field{Name: "id", Type: schema.U64})
	add("node",
		schema.Field{Name: "value", Type: schema.I32},
		schema.Field{Name: "children", Type: schema.Vector(schema.Record("node"))})
	add("unit")
	return reg
}

func newCodec(t *testing.T) (*Encoder, *Decoder) {
	t.Helper()
	c := NewCompiler(testRegistry(t))
	return NewEncoder(c), NewDecoder(c)
}

func TestRoundTrip(t *testing.T) {
	enc, dec := newCodec(t)

	pt := func(x, y float64) Record { return NewRecord("point", x, y) }

	tests := []struct {
		value any
		typ   schema.Type
		name  string
	}{
		{true, schema.Bool, "bool true"},
		{false, schema.Bool, "bool false"},
		{int8(math.MinInt8), schema.I8, "i8 min"},
		{int16(-12345), schema.I16, "i16"},
		{int32(math.MinInt32), schema.I32, "i32 min"},
		{int64(math.MaxInt64), schema.I64, "i64 max"},
		{uint8(255), schema.U8, "u8 max"},
		{uint16(65535), schema.U16, "u16 max"},
		{uint32(math.MaxUint32), schema.U32, "u32 max"},
		{uint64(math.MaxUint64), schema.U64, "u64 max"},
		{float32(-1.5), schema.F32, "f32"},
		{math.Inf(-1), schema.F64, "f64 -inf"},
		{"", schema.String, "empty string"},
		{"héllo, 世界", schema.String, "utf8 string"},
		{[]int32{}, schema.Vector(schema.I32), "empty vector"},
		{[]bool{true, false, true}, schema.Vector(schema.Bool), "bool vector"},
		{[]byte{0, 1, 2, 255}, schema.Vector(schema.U8), "bytes"},
		{[]int16{-1, 2, -3}, schema.Vector(schema.I16), "i16 vector"},
		{[]uint64{0, math.MaxUint64}, schema.Vector(schema.U64), "u64 vector"},
		{[]float32{0.5, -2}, schema.Vector(schema.F32), "f32 vector"},
		{[]string{"a", "", "ccc"}, schema.Vector(schema.String), "string vector"},
		{[][]string{{"a", "bb"}, {"c"}}, schema.Vector(schema.Vector(schema.String)), "nested strings"},
		{[][]string{{}, {"x"}, {}}, schema.Vector(schema.Vector(schema.String)), "nested with empties"},
		{[][][]int64{{{1}, {}}, {{2, 3}}}, schema.Vector(schema.Vector(schema.Vector(schema.I64))), "three levels"},
		{NewRecord("greeting", int32(5), "hi"), schema.Record("greeting"), "record"},
		{NewRecord("unit"), schema.Record("unit"), "empty record"},
		{[]Record{pt(1, 2), pt(-3, 4.5)}, schema.Vector(schema.Record("point")), "record vector"},
		{
			NewRecord("shape",
				"triangle",
				true,
				pt(0, 0),
				[]Record{pt(0, 0), pt(1, 0), pt(0, 1)},
				[][]string{{"geo"}, {}, {"a", "b"}},
				int8(-7),
				uint64(1<<40),
			),
			schema.Record("shape"),
			"nested record",
		},
		{
			NewRecord("node", int32(1), []Record{
				NewRecord("node", int32(2), []Record{}),
				NewRecord("node", int32(3), []Record{NewRecord("node", int32(4), []Record{})}),
			}),
			schema.Record("node"),
			"recursive record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newTestMem(1 << 16)
			alloc := newTestAlloc(16)

			slots, err := enc.Lower(tt.typ, tt.value, mem, alloc, nil)
			if err != nil {
				t.Fatalf("Lower: %v", err)
			}
			if want := len(ArgSlots(tt.typ)); len(slots) != want {
				t.Fatalf("Lower produced %d slots, want %d", len(slots), want)
			}

			got, n, err := dec.Lift(tt.typ, slots, mem)
			if err != nil {
				t.Fatalf("Lift: %v", err)
			}
			if n != len(slots) {
				t.Errorf("Lift consumed %d slots, want %d", n, len(slots))
			}
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRoundTrip_Result(t *testing.T) {
	enc, dec := newCodec(t)
	mem := newTestMem(4096)
	alloc := newTestAlloc(8)

	rec := NewRecord("greeting", int32(-9), "result")
	slots, err := enc.LowerResult(schema.Record("greeting"), rec, mem, alloc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 {
		t.Fatalf("record result should be one pointer slot, got %d", len(slots))
	}
	got, err := dec.DecodeResult(schema.Record("greeting"), slots, mem)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	strSlots, err := enc.LowerResult(schema.String, "out", mem, alloc, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := dec.DecodeResult(schema.String, strSlots, mem)
	if err != nil || s != "out" {
		t.Errorf("DecodeResult(string) = %v, %v", s, err)
	}
}
