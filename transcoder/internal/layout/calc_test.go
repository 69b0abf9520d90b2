package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
)

func TestWidth(t *testing.T) {
	tests := []struct {
		typ  schema.Type
		want uint32
	}{
		{schema.Bool, 1},
		{schema.I8, 1},
		{schema.U8, 1},
		{schema.I16, 2},
		{schema.U16, 2},
		{schema.I32, 4},
		{schema.U32, 4},
		{schema.F32, 4},
		{schema.I64, 8},
		{schema.U64, 8},
		{schema.F64, 8},
		{schema.Record("point"), 4},
		{schema.String, 8},
		{schema.Vector(schema.U8), 8},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			if got := Width(tt.typ); got != tt.want {
				t.Errorf("Width = %d, want %d", got, tt.want)
			}
		})
	}
}

func newRegistry(t *testing.T, records ...*schema.RecordType) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	for _, r := range records {
		if err := reg.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func record(t *testing.T, name string, fields ...schema.Field) *schema.RecordType {
	t.Helper()
	rt, err := schema.NewRecordType(name, fields)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestCalculator_Record(t *testing.T) {
	reg := newRegistry(t,
		record(t, "greeting",
			schema.Field{Name: "a", Type: schema.I32},
			schema.Field{Name: "b", Type: schema.String}),
		record(t, "mixed",
			schema.Field{Name: "flag", Type: schema.Bool},
			schema.Field{Name: "n", Type: schema.U64},
			schema.Field{Name: "s", Type: schema.I16},
			schema.Field{Name: "g", Type: schema.Record("greeting")},
			schema.Field{Name: "xs", Type: schema.Vector(schema.F32)}),
		record(t, "node",
			schema.Field{Name: "value", Type: schema.I32},
			schema.Field{Name: "children", Type: schema.Vector(schema.Record("node"))}),
		record(t, "empty"),
	)
	c := NewCalculator(reg)

	tests := []struct {
		name    string
		size    uint32
		offsets []uint32
	}{
		{"greeting", 12, []uint32{0, 4}},
		{"mixed", 23, []uint32{0, 1, 9, 11, 15}},
		{"node", 12, []uint32{0, 4}},
		{"empty", 0, []uint32{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := c.Record(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size != tt.size {
				t.Errorf("Size = %d, want %d", info.Size, tt.size)
			}
			if diff := cmp.Diff(tt.offsets, info.Offsets); diff != "" {
				t.Errorf("Offsets (-want +got):\n%s", diff)
			}
		})
	}

	// cached
	again, _ := c.Size("mixed")
	if again != 23 {
		t.Errorf("cached Size = %d", again)
	}
}

func TestCalculator_MissingRecord(t *testing.T) {
	reg := newRegistry(t, record(t, "line",
		schema.Field{Name: "a", Type: schema.Record("point")}))
	c := NewCalculator(reg)

	if _, err := c.Record("line"); !errors.IsReference(err) {
		t.Errorf("expected reference error for dangling field, got %v", err)
	}
	if _, err := c.Size("circle"); !errors.IsReference(err) {
		t.Errorf("expected reference error for unknown record, got %v", err)
	}
}
