package embed

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/wasm"
)

func testBundle(t *testing.T) *schema.Bundle {
	t.Helper()
	b := schema.NewBundle("demo")

	point, err := schema.DeclareRecord("point", []schema.FieldDecl{
		{Name: "x", Type: "f64"},
		{Name: "y", Type: "f64"},
	}, schema.FieldRefsStrict)
	if err != nil {
		t.Fatal(err)
	}
	line, err := schema.DeclareRecord("line", []schema.FieldDecl{
		{Name: "label", Type: "string"},
		{Name: "points", Type: "list<point>"},
	}, schema.FieldRefsStrict)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range []*schema.RecordType{point, line} {
		if err := b.Records.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	funcs := []struct {
		name    string
		params  []schema.ParamDecl
		outputs []string
	}{
		{"greet", []schema.ParamDecl{{Name: "name", Type: "&string"}}, []string{"string"}},
		{"length", []schema.ParamDecl{{Name: "l", Type: "&line"}}, []string{"f64"}},
		{"split-words", []schema.ParamDecl{{Name: "s", Type: "string"}}, []string{"list<string>"}},
		{"reset", nil, nil},
	}
	for _, f := range funcs {
		sig, err := schema.DeclareFunction(f.name, f.params, f.outputs, schema.BoundaryExport)
		if err != nil {
			t.Fatal(err)
		}
		if err := b.AddFunction(sig); err != nil {
			t.Fatal(err)
		}
	}

	logSig, err := schema.DeclareFunction("log", []schema.ParamDecl{{Name: "msg", Type: "list<list<&string>>"}}, nil, schema.BoundaryImport)
	if err != nil {
		t.Fatal(err)
	}
	ext, err := schema.NewExternModule("host:io/log", schema.Import{Signature: logSig, LinkName: "host_log"})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddExtern(ext); err != nil {
		t.Fatal(err)
	}
	return b
}

func emptyModule() []byte {
	m := wasm.NewModule()
	m.Memory(1)
	return m.Encode()
}

func signatures(b *schema.Bundle) []string {
	var out []string
	for _, r := range b.Records.Records() {
		out = append(out, schema.Record(r.Name).String())
		for _, f := range r.Fields {
			out = append(out, "  "+f.Name+": "+f.Style.String()+f.Type.String())
		}
	}
	for _, f := range b.Functions {
		out = append(out, f.String())
	}
	for _, e := range b.Externs {
		for _, imp := range e.Imports {
			out = append(out, e.Namespace+"#"+imp.Symbol()+" "+imp.Signature.String())
		}
	}
	return out
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"greet":       "greet",
		"split-words": "split_words",
		"host:io/log": "host_io_log",
		"Point_3D":    "Point_3D",
		"caf\u00e9":   "caf__",
		"":            "",
	}
	for in, want := range tests {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SectionName("", KindFunction, "split-words"); got != "wasmbind.fn.split_words" {
		t.Errorf("SectionName = %q", got)
	}
}

func TestEmbedExtract_RoundTrip(t *testing.T) {
	b := testBundle(t)
	out, err := NewWriter(nil).Embed(emptyModule(), b)
	if err != nil {
		t.Fatal(err)
	}

	customs, err := wasm.CustomSections(out)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, c := range customs {
		names = append(names, c.Name)
	}
	wantNames := []string{
		"wasmbind.rec.point",
		"wasmbind.rec.line",
		"wasmbind.fn.greet",
		"wasmbind.fn.length",
		"wasmbind.fn.split_words",
		"wasmbind.fn.reset",
		"wasmbind.ext.host_io_log",
	}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("section names (-want +got):\n%s", diff)
	}

	got, err := NewReader(nil).Extract(out)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(signatures(b), signatures(got)); diff != "" {
		t.Errorf("bundle (-want +got):\n%s", diff)
	}
	ext, ok := got.Extern("host:io/log")
	if !ok {
		t.Fatal("extern missing")
	}
	if imp, ok := ext.Lookup("host_log"); !ok || imp.Signature.Name != "log" {
		t.Errorf("link name lost: %+v", ext.Imports)
	}
}

func TestEmbed_Idempotent(t *testing.T) {
	w := NewWriter(nil)
	once, err := w.Embed(emptyModule(), testBundle(t))
	if err != nil {
		t.Fatal(err)
	}
	twice, err := w.Embed(once, testBundle(t))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(once, twice) {
		t.Error("embedding twice changed the module")
	}
}

func TestEmbed_KeepsForeignSections(t *testing.T) {
	bin := wasm.AppendCustomSection(emptyModule(), "producers", []byte("x"))
	out, err := NewWriter(nil).Embed(bin, testBundle(t))
	if err != nil {
		t.Fatal(err)
	}
	customs, _ := wasm.CustomSections(out)
	if customs[0].Name != "producers" {
		t.Errorf("first section = %q", customs[0].Name)
	}
}

func TestCustomPrefixAndCodec(t *testing.T) {
	opts := &Options{Prefix: "acme.", Codec: jsonCodec{}}
	out, err := NewWriter(opts).Embed(emptyModule(), testBundle(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(nil).Extract(out); !errors.HasKind(err, errors.KindNotFound) {
		t.Errorf("default reader should not see acme sections, got %v", err)
	}
	got, err := NewReader(opts).Extract(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Functions) != 4 {
		t.Errorf("functions = %d", len(got.Functions))
	}
}

func TestExtract_Rejects(t *testing.T) {
	codec := MsgpackCodec{}
	marshal := func(v any) []byte {
		data, err := codec.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	tests := []struct {
		name    string
		section string
		data    []byte
		kind    errors.Kind
	}{
		{
			name:    "future version",
			section: "wasmbind.fn.f",
			data:    marshal(functionDoc{Version: 2, Name: "f"}),
			kind:    errors.KindUnsupported,
		},
		{
			name:    "name mismatch",
			section: "wasmbind.fn.f",
			data:    marshal(functionDoc{Version: FormatVersion, Name: "g"}),
			kind:    errors.KindInvalidData,
		},
		{
			name:    "garbage payload",
			section: "wasmbind.rec.r",
			data:    []byte{0xc1},
			kind:    errors.KindInvalidData,
		},
		{
			name:    "dangling record",
			section: "wasmbind.fn.f",
			data: marshal(functionDoc{Version: FormatVersion, Name: "f", Params: []paramDoc{
				{Name: "p", Type: "&ghost"},
			}}),
			kind: errors.KindReference,
		},
		{
			name:    "malformed result",
			section: "wasmbind.fn.f",
			data:    marshal(functionDoc{Version: FormatVersion, Name: "f", Result: "u8, u8"}),
			kind:    errors.KindSchema,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := wasm.AppendCustomSection(emptyModule(), tt.section, tt.data)
			_, err := NewReader(nil).Extract(bin)
			if !errors.HasKind(err, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestWriter_RejectsCollidingNames(t *testing.T) {
	b := schema.NewBundle("")
	for _, name := range []string{"a-b", "a_b"} {
		sig, err := schema.NewFunctionSignature(name, nil)
		if err != nil {
			t.Fatal(err)
		}
		if err := b.AddFunction(sig); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := NewWriter(nil).Sections(b); !errors.HasKind(err, errors.KindDuplicate) {
		t.Errorf("err = %v", err)
	}
}

func TestWriter_ValidatesBundle(t *testing.T) {
	b := schema.NewBundle("")
	sig, err := schema.DeclareFunction("f", []schema.ParamDecl{{Name: "p", Type: "ghost"}}, nil, schema.BoundaryExport)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddFunction(sig); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWriter(nil).Embed(emptyModule(), b); !errors.IsReference(err) {
		t.Errorf("err = %v", err)
	}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
