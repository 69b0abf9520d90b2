package gen

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/wippyai/wasmbind/embed"
	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/wasm"
)

const (
	pkgContext    = "context"
	pkgFmt        = "fmt"
	pkgEmbed      = "github.com/wippyai/wasmbind/embed"
	pkgErrors     = "github.com/wippyai/wasmbind/errors"
	pkgRuntime    = "github.com/wippyai/wasmbind/runtime"
	pkgSchema     = "github.com/wippyai/wasmbind/schema"
	pkgTranscoder = "github.com/wippyai/wasmbind/transcoder"
)

// Options configures Generate. A nil *Options means defaults.
type Options struct {
	// Package is the Go package name of the output. Default: the bundle
	// package reduced to lower-case letters and digits, or "bindings".
	Package string

	// SectionPrefix is the prefix of the embedded schema sections.
	// Default: embed.DefaultPrefix.
	SectionPrefix string
}

type generator struct {
	bundle  *schema.Bundle
	prefix  string
	file    *jen.File
	lifters map[string]bool
	// idents maps every top-level Go identifier to the declaration it
	// was derived from.
	idents map[string]string
}

// Generate renders Go bindings for bundle: one struct per record, a Client
// with a typed method per exported function, a host interface plus
// Define function per extern namespace, and the schema itself.
func Generate(bundle *schema.Bundle, opts *Options) ([]byte, error) {
	if bundle == nil {
		return nil, errors.InvalidInput(errors.PhaseCompile, "nil bundle")
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Package == "" {
		o.Package = packageName(bundle.Package)
	}

	g := &generator{
		bundle:  bundle,
		prefix:  o.SectionPrefix,
		file:    jen.NewFile(o.Package),
		lifters: make(map[string]bool),
		idents:  make(map[string]string),
	}
	g.file.HeaderComment("Code generated by wasmbind gen. DO NOT EDIT.")
	for _, id := range []string{"Schema", "Bundle", "Client", "NewClient", "liftError"} {
		g.idents[id] = "generated"
	}

	if err := g.schema(); err != nil {
		return nil, err
	}
	for _, rec := range bundle.Records.Records() {
		if err := g.record(rec); err != nil {
			return nil, err
		}
	}
	if err := g.client(); err != nil {
		return nil, err
	}
	for _, ext := range bundle.Externs {
		if err := g.extern(ext); err != nil {
			return nil, err
		}
	}
	g.liftError()

	var buf bytes.Buffer
	if err := g.file.Render(&buf); err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidData, err, "render bindings")
	}
	return buf.Bytes(), nil
}

func packageName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		return "bindings"
	}
	return out
}

func (g *generator) claim(ident, decl string) error {
	if prev, ok := g.idents[ident]; ok {
		return errors.New(errors.PhaseCompile, errors.KindDuplicate).
			Path(decl).
			Detail("Go name %s already used by %s", ident, prev).
			Build()
	}
	g.idents[ident] = decl
	return nil
}

// schema emits Schema, an empty module holding the schema sections, and
// Bundle, which decodes it.
func (g *generator) schema() error {
	sections, err := embed.NewWriter(&embed.Options{Prefix: g.prefix}).Sections(g.bundle)
	if err != nil {
		return err
	}
	m := wasm.NewModule()
	for _, s := range sections {
		m.Custom(s.Name, s.Data)
	}

	g.file.Line()
	g.file.Comment("Schema is an empty module carrying the embedded declarations.")
	g.file.Var().Id("Schema").Op("=").Index().Byte().Call(jen.Lit(string(m.Encode())))

	var readerOpts jen.Code = jen.Nil()
	if g.prefix != "" {
		readerOpts = jen.Op("&").Qual(pkgEmbed, "Options").Values(jen.Dict{
			jen.Id("Prefix"): jen.Lit(g.prefix),
		})
	}
	g.file.Line()
	g.file.Comment("Bundle decodes the declarations held in Schema.")
	g.file.Func().Id("Bundle").Params().Params(jen.Op("*").Qual(pkgSchema, "Bundle"), jen.Error()).Block(
		jen.Return(jen.Qual(pkgEmbed, "NewReader").Call(readerOpts).Dot("Extract").Call(jen.Id("Schema"))),
	)
	return nil
}

func (g *generator) record(rec *schema.RecordType) error {
	name := exportName(rec.Name)
	if err := g.claim(name, "record "+rec.Name); err != nil {
		return err
	}

	fields := make([]jen.Code, len(rec.Fields))
	values := []jen.Code{jen.Lit(rec.Name)}
	seen := make(map[string]bool, len(rec.Fields))
	for i, f := range rec.Fields {
		label := rec.FieldLabel(i)
		fname := exportName(label)
		if seen[fname] {
			return errors.Duplicate(errors.PhaseCompile, "Go field", rec.Name+"."+fname)
		}
		seen[fname] = true

		fields[i] = jen.Id(fname).Add(g.goType(f.Type)).Tag(map[string]string{"wasm": label})
		v := jen.Id("v").Dot(fname)
		if f.Type.Kind() == schema.KindRecord {
			v = v.Dot("toRecord").Call()
		}
		values = append(values, v)
	}

	g.file.Line()
	g.file.Commentf("%s is the %s record.", name, rec.Name)
	g.file.Type().Id(name).Struct(fields...)

	g.file.Line()
	g.file.Func().Params(jen.Id("v").Id(name)).Id("toRecord").Params().Qual(pkgTranscoder, "Record").Block(
		jen.Return(jen.Qual(pkgTranscoder, "NewRecord").Call(values...)),
	)
	g.lifter(rec.Type())
	return nil
}

// goType is the Go type bindings use for t.
func (g *generator) goType(t schema.Type) *jen.Statement {
	switch t.Kind() {
	case schema.KindBool:
		return jen.Bool()
	case schema.KindI8:
		return jen.Int8()
	case schema.KindI16:
		return jen.Int16()
	case schema.KindI32:
		return jen.Int32()
	case schema.KindI64:
		return jen.Int64()
	case schema.KindU8:
		return jen.Uint8()
	case schema.KindU16:
		return jen.Uint16()
	case schema.KindU32:
		return jen.Uint32()
	case schema.KindU64:
		return jen.Uint64()
	case schema.KindF32:
		return jen.Float32()
	case schema.KindF64:
		return jen.Float64()
	case schema.KindString:
		return jen.String()
	case schema.KindVector:
		elem, _ := t.Elem()
		return jen.Index().Add(g.goType(elem))
	default:
		return jen.Id(exportName(t.RecordName()))
	}
}

// liftedType is the Go type the decoder produces for t.
func (g *generator) liftedType(t schema.Type) *jen.Statement {
	switch t.Kind() {
	case schema.KindRecord:
		return jen.Qual(pkgTranscoder, "Record")
	case schema.KindVector:
		elem, _ := t.Elem()
		return jen.Index().Add(g.liftedType(elem))
	default:
		return g.goType(t)
	}
}

// needsLift reports whether a decoded t differs from its binding type.
func needsLift(t schema.Type) bool {
	return t.Leaf().Kind() == schema.KindRecord
}

func typeIdent(t schema.Type) string {
	switch t.Kind() {
	case schema.KindVector:
		elem, _ := t.Elem()
		return "ListOf" + typeIdent(elem)
	case schema.KindRecord:
		return exportName(t.RecordName())
	default:
		return exportName(t.Kind().String())
	}
}

// lifter emits, once, a function converting a decoded t into its binding
// type and returns its name.
func (g *generator) lifter(t schema.Type) string {
	name := "lift" + typeIdent(t)
	if g.lifters[name] {
		return name
	}
	g.lifters[name] = true

	if t.Kind() == schema.KindRecord {
		g.recordLifter(name, t)
	} else {
		g.vectorLifter(name, t)
	}
	return name
}

func (g *generator) recordLifter(name string, t schema.Type) {
	rec, _ := g.bundle.Records.Lookup(t.RecordName())
	out := jen.Id("out")

	body := []jen.Code{
		jen.List(jen.Id("r"), jen.Id("ok")).Op(":=").Id("v").Assert(jen.Qual(pkgTranscoder, "Record")),
		jen.If(jen.Op("!").Id("ok").Op("||").Len(jen.Id("r").Dot("Fields")).Op("!=").Lit(len(rec.Fields))).Block(
			jen.Return(out, jen.Id("liftError").Call(jen.Lit(rec.Name), jen.Id("v"))),
		),
	}
	for i, f := range rec.Fields {
		label := rec.FieldLabel(i)
		field := jen.Id("out").Dot(exportName(label))
		src := jen.Id("r").Dot("Fields").Index(jen.Lit(i))
		if needsLift(f.Type) {
			body = append(body, jen.If(
				jen.List(field, jen.Err()).Op("=").Id(g.lifter(f.Type)).Call(src),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(out, jen.Err())))
			continue
		}
		body = append(body, jen.If(
			jen.List(field, jen.Id("ok")).Op("=").Add(src).Assert(g.goType(f.Type)),
			jen.Op("!").Id("ok"),
		).Block(jen.Return(out, jen.Id("liftError").Call(
			jen.Lit(rec.Name+"."+label),
			jen.Id("r").Dot("Fields").Index(jen.Lit(i)),
		))))
	}
	body = append(body, jen.Return(out, jen.Nil()))

	g.file.Line()
	g.file.Func().Id(name).Params(jen.Id("v").Any()).
		Params(jen.Id("out").Add(g.goType(t)), jen.Err().Error()).
		Block(body...)
}

func (g *generator) vectorLifter(name string, t schema.Type) {
	elem, _ := t.Elem()
	g.file.Line()
	g.file.Func().Id(name).Params(jen.Id("v").Any()).Params(g.goType(t), jen.Error()).Block(
		jen.List(jen.Id("items"), jen.Id("ok")).Op(":=").Id("v").Assert(g.liftedType(t)),
		jen.If(jen.Op("!").Id("ok")).Block(
			jen.Return(jen.Nil(), jen.Id("liftError").Call(jen.Lit(t.String()), jen.Id("v"))),
		),
		jen.Id("out").Op(":=").Make(g.goType(t), jen.Len(jen.Id("items"))),
		jen.For(jen.List(jen.Id("i"), jen.Id("item")).Op(":=").Range().Id("items")).Block(
			jen.Var().Err().Error(),
			jen.If(
				jen.List(jen.Id("out").Index(jen.Id("i")), jen.Err()).Op("=").Id(g.lifter(elem)).Call(jen.Id("item")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Nil(), jen.Err())),
		),
		jen.Return(jen.Id("out"), jen.Nil()),
	)
}

func (g *generator) liftError() {
	g.file.Line()
	g.file.Func().Id("liftError").Params(jen.Id("what").String(), jen.Id("v").Any()).Error().Block(
		jen.Return(jen.Qual(pkgErrors, "New").Call(
			jen.Qual(pkgErrors, "PhaseDecode"), jen.Qual(pkgErrors, "KindTypeMismatch"),
		).Dot("Path").Call(jen.Id("what")).
			Dot("GoType").Call(jen.Qual(pkgFmt, "Sprintf").Call(jen.Lit("%T"), jen.Id("v"))).
			Dot("Build").Call()),
	)
}

// params returns the parameter list of a generated function and the
// expressions that pass them on to the runtime.
func (g *generator) params(sig *schema.FunctionSignature) (decl, args []jen.Code) {
	decl = []jen.Code{jen.Id("ctx").Qual(pkgContext, "Context")}
	for i, p := range sig.Params {
		name := paramName(p.Name, i)
		decl = append(decl, jen.Id(name).Add(g.goType(p.Type)))
		arg := jen.Id(name)
		if p.Type.Kind() == schema.KindRecord {
			arg = arg.Dot("toRecord").Call()
		}
		args = append(args, arg)
	}
	return decl, args
}

func (g *generator) client() error {
	g.file.Line()
	g.file.Comment("Client calls the exports of a module instance.")
	g.file.Type().Id("Client").Struct(jen.Id("inst").Op("*").Qual(pkgRuntime, "Instance"))

	g.file.Line()
	g.file.Func().Id("NewClient").Params(jen.Id("inst").Op("*").Qual(pkgRuntime, "Instance")).Op("*").Id("Client").Block(
		jen.Return(jen.Op("&").Id("Client").Values(jen.Dict{jen.Id("inst"): jen.Id("inst")})),
	)
	g.file.Line()
	g.file.Comment("Instance returns the wrapped instance.")
	g.file.Func().Params(jen.Id("c").Op("*").Id("Client")).Id("Instance").Params().Op("*").Qual(pkgRuntime, "Instance").Block(
		jen.Return(jen.Id("c").Dot("inst")),
	)

	methods := map[string]string{"Instance": "generated"}
	for _, f := range g.bundle.Functions {
		name := exportName(f.Name)
		if prev, ok := methods[name]; ok {
			return errors.New(errors.PhaseCompile, errors.KindDuplicate).
				Path(f.Name).
				Detail("method %s already used by %s", name, prev).
				Build()
		}
		methods[name] = f.Name
		g.method(name, f)
	}
	return nil
}

func (g *generator) method(name string, f *schema.FunctionSignature) {
	decl, args := g.params(f)
	call := jen.Id("c").Dot("inst").Dot("Call").Call(append([]jen.Code{jen.Id("ctx"), jen.Lit(f.Name)}, args...)...)
	recv := jen.Id("c").Op("*").Id("Client")

	if f.Output == nil {
		g.file.Line()
		g.file.Commentf("%s calls %s.", name, f.String())
		g.file.Func().Params(recv).Id(name).Params(decl...).Error().Block(
			jen.List(jen.Id("_"), jen.Err()).Op(":=").Add(call),
			jen.Return(jen.Err()),
		)
		return
	}

	t := *f.Output
	body := []jen.Code{
		jen.List(jen.Id("res"), jen.Err()).Op(":=").Add(call),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Id("out"), jen.Err())),
	}
	if needsLift(t) {
		body = append(body, jen.Return(jen.Id(g.lifter(t)).Call(jen.Id("res"))))
	} else {
		body = append(body,
			jen.List(jen.Id("v"), jen.Id("ok")).Op(":=").Id("res").Assert(g.goType(t)),
			jen.If(jen.Op("!").Id("ok")).Block(
				jen.Return(jen.Id("out"), jen.Id("liftError").Call(jen.Lit(f.Name), jen.Id("res"))),
			),
			jen.Return(jen.Id("v"), jen.Nil()),
		)
	}
	g.file.Line()
	g.file.Commentf("%s calls %s.", name, f.String())
	g.file.Func().Params(recv).Id(name).Params(decl...).
		Params(jen.Id("out").Add(g.goType(t)), jen.Err().Error()).
		Block(body...)
}

// extern emits <Ns>Host, the interface a Go implementation of the
// namespace satisfies, and Define<Ns>, which registers one on a runtime.
func (g *generator) extern(ext *schema.ExternModule) error {
	ns := exportName(ext.Namespace)
	host, define := ns+"Host", "Define"+ns
	if err := g.claim(host, "extern "+ext.Namespace); err != nil {
		return err
	}
	if err := g.claim(define, "extern "+ext.Namespace); err != nil {
		return err
	}

	var (
		methods []jen.Code
		impls   = jen.Dict{}
		seen    = make(map[string]bool, len(ext.Imports))
	)
	for _, imp := range ext.Imports {
		sig := imp.Signature
		name := exportName(sig.Name)
		if seen[name] {
			return errors.Duplicate(errors.PhaseCompile, "Go method", ext.Namespace+"."+name)
		}
		seen[name] = true

		decl, _ := g.params(sig)
		m := jen.Id(name).Params(decl...)
		if sig.Output != nil {
			m = m.Params(g.goType(*sig.Output), jen.Error())
		} else {
			m = m.Error()
		}
		methods = append(methods, jen.Comment(name+" implements "+sig.String()+"."), m)
		impls[jen.Lit(imp.Symbol())] = g.adapter(name, sig)
	}

	g.file.Line()
	g.file.Commentf("%s implements the imports of the %s namespace.", host, ext.Namespace)
	g.file.Type().Id(host).Interface(methods...)

	g.file.Line()
	g.file.Commentf("%s registers impl as the %s namespace of rt. Modules importing it must be instantiated afterwards.", define, ext.Namespace)
	g.file.Func().Id(define).Params(
		jen.Id("ctx").Qual(pkgContext, "Context"),
		jen.Id("rt").Op("*").Qual(pkgRuntime, "Runtime"),
		jen.Id("impl").Id(host),
	).Error().Block(
		jen.List(jen.Id("b"), jen.Err()).Op(":=").Id("Bundle").Call(),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
		jen.List(jen.Id("ext"), jen.Id("ok")).Op(":=").Id("b").Dot("Extern").Call(jen.Lit(ext.Namespace)),
		jen.If(jen.Op("!").Id("ok")).Block(jen.Return(jen.Qual(pkgErrors, "NotFound").Call(
			jen.Qual(pkgErrors, "PhaseRuntime"), jen.Lit("extern"), jen.Lit(ext.Namespace),
		))),
		jen.Return(jen.Id("rt").Dot("DefineExtern").Call(
			jen.Id("ctx"), jen.Id("ext"), jen.Id("b").Dot("Records"),
			jen.Map(jen.String()).Any().Values(impls),
		)),
	)
	return nil
}

// adapter returns the value registered for one import: the bound method
// itself, or a closure lifting record-bearing arguments first.
func (g *generator) adapter(method string, sig *schema.FunctionSignature) jen.Code {
	lifted := false
	for _, p := range sig.Params {
		lifted = lifted || needsLift(p.Type)
	}
	if !lifted {
		return jen.Id("impl").Dot(method)
	}

	decl := []jen.Code{jen.Id("ctx").Qual(pkgContext, "Context")}
	args := []jen.Code{jen.Id("ctx")}
	var body []jen.Code
	fail := []jen.Code{jen.Err()}
	results := []jen.Code{jen.Err().Error()}
	if sig.Output != nil {
		fail = []jen.Code{jen.Id("out"), jen.Err()}
		results = []jen.Code{jen.Id("out").Add(g.goType(*sig.Output)), jen.Err().Error()}
	}

	for i, p := range sig.Params {
		name := paramName(p.Name, i)
		if !needsLift(p.Type) {
			decl = append(decl, jen.Id(name).Add(g.goType(p.Type)))
			args = append(args, jen.Id(name))
			continue
		}
		val := name + "Val"
		decl = append(decl, jen.Id(name).Any())
		args = append(args, jen.Id(val))
		body = append(body,
			jen.List(jen.Id(val), jen.Err()).Op(":=").Id(g.lifter(p.Type)).Call(jen.Id(name)),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(fail...)),
		)
	}
	body = append(body, jen.Return(jen.Id("impl").Dot(method).Call(args...)))
	return jen.Func().Params(decl...).Params(results...).Block(body...)
}
