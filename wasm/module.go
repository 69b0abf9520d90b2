package wasm

// ValType is a core value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

func (v ValType) String() string {
	switch v {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}

// Export kinds
const (
	ExternFunc   byte = 0x00
	ExternMemory byte = 0x02
	ExternGlobal byte = 0x03
)

// FuncType is a core function type.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (f FuncType) equal(o FuncType) bool {
	return equalVals(f.Params, o.Params) && equalVals(f.Results, o.Results)
}

func equalVals(a, b []ValType) bool {
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

type funcImport struct {
	module string
	name   string
	typ    uint32
}

type function struct {
	locals []ValType
	body   []byte
	typ    uint32
}

type global struct {
	init int64
	typ  ValType
}

type export struct {
	name  string
	index uint32
	kind  byte
}

type dataSegment struct {
	data   []byte
	offset uint32
}

// Module builds a core module. Function indices count imports first, so
// every ImportFunc must precede the first Func.
type Module struct {
	memory  *uint32
	types   []FuncType
	imports []funcImport
	funcs   []function
	globals []global
	exports []export
	data    []dataSegment
	customs []CustomSection
}

func NewModule() *Module {
	return &Module{}
}

// Type returns the index of a function type, adding it when new.
func (m *Module) Type(params, results []ValType) uint32 {
	ft := FuncType{Params: params, Results: results}
	for i, t := range m.types {
		if t.equal(ft) {
			return uint32(i)
		}
	}
	m.types = append(m.types, ft)
	return uint32(len(m.types) - 1)
}

// ImportFunc declares an imported function and returns its index.
func (m *Module) ImportFunc(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasm: ImportFunc after Func would renumber defined functions")
	}
	m.imports = append(m.imports, funcImport{
		module: module,
		name:   name,
		typ:    m.Type(params, results),
	})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its index. body excludes the final
// end opcode.
func (m *Module) Func(params, results, locals []ValType, body []byte) uint32 {
	m.funcs = append(m.funcs, function{
		typ:    m.Type(params, results),
		locals: locals,
		body:   body,
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares the module memory and exports it as "memory".
func (m *Module) Memory(minPages uint32) {
	m.memory = &minPages
	m.exports = append(m.exports, export{name: "memory", kind: ExternMemory})
}

// Global declares a mutable global and returns its index.
func (m *Module) Global(t ValType, init int64) uint32 {
	m.globals = append(m.globals, global{typ: t, init: init})
	return uint32(len(m.globals) - 1)
}

// ExportFunc exports a function under name.
func (m *Module) ExportFunc(name string, index uint32) {
	m.exports = append(m.exports, export{name: name, kind: ExternFunc, index: index})
}

// ExportGlobal exports a global under name.
func (m *Module) ExportGlobal(name string, index uint32) {
	m.exports = append(m.exports, export{name: name, kind: ExternGlobal, index: index})
}

// Data places bytes in memory at offset on instantiation.
func (m *Module) Data(offset uint32, data []byte) {
	m.data = append(m.data, dataSegment{offset: offset, data: data})
}

// Custom adds a custom section after all known sections.
func (m *Module) Custom(name string, data []byte) {
	m.customs = append(m.customs, CustomSection{Name: name, Data: data})
}

// Encode serializes the module.
func (m *Module) Encode() []byte {
	out := append([]byte(nil), preamble...)

	if len(m.types) > 0 {
		s := vec(len(m.types))
		for _, t := range m.types {
			s = append(s, 0x60)
			s = appendVals(s, t.Params)
			s = appendVals(s, t.Results)
		}
		out = appendSection(out, SectionType, s)
	}

	if len(m.imports) > 0 {
		s := vec(len(m.imports))
		for _, imp := range m.imports {
			s = appendName(s, imp.module)
			s = appendName(s, imp.name)
			s = append(s, ExternFunc)
			s = AppendLEB128u(s, imp.typ)
		}
		out = appendSection(out, SectionImport, s)
	}

	if len(m.funcs) > 0 {
		s := vec(len(m.funcs))
		for _, f := range m.funcs {
			s = AppendLEB128u(s, f.typ)
		}
		out = appendSection(out, SectionFunction, s)
	}

	if m.memory != nil {
		s := vec(1)
		s = append(s, 0x00)
		s = AppendLEB128u(s, *m.memory)
		out = appendSection(out, SectionMemory, s)
	}

	if len(m.globals) > 0 {
		s := vec(len(m.globals))
		for _, g := range m.globals {
			s = append(s, byte(g.typ), 0x01)
			s = appendConst(s, g.typ, g.init)
			s = append(s, opEnd)
		}
		out = appendSection(out, SectionGlobal, s)
	}

	if len(m.exports) > 0 {
		s := vec(len(m.exports))
		for _, e := range m.exports {
			s = appendName(s, e.name)
			s = append(s, e.kind)
			s = AppendLEB128u(s, e.index)
		}
		out = appendSection(out, SectionExport, s)
	}

	if len(m.funcs) > 0 {
		s := vec(len(m.funcs))
		for _, f := range m.funcs {
			body := vec(len(f.locals))
			for _, l := range f.locals {
				body = append(body, 0x01, byte(l))
			}
			body = append(body, f.body...)
			body = append(body, opEnd)
			s = AppendLEB128u(s, uint32(len(body)))
			s = append(s, body...)
		}
		out = appendSection(out, SectionCode, s)
	}

	if len(m.data) > 0 {
		s := vec(len(m.data))
		for _, d := range m.data {
			s = append(s, 0x00, opI32Const)
			s = AppendLEB128s(s, int64(int32(d.offset)))
			s = append(s, opEnd)
			s = AppendLEB128u(s, uint32(len(d.data)))
			s = append(s, d.data...)
		}
		out = appendSection(out, SectionData, s)
	}

	for _, c := range m.customs {
		out = append(out, EncodeCustomSection(c.Name, c.Data)...)
	}
	return out
}

func vec(n int) []byte {
	return AppendLEB128u(nil, uint32(n))
}

func appendVals(dst []byte, vals []ValType) []byte {
	dst = AppendLEB128u(dst, uint32(len(vals)))
	for _, v := range vals {
		dst = append(dst, byte(v))
	}
	return dst
}

func appendName(dst []byte, name string) []byte {
	dst = AppendLEB128u(dst, uint32(len(name)))
	return append(dst, name...)
}

func appendSection(dst []byte, id byte, payload []byte) []byte {
	dst = append(dst, id)
	dst = AppendLEB128u(dst, uint32(len(payload)))
	return append(dst, payload...)
}

func appendConst(dst []byte, t ValType, v int64) []byte {
	if t == I64 {
		return AppendLEB128s(append(dst, opI64Const), v)
	}
	return AppendLEB128s(append(dst, opI32Const), int64(int32(v)))
}
