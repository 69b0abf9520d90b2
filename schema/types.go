package schema

import "strings"

// Kind discriminates the Type union.
type Kind uint8

const (
	KindBool Kind = iota
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindString
	KindVector
	KindRecord
)

var kindNames = [...]string{
	KindBool:   "bool",
	KindI8:     "i8",
	KindI16:    "i16",
	KindI32:    "i32",
	KindI64:    "i64",
	KindU8:     "u8",
	KindU16:    "u16",
	KindU32:    "u32",
	KindU64:    "u64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindString: "string",
	KindVector: "list",
	KindRecord: "record",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar reports whether values of this kind fit in a single slot without
// touching linear memory.
func (k Kind) IsScalar() bool {
	return k <= KindF64
}

// IsNumeric reports whether a sequence of this kind is stored contiguously
// at native width. Bool counts as a one-byte integer.
func (k Kind) IsNumeric() bool {
	return k.IsScalar()
}

// Type is one member of the closed type union. The zero value is Bool.
type Type struct {
	elem *Type
	name string
	kind Kind
}

var (
	Bool   = Type{kind: KindBool}
	I8     = Type{kind: KindI8}
	I16    = Type{kind: KindI16}
	I32    = Type{kind: KindI32}
	I64    = Type{kind: KindI64}
	U8     = Type{kind: KindU8}
	U16    = Type{kind: KindU16}
	U32    = Type{kind: KindU32}
	U64    = Type{kind: KindU64}
	F32    = Type{kind: KindF32}
	F64    = Type{kind: KindF64}
	String = Type{kind: KindString}
)

// Vector returns list<elem>.
func Vector(elem Type) Type {
	e := elem
	return Type{kind: KindVector, elem: &e}
}

// Record returns a reference to the named record.
func Record(name string) Type {
	return Type{kind: KindRecord, name: name}
}

// Scalar returns the scalar type of the given kind.
func Scalar(k Kind) (Type, bool) {
	if !k.IsScalar() {
		return Type{}, false
	}
	return Type{kind: k}, true
}

func (t Type) Kind() Kind { return t.kind }

// Elem returns the element type of a vector.
func (t Type) Elem() (Type, bool) {
	if t.kind != KindVector || t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// RecordName returns the referenced record name, or "" for other kinds.
func (t Type) RecordName() string {
	if t.kind != KindRecord {
		return ""
	}
	return t.name
}

// Depth returns the number of list levels wrapping the innermost element.
func (t Type) Depth() int {
	d := 0
	for t.kind == KindVector && t.elem != nil {
		d++
		t = *t.elem
	}
	return d
}

// Leaf returns the innermost non-vector type.
func (t Type) Leaf() Type {
	for t.kind == KindVector && t.elem != nil {
		t = *t.elem
	}
	return t
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindVector:
		if t.elem == nil || o.elem == nil {
			return t.elem == o.elem
		}
		return t.elem.Equal(*o.elem)
	case KindRecord:
		return t.name == o.name
	default:
		return true
	}
}

// String renders the type in the same syntax ParseType accepts.
func (t Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Type) write(b *strings.Builder) {
	switch t.kind {
	case KindVector:
		b.WriteString("list<")
		if t.elem != nil {
			t.elem.write(b)
		}
		b.WriteByte('>')
	case KindRecord:
		b.WriteString(t.name)
	default:
		b.WriteString(t.kind.String())
	}
}

// Walk calls fn for t and every type nested in it, outermost first.
func (t Type) Walk(fn func(Type)) {
	fn(t)
	if t.kind == KindVector && t.elem != nil {
		t.elem.Walk(fn)
	}
}

// PassingStyle describes how an argument is handed across the boundary.
type PassingStyle uint8

const (
	// ByValue transfers ownership of any buffer to the callee.
	ByValue PassingStyle = iota
	// ByRef lends caller-owned memory for the duration of the call.
	ByRef
	// ByMutRef lends caller-owned memory the callee may modify in place.
	ByMutRef
)

func (s PassingStyle) String() string {
	switch s {
	case ByRef:
		return "&"
	case ByMutRef:
		return "&mut "
	default:
		return ""
	}
}

// Borrowed reports whether the caller keeps ownership.
func (s PassingStyle) Borrowed() bool {
	return s == ByRef || s == ByMutRef
}
