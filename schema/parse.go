package schema

import (
	"strings"

	"github.com/wippyai/wasmbind/errors"
	"go.bytecodealliance.org/wit"
)

// TypeDecl is a parsed type expression before its reference markers are
// erased into a Type.
type TypeDecl struct {
	Expr  string
	Type  Type
	Style PassingStyle
	// Refs holds the list depth of every reference marker below the
	// outermost position, e.g. list<list<&string>> yields [2].
	Refs []int
}

// MaxRefDepth returns the deepest nested reference marker, or 0.
func (d TypeDecl) MaxRefDepth() int {
	m := 0
	for _, r := range d.Refs {
		if r > m {
			m = r
		}
	}
	return m
}

// signedAliases maps the i-prefixed spellings onto WIT names.
var signedAliases = map[string]string{
	"i8":  "s8",
	"i16": "s16",
	"i32": "s32",
	"i64": "s64",
}

// ParseType parses an expression that must not carry reference markers.
func ParseType(expr string) (Type, error) {
	d, err := ParseDecl(expr)
	if err != nil {
		return Type{}, err
	}
	if d.Style != ByValue || len(d.Refs) > 0 {
		return Type{}, errors.Schema(nil, expr, "reference markers are not allowed here")
	}
	return d.Type, nil
}

// ParseDecl parses a type expression with optional reference markers.
// Identifiers that are not primitive types are taken as record references;
// whether they resolve is decided later against a Registry.
func ParseDecl(expr string) (TypeDecl, error) {
	p := &declParser{src: expr}
	d := TypeDecl{Expr: strings.TrimSpace(expr)}

	style, err := p.marker()
	if err != nil {
		return TypeDecl{}, err
	}
	d.Style = style

	t, err := p.typ(0, &d.Refs)
	if err != nil {
		return TypeDecl{}, err
	}
	p.skipSpace()
	if !p.eof() {
		return TypeDecl{}, p.fail("unexpected %q", p.src[p.pos:])
	}
	d.Type = t
	return d, nil
}

type declParser struct {
	src string
	pos int
}

func (p *declParser) eof() bool { return p.pos >= len(p.src) }

func (p *declParser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *declParser) fail(format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindSchema).
		TypeName(p.src).
		Detail("at offset %d: "+format, append([]any{p.pos}, args...)...).
		Build()
}

func (p *declParser) marker() (PassingStyle, error) {
	p.skipSpace()
	if p.eof() || p.src[p.pos] != '&' {
		return ByValue, nil
	}
	p.pos++
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "mut ") || strings.HasPrefix(p.src[p.pos:], "mut\t") {
		p.pos += 3
		return ByMutRef, nil
	}
	return ByRef, nil
}

func (p *declParser) ident() string {
	p.skipSpace()
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (p.pos > start && c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *declParser) expect(c byte) error {
	p.skipSpace()
	if p.eof() || p.src[p.pos] != c {
		return p.fail("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *declParser) typ(depth int, refs *[]int) (Type, error) {
	name := p.ident()
	if name == "" {
		return Type{}, p.fail("expected a type")
	}

	p.skipSpace()
	if !p.eof() && p.src[p.pos] == '<' {
		if name != "list" {
			return Type{}, p.fail("generic type %s<...> is not supported, only list<T>", name)
		}
		p.pos++
		style, err := p.marker()
		if err != nil {
			return Type{}, err
		}
		if style != ByValue {
			*refs = append(*refs, depth+1)
		}
		elem, err := p.typ(depth+1, refs)
		if err != nil {
			return Type{}, err
		}
		p.skipSpace()
		if !p.eof() && p.src[p.pos] == ',' {
			return Type{}, p.fail("fixed-length lists are not supported")
		}
		if err := p.expect('>'); err != nil {
			return Type{}, err
		}
		return Vector(elem), nil
	}

	if name == "list" {
		return Type{}, p.fail("list requires an element type")
	}
	return leafType(name)
}

// leafType resolves a primitive name through the WIT parser and treats any
// other identifier as a record reference.
func leafType(name string) (Type, error) {
	witName := name
	if alias, ok := signedAliases[name]; ok {
		witName = alias
	}
	if wt, err := wit.ParseType(witName); err == nil && wt != nil {
		return FromWIT(wt, nil)
	}
	if !ValidName(name) {
		return Type{}, errors.Schema(nil, name, "not a type name")
	}
	return Record(name), nil
}

var reserved = map[string]bool{
	"bool": true, "string": true, "list": true, "char": true,
	"i8": true, "i16": true, "i32": true, "i64": true,
	"s8": true, "s16": true, "s32": true, "s64": true,
	"u8": true, "u16": true, "u32": true, "u64": true,
	"f32": true, "f64": true, "float32": true, "float64": true,
	"option": true, "result": true, "tuple": true, "record": true,
}

// ValidName reports whether s can name a record, field, function or
// parameter: a letter or underscore followed by letters, digits, '_' or '-'.
func ValidName(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case i > 0 && (c == '-' || (c >= '0' && c <= '9')):
		default:
			return false
		}
	}
	return true
}
