package schema

import (
	"strings"

	"github.com/wippyai/wasmbind/errors"
)

// Param is one ordered argument of a function.
type Param struct {
	Name  string
	Type  Type
	Style PassingStyle
}

// FunctionSignature describes a callable with at most one output.
type FunctionSignature struct {
	Output *Type
	Name   string
	Params []Param
}

// NewFunctionSignature builds a signature, rejecting more than one output
// with a KindArity error instead of truncating.
func NewFunctionSignature(name string, params []Param, outputs ...Type) (*FunctionSignature, error) {
	if len(outputs) > 1 {
		return nil, errors.Arity(name, len(outputs))
	}
	if !ValidName(name) {
		return nil, errors.Schema([]string{name}, "", "invalid function name")
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			continue
		}
		if !ValidName(p.Name) {
			return nil, errors.Schema([]string{name, p.Name}, p.Type.String(), "invalid parameter name")
		}
		if seen[p.Name] {
			return nil, errors.Duplicate(errors.PhaseValidate, "parameter", p.Name)
		}
		seen[p.Name] = true
	}

	sig := &FunctionSignature{
		Name:   name,
		Params: append([]Param(nil), params...),
	}
	if len(outputs) == 1 {
		out := outputs[0]
		sig.Output = &out
	}
	return sig, nil
}

// Outputs returns zero or one output types.
func (f *FunctionSignature) Outputs() []Type {
	if f.Output == nil {
		return nil
	}
	return []Type{*f.Output}
}

// Types returns the parameter types in order.
func (f *FunctionSignature) Types() []Type {
	types := make([]Type, len(f.Params))
	for i, p := range f.Params {
		types[i] = p.Type
	}
	return types
}

// String renders the signature as "name: func(a: i32, b: &string) -> u8".
func (f *FunctionSignature) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString(": func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Name != "" {
			b.WriteString(p.Name)
			b.WriteString(": ")
		}
		b.WriteString(p.Style.String())
		b.WriteString(p.Type.String())
	}
	b.WriteByte(')')
	if f.Output != nil {
		b.WriteString(" -> ")
		b.WriteString(f.Output.String())
	}
	return b.String()
}

// Boundary says which side implements a declared function.
type Boundary uint8

const (
	// BoundaryExport: implemented by the module, called from outside.
	BoundaryExport Boundary = iota
	// BoundaryImport: implemented by another module or the host.
	BoundaryImport
)

// ParamDecl is a declared argument whose type is still an expression.
type ParamDecl struct {
	Name string
	Type string
}

// DeclareFunction parses and validates a function declaration. Arity is
// checked before anything else so a two-output declaration never yields a
// signature.
func DeclareFunction(name string, params []ParamDecl, outputs []string, boundary Boundary) (*FunctionSignature, error) {
	if len(outputs) > 1 {
		return nil, errors.Arity(name, len(outputs))
	}

	argPos, retPos := PositionArgument, PositionReturn
	if boundary == BoundaryImport {
		argPos, retPos = PositionImport, PositionImport
	}

	ps := make([]Param, 0, len(params))
	for _, pd := range params {
		d, err := ParseDecl(pd.Type)
		if err != nil {
			return nil, annotate(err, name, pd.Name)
		}
		if err := d.Check(argPos, FieldRefsStrict, name, pd.Name); err != nil {
			return nil, err
		}
		ps = append(ps, Param{Name: pd.Name, Type: d.Type, Style: d.Style})
	}

	var outs []Type
	for _, o := range outputs {
		d, err := ParseDecl(o)
		if err != nil {
			return nil, annotate(err, name, "result")
		}
		if err := d.Check(retPos, FieldRefsStrict, name, "result"); err != nil {
			return nil, err
		}
		outs = append(outs, d.Type)
	}

	return NewFunctionSignature(name, ps, outs...)
}
