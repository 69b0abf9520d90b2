package schema

import (
	"github.com/wippyai/wasmbind/errors"
)

// Bundle is everything declared by one compilation unit.
type Bundle struct {
	Records   *Registry
	Package   string
	Functions []*FunctionSignature
	Externs   []*ExternModule
}

func NewBundle(pkg string) *Bundle {
	return &Bundle{
		Package: pkg,
		Records: NewRegistry(),
	}
}

// AddFunction registers an exported function.
func (b *Bundle) AddFunction(f *FunctionSignature) error {
	if _, ok := b.Function(f.Name); ok {
		return errors.Duplicate(errors.PhaseValidate, "function", f.Name)
	}
	b.Functions = append(b.Functions, f)
	return nil
}

// AddExtern registers an import namespace.
func (b *Bundle) AddExtern(e *ExternModule) error {
	for _, existing := range b.Externs {
		if existing.Namespace == e.Namespace {
			return errors.Duplicate(errors.PhaseValidate, "extern", e.Namespace)
		}
	}
	b.Externs = append(b.Externs, e)
	return nil
}

// Function finds an exported function by name.
func (b *Bundle) Function(name string) (*FunctionSignature, bool) {
	for _, f := range b.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Extern finds an import namespace.
func (b *Bundle) Extern(namespace string) (*ExternModule, bool) {
	for _, e := range b.Externs {
		if e.Namespace == namespace {
			return e, true
		}
	}
	return nil, false
}

// Validate resolves every record reference in the bundle.
func (b *Bundle) Validate() error {
	if err := b.Records.Validate(); err != nil {
		return err
	}
	for _, f := range b.Functions {
		if err := b.resolveSignature(f, f.Name); err != nil {
			return err
		}
	}
	for _, e := range b.Externs {
		for _, imp := range e.Imports {
			if err := b.resolveSignature(imp.Signature, e.Namespace, imp.Symbol()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Bundle) resolveSignature(f *FunctionSignature, path ...string) error {
	for _, p := range f.Params {
		if err := b.Records.Resolve(p.Type, append(path, p.Name)...); err != nil {
			return err
		}
	}
	if f.Output != nil {
		if err := b.Records.Resolve(*f.Output, append(path, "result")...); err != nil {
			return err
		}
	}
	return nil
}
