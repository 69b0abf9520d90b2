package schema

import (
	"github.com/wippyai/wasmbind/errors"
)

// Import is a function implemented outside the module. LinkName, when set,
// is the symbol used on the wire instead of the signature name.
type Import struct {
	Signature *FunctionSignature
	LinkName  string
}

// Symbol returns the name the import is linked under.
func (i Import) Symbol() string {
	if i.LinkName != "" {
		return i.LinkName
	}
	return i.Signature.Name
}

// ExternModule is a namespace of imported functions.
type ExternModule struct {
	Namespace string
	Imports   []Import
}

// NewExternModule validates that link symbols are unique in the namespace.
func NewExternModule(namespace string, imports ...Import) (*ExternModule, error) {
	if namespace == "" {
		return nil, errors.Schema(nil, "extern", "empty namespace")
	}
	seen := make(map[string]bool, len(imports))
	for _, imp := range imports {
		if imp.Signature == nil {
			return nil, errors.InvalidInput(errors.PhaseValidate, "import without signature in "+namespace)
		}
		sym := imp.Symbol()
		if seen[sym] {
			return nil, errors.Duplicate(errors.PhaseValidate, "import", namespace+"#"+sym)
		}
		seen[sym] = true
	}
	return &ExternModule{
		Namespace: namespace,
		Imports:   append([]Import(nil), imports...),
	}, nil
}

// Lookup finds an import by link symbol.
func (e *ExternModule) Lookup(symbol string) (Import, bool) {
	for _, imp := range e.Imports {
		if imp.Symbol() == symbol {
			return imp, true
		}
	}
	return Import{}, false
}
