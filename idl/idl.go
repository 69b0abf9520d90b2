package idl

import (
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
)

// Document is a loaded interface description.
type Document struct {
	Bundle *schema.Bundle
	// GoPackage names the package generated bindings are emitted into.
	GoPackage string
	// SectionPrefix overrides the embedded section prefix when set.
	SectionPrefix string
	Policy        schema.FieldRefPolicy
}

type file struct {
	Package   packageConfig  `toml:"package"`
	Policy    policyConfig   `toml:"policy"`
	Records   []recordConfig `toml:"record"`
	Functions []funcConfig   `toml:"function"`
	Externs   []externConfig `toml:"extern"`
}

type packageConfig struct {
	Name      string `toml:"name"`
	GoPackage string `toml:"go_package"`
}

type policyConfig struct {
	RecordFieldRefs string `toml:"record_field_refs"`
	SectionPrefix   string `toml:"section_prefix"`
}

type typedName struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type recordConfig struct {
	Name   string      `toml:"name"`
	Fields []typedName `toml:"fields"`
}

type funcConfig struct {
	Name     string      `toml:"name"`
	LinkName string      `toml:"link_name"`
	Result   *string     `toml:"result"`
	Params   []typedName `toml:"params"`
	Results  []string    `toml:"results"`
}

type externConfig struct {
	Namespace string       `toml:"namespace"`
	Imports   []funcConfig `toml:"import"`
}

// Load reads and parses the description at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindNotFound, err, "read "+path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidData, err, path)
	}
	return doc, nil
}

// Parse decodes a description and validates every declaration, including
// record references across the whole document.
func Parse(data []byte) (*Document, error) {
	var f file
	meta, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.ParseFailed("interface description", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.InvalidInput(errors.PhaseParse, "unknown keys: "+strings.Join(keys, ", "))
	}

	policy, err := schema.ParseFieldRefPolicy(f.Policy.RecordFieldRefs)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Bundle:        schema.NewBundle(f.Package.Name),
		GoPackage:     f.Package.GoPackage,
		SectionPrefix: f.Policy.SectionPrefix,
		Policy:        policy,
	}
	b := doc.Bundle

	for i, rc := range f.Records {
		if rc.Name == "" {
			return nil, missingName("record", i)
		}
		fields := make([]schema.FieldDecl, len(rc.Fields))
		for j, fd := range rc.Fields {
			fields[j] = schema.FieldDecl(fd)
		}
		rec, err := schema.DeclareRecord(rc.Name, fields, policy)
		if err != nil {
			return nil, err
		}
		if err := b.Records.Add(rec); err != nil {
			return nil, err
		}
	}

	for i, fc := range f.Functions {
		if fc.LinkName != "" {
			return nil, errors.InvalidInput(errors.PhaseParse, "function "+fc.Name+": link_name is only valid on imports")
		}
		sig, err := fc.declare(i, "function", schema.BoundaryExport)
		if err != nil {
			return nil, err
		}
		if err := b.AddFunction(sig); err != nil {
			return nil, err
		}
	}

	for i, ec := range f.Externs {
		if ec.Namespace == "" {
			return nil, missingName("extern namespace", i)
		}
		imports := make([]schema.Import, len(ec.Imports))
		for j, ic := range ec.Imports {
			sig, err := ic.declare(j, ec.Namespace+" import", schema.BoundaryImport)
			if err != nil {
				return nil, err
			}
			imports[j] = schema.Import{Signature: sig, LinkName: ic.LinkName}
		}
		ext, err := schema.NewExternModule(ec.Namespace, imports...)
		if err != nil {
			return nil, err
		}
		if err := b.AddExtern(ext); err != nil {
			return nil, err
		}
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (fc funcConfig) declare(index int, what string, boundary schema.Boundary) (*schema.FunctionSignature, error) {
	if fc.Name == "" {
		return nil, missingName(what, index)
	}
	if fc.Result != nil && fc.Results != nil {
		return nil, errors.InvalidInput(errors.PhaseParse, fc.Name+": set result or results, not both")
	}
	outputs := fc.Results
	if fc.Result != nil {
		outputs = []string{*fc.Result}
	}
	params := make([]schema.ParamDecl, len(fc.Params))
	for i, p := range fc.Params {
		params[i] = schema.ParamDecl(p)
	}
	return schema.DeclareFunction(fc.Name, params, outputs, boundary)
}

func missingName(what string, index int) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidInput).
		Value(index).
		Detail("%s #%d has no name", what, index+1).
		Build()
}
