package embed

import (
	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
)

type paramDoc struct {
	Name string `msgpack:"name,omitempty" json:"name,omitempty"`
	Type string `msgpack:"type" json:"type"`
}

type functionDoc struct {
	Name    string     `msgpack:"name" json:"name"`
	Result  string     `msgpack:"result,omitempty" json:"result,omitempty"`
	Params  []paramDoc `msgpack:"params" json:"params"`
	Version uint16     `msgpack:"v" json:"v"`
}

type recordDoc struct {
	Name    string     `msgpack:"name" json:"name"`
	Fields  []paramDoc `msgpack:"fields" json:"fields"`
	Version uint16     `msgpack:"v" json:"v"`
}

type importDoc struct {
	LinkName string      `msgpack:"link_name,omitempty" json:"link_name,omitempty"`
	Function functionDoc `msgpack:"fn" json:"fn"`
}

type externDoc struct {
	Namespace string      `msgpack:"namespace" json:"namespace"`
	Imports   []importDoc `msgpack:"imports" json:"imports"`
	Version   uint16      `msgpack:"v" json:"v"`
}

func typeExpr(style schema.PassingStyle, t schema.Type) string {
	return style.String() + t.String()
}

func functionToDoc(f *schema.FunctionSignature) functionDoc {
	doc := functionDoc{
		Version: FormatVersion,
		Name:    f.Name,
		Params:  make([]paramDoc, len(f.Params)),
	}
	for i, p := range f.Params {
		doc.Params[i] = paramDoc{Name: p.Name, Type: typeExpr(p.Style, p.Type)}
	}
	if f.Output != nil {
		doc.Result = f.Output.String()
	}
	return doc
}

func recordToDoc(r *schema.RecordType) recordDoc {
	doc := recordDoc{
		Version: FormatVersion,
		Name:    r.Name,
		Fields:  make([]paramDoc, len(r.Fields)),
	}
	for i, f := range r.Fields {
		doc.Fields[i] = paramDoc{Name: f.Name, Type: typeExpr(f.Style, f.Type)}
	}
	return doc
}

func externToDoc(e *schema.ExternModule) externDoc {
	doc := externDoc{
		Version:   FormatVersion,
		Namespace: e.Namespace,
		Imports:   make([]importDoc, len(e.Imports)),
	}
	for i, imp := range e.Imports {
		fd := functionToDoc(imp.Signature)
		fd.Version = 0
		doc.Imports[i] = importDoc{LinkName: imp.LinkName, Function: fd}
	}
	return doc
}

func checkVersion(section string, v uint16) error {
	if v != FormatVersion {
		return errors.New(errors.PhaseEmbed, errors.KindUnsupported).
			Path(section).
			Value(v).
			Detail("format version %d, want %d", v, FormatVersion).
			Build()
	}
	return nil
}

func (d functionDoc) signature(boundary schema.Boundary) (*schema.FunctionSignature, error) {
	params := make([]schema.ParamDecl, len(d.Params))
	for i, p := range d.Params {
		params[i] = schema.ParamDecl{Name: p.Name, Type: p.Type}
	}
	var outputs []string
	if d.Result != "" {
		outputs = []string{d.Result}
	}
	return schema.DeclareFunction(d.Name, params, outputs, boundary)
}

// record rebuilds the record without re-applying a field policy; the
// writer's declaration already passed it.
func (d recordDoc) record() (*schema.RecordType, error) {
	fields := make([]schema.FieldDecl, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = schema.FieldDecl{Name: f.Name, Type: f.Type}
	}
	return schema.DeclareRecord(d.Name, fields, schema.FieldRefsRelaxed)
}

func (d externDoc) extern() (*schema.ExternModule, error) {
	imports := make([]schema.Import, len(d.Imports))
	for i, imp := range d.Imports {
		sig, err := imp.Function.signature(schema.BoundaryImport)
		if err != nil {
			return nil, err
		}
		imports[i] = schema.Import{Signature: sig, LinkName: imp.LinkName}
	}
	return schema.NewExternModule(d.Namespace, imports...)
}
