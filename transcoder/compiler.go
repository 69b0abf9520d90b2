package transcoder

import (
	"reflect"
	"sync"

	"github.com/wippyai/wasmbind/errors"
	"github.com/wippyai/wasmbind/schema"
	"github.com/wippyai/wasmbind/transcoder/internal/layout"
)

// CompiledType is a schema.Type resolved against a registry.
type CompiledType struct {
	GoType reflect.Type
	Elem   *CompiledType
	Record *CompiledRecord
	Type   schema.Type
	// Width is the byte width inside a record or a vector buffer.
	Width uint32
	Kind  schema.Kind
}

// Align returns the allocation alignment of a vector buffer holding
// elements of this type.
func (ct *CompiledType) Align() uint32 {
	if ct.Kind.IsScalar() {
		return ct.Width
	}
	return 4
}

type CompiledRecord struct {
	Name   string
	Fields []CompiledField
	Size   uint32
}

type CompiledField struct {
	Type   *CompiledType
	Name   string
	Label  string
	Offset uint32
	Width  uint32
}

var recordGoType = reflect.TypeOf(Record{})

var scalarGoTypes = map[schema.Kind]reflect.Type{
	schema.KindBool: reflect.TypeOf(false),
	schema.KindI8:   reflect.TypeOf(int8(0)),
	schema.KindI16:  reflect.TypeOf(int16(0)),
	schema.KindI32:  reflect.TypeOf(int32(0)),
	schema.KindI64:  reflect.TypeOf(int64(0)),
	schema.KindU8:   reflect.TypeOf(uint8(0)),
	schema.KindU16:  reflect.TypeOf(uint16(0)),
	schema.KindU32:  reflect.TypeOf(uint32(0)),
	schema.KindU64:  reflect.TypeOf(uint64(0)),
	schema.KindF32:  reflect.TypeOf(float32(0)),
	schema.KindF64:  reflect.TypeOf(float64(0)),
}

// Compiler resolves types against one record registry and caches the
// result. It is safe for concurrent use.
type Compiler struct {
	reg    *schema.Registry
	layout *layout.Calculator
	types  map[string]*CompiledType
	mu     sync.Mutex
}

func NewCompiler(reg *schema.Registry) *Compiler {
	if reg == nil {
		reg = schema.NewRegistry()
	}
	return &Compiler{
		reg:    reg,
		layout: layout.NewCalculator(reg),
		types:  make(map[string]*CompiledType),
	}
}

func (c *Compiler) Registry() *schema.Registry {
	return c.reg
}

// Layout returns the wire layout of a registered record.
func (c *Compiler) Layout(record string) (LayoutInfo, error) {
	return c.layout.Record(record)
}

// Compile resolves t. An unregistered record anywhere inside t is a
// KindReference error.
func (c *Compiler) Compile(t schema.Type) (*CompiledType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ct, ok := c.types[t.String()]; ok {
		return ct, nil
	}

	// Records may refer to themselves through a vector, so a record is
	// visible in scratch before its fields are compiled. Nothing reaches
	// the shared cache unless the whole tree compiled.
	scratch := make(map[string]*CompiledType)
	ct, err := c.compile(t, scratch, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range scratch {
		c.types[k] = v
	}
	return ct, nil
}

func (c *Compiler) compile(t schema.Type, scratch map[string]*CompiledType, path []string) (*CompiledType, error) {
	key := t.String()
	if ct, ok := c.types[key]; ok {
		return ct, nil
	}
	if ct, ok := scratch[key]; ok {
		return ct, nil
	}

	ct := &CompiledType{
		Type:  t,
		Kind:  t.Kind(),
		Width: layout.Width(t),
	}

	switch {
	case t.Kind().IsScalar():
		ct.GoType = scalarGoTypes[t.Kind()]
	case t.Kind() == schema.KindString:
		ct.GoType = reflect.TypeOf("")
	case t.Kind() == schema.KindVector:
		elemType, _ := t.Elem()
		elem, err := c.compile(elemType, scratch, append(path, "[elem]"))
		if err != nil {
			return nil, err
		}
		ct.Elem = elem
		ct.GoType = reflect.SliceOf(elem.GoType)
	case t.Kind() == schema.KindRecord:
		ct.GoType = recordGoType
		scratch[key] = ct
		rec, err := c.compileRecord(t.RecordName(), scratch, path)
		if err != nil {
			return nil, err
		}
		ct.Record = rec
	default:
		return nil, errors.New(errors.PhaseCompile, errors.KindSchema).
			Path(path...).
			TypeName(key).
			Detail("no codec for type kind %s", t.Kind()).
			Build()
	}

	scratch[key] = ct
	return ct, nil
}

func (c *Compiler) compileRecord(name string, scratch map[string]*CompiledType, path []string) (*CompiledRecord, error) {
	rt, err := c.reg.Lookup(name)
	if err != nil {
		return nil, errors.Reference(errors.PhaseCompile, path, name)
	}
	info, err := c.layout.Record(name)
	if err != nil {
		return nil, err
	}

	rec := &CompiledRecord{
		Name:   name,
		Size:   info.Size,
		Fields: make([]CompiledField, len(rt.Fields)),
	}
	for i, f := range rt.Fields {
		label := rt.FieldLabel(i)
		fieldPath := append(append([]string{}, path...), name, label)
		ft, err := c.compile(f.Type, scratch, fieldPath)
		if err != nil {
			return nil, err
		}
		rec.Fields[i] = CompiledField{
			Name:   f.Name,
			Label:  label,
			Offset: info.Offsets[i],
			Width:  info.Widths[i],
			Type:   ft,
		}
	}
	return rec, nil
}
