package schema

import (
	"github.com/wippyai/wasmbind/errors"
	"go.bytecodealliance.org/wit"
)

// FromWIT converts a WIT type into the Type Model. names maps record
// TypeDefs to the names they are registered under; it may be nil when no
// records are expected. Every WIT shape outside the union (char, option,
// result, tuple, variant, enum, flags, handles) is a KindSchema error.
func FromWIT(t wit.Type, names map[*wit.TypeDef]string) (Type, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return Bool, nil
	case wit.S8:
		return I8, nil
	case wit.S16:
		return I16, nil
	case wit.S32:
		return I32, nil
	case wit.S64:
		return I64, nil
	case wit.U8:
		return U8, nil
	case wit.U16:
		return U16, nil
	case wit.U32:
		return U32, nil
	case wit.U64:
		return U64, nil
	case wit.F32:
		return F32, nil
	case wit.F64:
		return F64, nil
	case wit.String:
		return String, nil
	case *wit.TypeDef:
		return fromTypeDef(typ, names)
	default:
		return Type{}, errors.New(errors.PhaseParse, errors.KindSchema).
			Detail("unsupported WIT type %T", t).
			Build()
	}
}

func fromTypeDef(td *wit.TypeDef, names map[*wit.TypeDef]string) (Type, error) {
	switch kind := td.Kind.(type) {
	case *wit.List:
		elem, err := FromWIT(kind.Type, names)
		if err != nil {
			return Type{}, err
		}
		return Vector(elem), nil
	case *wit.Record:
		name, ok := names[td]
		if !ok {
			return Type{}, errors.Schema(nil, "record", "anonymous WIT record has no registered name")
		}
		return Record(name), nil
	case wit.Type:
		return FromWIT(kind, names)
	default:
		return Type{}, errors.New(errors.PhaseParse, errors.KindSchema).
			Detail("unsupported WIT type definition %T", kind).
			Build()
	}
}

// RecordFromWIT converts a WIT record definition and records its name in
// names so later conversions can refer to it.
func RecordFromWIT(name string, td *wit.TypeDef, names map[*wit.TypeDef]string) (*RecordType, error) {
	rec, ok := td.Kind.(*wit.Record)
	if !ok {
		return nil, errors.Schema([]string{name}, "record", "WIT type definition is not a record")
	}
	if names != nil {
		names[td] = name
	}
	fields := make([]Field, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		ft, err := FromWIT(f.Type, names)
		if err != nil {
			return nil, annotate(err, name, f.Name)
		}
		fields = append(fields, Field{Name: f.Name, Type: ft})
	}
	return NewRecordType(name, fields)
}

func annotate(err error, path ...string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append(append([]string{}, path...), e.Path...)
		return e
	}
	return err
}
