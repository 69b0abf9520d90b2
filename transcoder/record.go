package transcoder

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/wippyai/wasmbind/errors"
)

// record writes a record into a fresh buffer of its static size and
// returns the pointer. An empty record is the null pointer.
func (w *writer) record(ct *CompiledType, value any, path []string, depth int) (uint32, error) {
	if err := checkDepth(errors.PhaseEncode, path, depth); err != nil {
		return 0, err
	}
	rec := ct.Record
	values, err := recordValues(rec, value, path)
	if err != nil {
		return 0, err
	}
	if rec.Size == 0 {
		return 0, nil
	}

	buf := make([]byte, rec.Size)
	for i, f := range rec.Fields {
		fieldPath := append(append([]string{}, path...), f.Label)
		if err := w.element(f.Type, values[i], buf[f.Offset:f.Offset+f.Width], fieldPath, depth); err != nil {
			return 0, err
		}
	}

	ptr, err := w.allocate(rec.Size, 4, path)
	if err != nil {
		return 0, err
	}
	if err := w.mem.Write(ptr, buf); err != nil {
		return 0, err
	}
	return ptr, nil
}

// record reads a record at ptr, walking a byte cursor across the fields in
// declaration order.
func (r *reader) record(ct *CompiledType, ptr uint32, path []string, depth int) (Record, error) {
	rec := ct.Record
	out := Record{Name: rec.Name, Fields: make([]any, len(rec.Fields))}
	if rec.Size == 0 {
		return out, nil
	}
	if err := checkDepth(errors.PhaseDecode, path, depth); err != nil {
		return Record{}, err
	}

	buf, err := r.mem.Read(ptr, rec.Size)
	if err != nil {
		return Record{}, err
	}

	var cursor uint32
	for i, f := range rec.Fields {
		fieldPath := append(append([]string{}, path...), f.Label)
		v, err := r.element(f.Type, buf[cursor:cursor+f.Width], fieldPath, depth)
		if err != nil {
			return Record{}, err
		}
		out.Fields[i] = v
		cursor += f.Width
	}
	return out, nil
}

// recordValues extracts field values in declaration order from a Record,
// a positional []any, a map keyed by field name, or a Go struct.
func recordValues(rec *CompiledRecord, value any, path []string) ([]any, error) {
	switch v := value.(type) {
	case Record:
		return recordFromRecord(rec, v, path)
	case *Record:
		if v == nil {
			break
		}
		return recordFromRecord(rec, *v, path)
	case []any:
		if len(v) != len(rec.Fields) {
			return nil, fieldCountError(rec, len(v), path)
		}
		return v, nil
	case map[string]any:
		out := make([]any, len(rec.Fields))
		for i, f := range rec.Fields {
			fv, ok := v[f.Label]
			if !ok {
				return nil, missingField(rec, f.Label, path)
			}
			out[i] = fv
		}
		return out, nil
	}

	rv := reflect.ValueOf(value)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
				Path(path...).
				TypeName(rec.Name).
				Detail("nil pointer").
				Build()
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, typeName(value), rec.Name)
	}

	out := make([]any, len(rec.Fields))
	for i, f := range rec.Fields {
		sf, ok := findGoField(rv.Type(), f.Name, i)
		if !ok {
			return nil, missingField(rec, f.Label, path)
		}
		out[i] = rv.FieldByIndex(sf.Index).Interface()
	}
	return out, nil
}

func recordFromRecord(rec *CompiledRecord, v Record, path []string) ([]any, error) {
	if v.Name != "" && v.Name != rec.Name {
		return nil, errors.TypeMismatch(errors.PhaseEncode, path, "record "+v.Name, rec.Name)
	}
	if len(v.Fields) != len(rec.Fields) {
		return nil, fieldCountError(rec, len(v.Fields), path)
	}
	return v.Fields, nil
}

func fieldCountError(rec *CompiledRecord, got int, path []string) error {
	return errors.New(errors.PhaseEncode, errors.KindInvalidData).
		Path(path...).
		TypeName(rec.Name).
		Detail("expected %d fields, got %d", len(rec.Fields), got).
		Build()
}

func missingField(rec *CompiledRecord, label string, path []string) error {
	return errors.New(errors.PhaseEncode, errors.KindInvalidData).
		Path(append(append([]string{}, path...), label)...).
		TypeName(rec.Name).
		Detail("missing field %q", label).
		Build()
}

// findGoField matches by: 1) wasm:"name" tag, 2) case-insensitive, 3) kebab-to-camel.
// Unnamed record fields match the exported struct field at the same position.
func findGoField(goType reflect.Type, name string, pos int) (reflect.StructField, bool) {
	exported := 0
	for i := 0; i < goType.NumField(); i++ {
		field := goType.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("wasm")
		if tag == "-" {
			continue
		}
		if name == "" {
			if exported == pos {
				return field, true
			}
			exported++
			continue
		}
		if tag != "" {
			if tag == name {
				return field, true
			}
			continue
		}
		if strings.EqualFold(field.Name, name) || toKebabCase(field.Name) == name {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

func toKebabCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteByte('-')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
