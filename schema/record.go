package schema

import (
	"strconv"

	"github.com/wippyai/wasmbind/errors"
)

// Field is one record member. Name is optional; unnamed fields are
// addressed by position.
type Field struct {
	Name  string
	Type  Type
	Style PassingStyle
}

// RecordType is a named, ordered list of fields. Order defines the wire
// layout and must not change after construction.
type RecordType struct {
	Name   string
	Fields []Field
}

// NewRecordType validates the record name and field names.
func NewRecordType(name string, fields []Field) (*RecordType, error) {
	if !ValidName(name) {
		return nil, errors.Schema([]string{name}, "record", "invalid record name")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		if !ValidName(f.Name) {
			return nil, errors.Schema([]string{name, f.Name}, f.Type.String(), "invalid field name")
		}
		if seen[f.Name] {
			return nil, errors.Duplicate(errors.PhaseValidate, "field", name+"."+f.Name)
		}
		seen[f.Name] = true
	}
	return &RecordType{
		Name:   name,
		Fields: append([]Field(nil), fields...),
	}, nil
}

// FieldLabel returns the field name or its position when unnamed.
func (r *RecordType) FieldLabel(i int) string {
	if r.Fields[i].Name != "" {
		return r.Fields[i].Name
	}
	return strconv.Itoa(i)
}

// FieldIndex returns the position of a named field.
func (r *RecordType) FieldIndex(name string) (int, bool) {
	for i, f := range r.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Type returns the Record(name) reference to this record.
func (r *RecordType) Type() Type {
	return Record(r.Name)
}

// FieldDecl is a declared field whose type is still an expression.
type FieldDecl struct {
	Name string
	Type string
}

// DeclareRecord parses a record declaration, applying policy to the
// reference markers of each field.
func DeclareRecord(name string, fields []FieldDecl, policy FieldRefPolicy) (*RecordType, error) {
	fs := make([]Field, 0, len(fields))
	for i, fd := range fields {
		label := fd.Name
		if label == "" {
			label = strconv.Itoa(i)
		}
		d, err := ParseDecl(fd.Type)
		if err != nil {
			return nil, annotate(err, name, label)
		}
		if err := d.Check(PositionField, policy, name, label); err != nil {
			return nil, err
		}
		fs = append(fs, Field{Name: fd.Name, Type: d.Type, Style: d.Style})
	}
	return NewRecordType(name, fs)
}
