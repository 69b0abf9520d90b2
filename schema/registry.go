package schema

import (
	"github.com/wippyai/wasmbind/errors"
)

// Registry maps record names to their declarations for one compilation
// unit. Lookups of absent names are KindReference errors.
type Registry struct {
	records map[string]*RecordType
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*RecordType)}
}

// Add registers a record. Names are unique.
func (r *Registry) Add(rt *RecordType) error {
	if rt == nil {
		return errors.InvalidInput(errors.PhaseValidate, "nil record")
	}
	if _, ok := r.records[rt.Name]; ok {
		return errors.Duplicate(errors.PhaseValidate, "record", rt.Name)
	}
	r.records[rt.Name] = rt
	r.order = append(r.order, rt.Name)
	return nil
}

// Lookup resolves a record name.
func (r *Registry) Lookup(name string) (*RecordType, error) {
	if r != nil {
		if rt, ok := r.records[name]; ok {
			return rt, nil
		}
	}
	return nil, errors.Reference(errors.PhaseCompile, nil, name)
}

// Records returns the records in registration order.
func (r *Registry) Records() []*RecordType {
	if r == nil {
		return nil
	}
	out := make([]*RecordType, len(r.order))
	for i, name := range r.order {
		out[i] = r.records[name]
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Resolve checks that every record referenced by t is registered.
func (r *Registry) Resolve(t Type, path ...string) error {
	var err error
	t.Walk(func(inner Type) {
		if err != nil || inner.Kind() != KindRecord {
			return
		}
		if _, lerr := r.Lookup(inner.RecordName()); lerr != nil {
			err = errors.Reference(errors.PhaseValidate, path, inner.RecordName())
		}
	})
	return err
}

// Validate resolves every field of every registered record.
func (r *Registry) Validate() error {
	for _, rt := range r.Records() {
		for i, f := range rt.Fields {
			if err := r.Resolve(f.Type, rt.Name, rt.FieldLabel(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
