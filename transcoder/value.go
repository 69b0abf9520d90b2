package transcoder

// Record is a lifted record value: its name and field values in
// declaration order.
type Record struct {
	Name   string
	Fields []any
}

func NewRecord(name string, fields ...any) Record {
	if fields == nil {
		fields = []any{}
	}
	return Record{Name: name, Fields: fields}
}

// Field returns the i-th field value, or nil when out of range.
func (r Record) Field(i int) any {
	if i < 0 || i >= len(r.Fields) {
		return nil
	}
	return r.Fields[i]
}
