package codec

import (
	"maps"
	"slices"
)

// Record is a decoded, immutable mapping from field name to value
type Record struct {
	schema string
	values map[string]Value
}

// NewRecord builds a record from a copy of values
func NewRecord(values map[string]Value) Record {
	return Record{values: maps.Clone(values)}
}

// Schema returns the name of the schema that produced the record, if any
func (r Record) Schema() string {
	return r.schema
}

// Get returns the value for name
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Field returns the value for name, or the zero Value when absent
func (r Record) Field(name string) Value {
	return r.values[name]
}

// Has reports whether the record holds a value for name
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Len returns the number of values
func (r Record) Len() int {
	return len(r.values)
}

// Names returns the field names in sorted order
func (r Record) Names() []string {
	return slices.Sorted(maps.Keys(r.values))
}

// Values returns a copy of the underlying map
func (r Record) Values() map[string]Value {
	return maps.Clone(r.values)
}

// With returns a copy of r with name set to v
func (r Record) With(name string, v Value) Record {
	values := make(map[string]Value, len(r.values)+1)
	maps.Copy(values, r.values)
	values[name] = v
	return Record{schema: r.schema, values: values}
}

// Without returns a copy of r with name removed
func (r Record) Without(name string) Record {
	values := maps.Clone(r.values)
	delete(values, name)
	return Record{schema: r.schema, values: values}
}

// Equal reports whether both records hold equal values for the same names
func (r Record) Equal(o Record) bool {
	if len(r.values) != len(o.values) {
		return false
	}
	for name, v := range r.values {
		ov, ok := o.values[name]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
