package codec

import (
	"fmt"
	"math/bits"

	"github.com/google/btree"
)

// FieldKind is the storage class of a field
type FieldKind uint8

const (
	FieldInt FieldKind = iota
	FieldBytes
	FieldString
)

var fieldKindNames = map[FieldKind]string{
	FieldInt:    "int",
	FieldBytes:  "bytes",
	FieldString: "string",
}

func (k FieldKind) String() string {
	if name, ok := fieldKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler
func (k FieldKind) MarshalText() ([]byte, error) {
	if _, ok := fieldKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown field kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *FieldKind) UnmarshalText(text []byte) error {
	for kind, name := range fieldKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown field kind %q", text)
}

// FieldSpec describes one field within a record schema
type FieldSpec struct {
	Name       string    `json:"name"`
	Offset     int       `json:"offset"`
	Width      int       `json:"width"`
	Kind       FieldKind `json:"kind"`
	Signed     bool      `json:"signed,omitempty"`
	Mask       uint32    `json:"mask,omitempty"`  // non-zero marks a bit-sub-field
	Shift      uint      `json:"shift,omitempty"` // applied before Mask on decode
	Terminator byte      `json:"terminator,omitempty"`
	Opaque     bool      `json:"opaque,omitempty"` // bits of unknown meaning, preserved verbatim
	Doc        string    `json:"doc,omitempty"`
}

// Uint8 declares an unsigned one-byte integer
func Uint8(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 1, Kind: FieldInt}
}

// Uint16 declares an unsigned little-endian two-byte integer
func Uint16(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 2, Kind: FieldInt}
}

// Uint32 declares an unsigned little-endian four-byte integer
func Uint32(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 4, Kind: FieldInt}
}

// Int8 declares a signed one-byte integer
func Int8(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 1, Kind: FieldInt, Signed: true}
}

// Int16 declares a signed little-endian two-byte integer
func Int16(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 2, Kind: FieldInt, Signed: true}
}

// Int32 declares a signed little-endian four-byte integer
func Int32(name string, offset int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: 4, Kind: FieldInt, Signed: true}
}

// BitField declares an unsigned sub-field of a width-byte container.
// The decoded value is (container >> shift) & mask.
func BitField(name string, offset, width int, mask uint32, shift uint) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: width, Kind: FieldInt, Mask: mask, Shift: shift}
}

// ByteArray declares a fixed-width raw byte range
func ByteArray(name string, offset, width int) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: width, Kind: FieldBytes}
}

// Text declares a fixed-width string ended by terminator
func Text(name string, offset, width int, terminator byte) FieldSpec {
	return FieldSpec{Name: name, Offset: offset, Width: width, Kind: FieldString, Terminator: terminator}
}

// Describe returns a copy of f with its documentation set
func (f FieldSpec) Describe(doc string) FieldSpec {
	f.Doc = doc
	return f
}

// Unknown returns a copy of f marked as opaque
func (f FieldSpec) Unknown() FieldSpec {
	f.Opaque = true
	return f
}

// IsBitField reports whether f occupies only some bits of its container
func (f FieldSpec) IsBitField() bool {
	return f.Mask != 0
}

// End returns the offset one past the last byte of f
func (f FieldSpec) End() int {
	return f.Offset + f.Width
}

// BitWidth returns the number of value bits of an integer field
func (f FieldSpec) BitWidth() int {
	if f.IsBitField() {
		return bits.OnesCount32(f.Mask)
	}
	return f.Width * 8
}

// TypeName renders the field type the way the documentation tools print it
func (f FieldSpec) TypeName() string {
	switch f.Kind {
	case FieldInt:
		prefix := "uint"
		if f.Signed {
			prefix = "int"
		}
		if f.IsBitField() {
			return fmt.Sprintf("%s%d:%d@%d", prefix, f.Width*8, f.BitWidth(), f.Shift)
		}
		return fmt.Sprintf("%s%d", prefix, f.Width*8)
	case FieldBytes:
		return fmt.Sprintf("byte[%d]", f.Width)
	case FieldString:
		return fmt.Sprintf("char[%d]", f.Width)
	}
	return f.Kind.String()
}

// Extent is a byte range inside a record
type Extent struct {
	Offset int `json:"offset"`
	Size   int `json:"size"`
}

// extent is one occupied byte range; bit-sub-fields sharing a container
// share a single extent.
type extent struct {
	start  int
	end    int
	fields []int
}

func (e *extent) isBitGroup(fields []FieldSpec) bool {
	return fields[e.fields[0]].IsBitField()
}

func extentLess(a, b *extent) bool {
	return a.start < b.start
}

const extentDegree = 8

// Schema is an immutable record layout
type Schema struct {
	name    string
	size    int
	fields  []FieldSpec
	byName  map[string]int
	extents *btree.BTreeG[*extent]
}

// NewSchema validates fields and builds a schema of size bytes
func NewSchema(name string, size int, fields ...FieldSpec) (*Schema, error) {
	if size <= 0 {
		return nil, newError(InvalidSchema, name, "", "size must be positive, got %d", size)
	}

	s := &Schema{
		name:    name,
		size:    size,
		fields:  make([]FieldSpec, len(fields)),
		byName:  make(map[string]int, len(fields)),
		extents: btree.NewG[*extent](extentDegree, extentLess),
	}
	copy(s.fields, fields)

	for i, f := range s.fields {
		if err := s.validateField(f); err != nil {
			return nil, err
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, newError(InvalidSchema, name, f.Name, "duplicate field name")
		}
		if err := s.place(i); err != nil {
			return nil, err
		}
		s.byName[f.Name] = i
	}

	return s, nil
}

// MustSchema is like NewSchema but panics on an invalid layout.
// It is meant for static schema tables.
func MustSchema(name string, size int, fields ...FieldSpec) *Schema {
	s, err := NewSchema(name, size, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) validateField(f FieldSpec) error {
	if f.Name == "" {
		return newError(InvalidSchema, s.name, "", "field at offset %d has no name", f.Offset)
	}
	if f.Width <= 0 {
		return newError(InvalidSchema, s.name, f.Name, "width must be positive, got %d", f.Width)
	}
	if f.Offset < 0 || f.End() > s.size {
		return newError(InvalidSchema, s.name, f.Name,
			"extent [%d,%d) outside record of %d bytes", f.Offset, f.End(), s.size)
	}

	switch f.Kind {
	case FieldInt:
		if f.Width != 1 && f.Width != 2 && f.Width != 4 {
			return newError(InvalidSchema, s.name, f.Name, "integer width must be 1, 2 or 4, got %d", f.Width)
		}
		if f.IsBitField() {
			if f.Mask&(f.Mask+1) != 0 {
				return newError(InvalidSchema, s.name, f.Name, "mask %#x is not contiguous from bit 0", f.Mask)
			}
			if int(f.Shift)+f.BitWidth() > f.Width*8 {
				return newError(InvalidSchema, s.name, f.Name,
					"mask %#x shifted by %d exceeds %d-bit container", f.Mask, f.Shift, f.Width*8)
			}
		} else if f.Shift != 0 {
			return newError(InvalidSchema, s.name, f.Name, "shift without mask")
		}
	case FieldBytes, FieldString:
		if f.IsBitField() || f.Shift != 0 || f.Signed {
			return newError(InvalidSchema, s.name, f.Name, "%s field cannot carry mask, shift or sign", f.Kind)
		}
	default:
		return newError(InvalidSchema, s.name, f.Name, "unknown field kind %d", uint8(f.Kind))
	}

	return nil
}

// place records field i in the extent index, rejecting overlaps
func (s *Schema) place(i int) error {
	f := s.fields[i]
	probe := &extent{start: f.Offset}

	var prev *extent
	s.extents.DescendLessOrEqual(probe, func(e *extent) bool {
		prev = e
		return false
	})

	if prev != nil && prev.start == f.Offset && prev.end == f.End() &&
		f.IsBitField() && prev.isBitGroup(s.fields) {
		owned := f.Mask << f.Shift
		for _, j := range prev.fields {
			other := s.fields[j]
			if other.Mask<<other.Shift&owned != 0 {
				return newError(InvalidSchema, s.name, f.Name, "bits %#x overlap field %s", owned, other.Name)
			}
		}
		prev.fields = append(prev.fields, i)
		return nil
	}

	if prev != nil && prev.end > f.Offset {
		return newError(InvalidSchema, s.name, f.Name, "overlaps field %s", s.fields[prev.fields[0]].Name)
	}

	var next *extent
	s.extents.AscendGreaterOrEqual(probe, func(e *extent) bool {
		next = e
		return false
	})
	if next != nil && next.start < f.End() {
		return newError(InvalidSchema, s.name, f.Name, "overlaps field %s", s.fields[next.fields[0]].Name)
	}

	s.extents.ReplaceOrInsert(&extent{start: f.Offset, end: f.End(), fields: []int{i}})
	return nil
}

// Name returns the schema name
func (s *Schema) Name() string {
	return s.name
}

// Size returns the fixed record length in bytes
func (s *Schema) Size() int {
	return s.size
}

// Len returns the number of declared fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the field list in declaration order
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a field by name
func (s *Schema) Field(name string) (FieldSpec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// FieldsAt returns every field covering the byte at offset
func (s *Schema) FieldsAt(offset int) []FieldSpec {
	var out []FieldSpec
	s.extents.DescendLessOrEqual(&extent{start: offset}, func(e *extent) bool {
		if offset < e.end {
			for _, i := range e.fields {
				out = append(out, s.fields[i])
			}
		}
		return false
	})
	return out
}

// Siblings returns the other bit-sub-fields sharing name's container
func (s *Schema) Siblings(name string) []string {
	i, ok := s.byName[name]
	if !ok || !s.fields[i].IsBitField() {
		return nil
	}
	var out []string
	for _, f := range s.FieldsAt(s.fields[i].Offset) {
		if f.Name != name {
			out = append(out, f.Name)
		}
	}
	return out
}

// Covered returns the number of bytes owned by at least one field
func (s *Schema) Covered() int {
	covered := 0
	s.extents.Ascend(func(e *extent) bool {
		covered += e.end - e.start
		return true
	})
	return covered
}

// Coverage returns the documented share of the record as a percentage
func (s *Schema) Coverage() float64 {
	return float64(s.Covered()) / float64(s.size) * 100.0
}

// Gaps returns the byte ranges that no field covers, in offset order
func (s *Schema) Gaps() []Extent {
	var gaps []Extent
	pos := 0
	s.extents.Ascend(func(e *extent) bool {
		if e.start > pos {
			gaps = append(gaps, Extent{Offset: pos, Size: e.start - pos})
		}
		pos = e.end
		return true
	})
	if pos < s.size {
		gaps = append(gaps, Extent{Offset: pos, Size: s.size - pos})
	}
	return gaps
}
