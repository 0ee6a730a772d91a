package codec

import (
	"bytes"
	"encoding/binary"
	"strings"
)

type options struct {
	lenientStrings bool
}

// Option configures a LayoutCodec
type Option func(*options)

// WithLenientStrings treats an unterminated string field as occupying its
// full width instead of failing with MalformedString.
func WithLenientStrings() Option {
	return func(o *options) {
		o.lenientStrings = true
	}
}

// LayoutCodec decodes and encodes records against a Schema
type LayoutCodec struct {
	opts options
}

// NewLayoutCodec creates a codec; the zero configuration is strict
func NewLayoutCodec(opts ...Option) *LayoutCodec {
	c := &LayoutCodec{}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

var defaultCodec = NewLayoutCodec()

// Decode decodes buf against s with the default strict codec
func Decode(s *Schema, buf []byte) (Record, error) {
	return defaultCodec.Decode(s, buf)
}

// Encode encodes r against s with the default strict codec
func Encode(s *Schema, r Record) ([]byte, error) {
	return defaultCodec.Encode(s, r)
}

// Patch encodes r over base with the default strict codec
func Patch(s *Schema, r Record, base []byte) ([]byte, error) {
	return defaultCodec.Patch(s, r, base)
}

// LenientStrings reports whether unterminated strings are accepted
func (c *LayoutCodec) LenientStrings() bool {
	return c.opts.lenientStrings
}

// Decode reads one value per declared field from buf.
// buf must be exactly s.Size() bytes; the record does not alias it.
func (c *LayoutCodec) Decode(s *Schema, buf []byte) (Record, error) {
	if len(buf) != s.size {
		return Record{}, newError(LengthMismatch, s.name, "",
			"buffer is %d bytes, schema requires %d", len(buf), s.size)
	}

	values := make(map[string]Value, len(s.fields))
	for _, f := range s.fields {
		v, err := c.decodeField(s, f, buf[f.Offset:f.End()])
		if err != nil {
			return Record{}, err
		}
		values[f.Name] = v
	}

	return Record{schema: s.name, values: values}, nil
}

func (c *LayoutCodec) decodeField(s *Schema, f FieldSpec, data []byte) (Value, error) {
	switch f.Kind {
	case FieldInt:
		raw := readUint(data)
		if f.IsBitField() {
			raw = (raw >> f.Shift) & f.Mask
		}
		if f.Signed {
			return IntValue(signExtend(raw, f.BitWidth())), nil
		}
		return UintValue(uint64(raw)), nil

	case FieldBytes:
		return BytesValue(data), nil

	case FieldString:
		n := bytes.IndexByte(data, f.Terminator)
		if n < 0 {
			if !c.opts.lenientStrings {
				return Value{}, newError(MalformedString, s.name, f.Name,
					"no terminator %#02x within %d bytes", f.Terminator, f.Width)
			}
			n = len(data)
		}
		return StringValue(string(data[:n])), nil
	}

	return Value{}, newError(InvalidSchema, s.name, f.Name, "unknown field kind %d", uint8(f.Kind))
}

// Encode writes every field of r into a zeroed buffer of s.Size() bytes
func (c *LayoutCodec) Encode(s *Schema, r Record) ([]byte, error) {
	buf := make([]byte, s.size)
	if err := c.encodeInto(s, r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Patch is like Encode but starts from a copy of base, so bytes outside
// every field keep their original contents. Field bytes, including every
// bit of a shared container, are rebuilt from r.
func (c *LayoutCodec) Patch(s *Schema, r Record, base []byte) ([]byte, error) {
	if len(base) != s.size {
		return nil, newError(LengthMismatch, s.name, "",
			"base buffer is %d bytes, schema requires %d", len(base), s.size)
	}
	buf := bytes.Clone(base)
	if err := c.encodeInto(s, r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *LayoutCodec) encodeInto(s *Schema, r Record, buf []byte) error {
	for _, name := range r.Names() {
		if _, ok := s.Field(name); !ok {
			return newError(UnknownField, s.name, name, "no such field")
		}
	}

	var err error
	s.extents.Ascend(func(e *extent) bool {
		err = c.encodeExtent(s, e, r, buf[e.start:e.end])
		return err == nil
	})
	return err
}

func (c *LayoutCodec) encodeExtent(s *Schema, e *extent, r Record, dst []byte) error {
	clear(dst)

	if !e.isBitGroup(s.fields) {
		f := s.fields[e.fields[0]]
		v, ok := r.Get(f.Name)
		if !ok {
			return newError(MissingField, s.name, f.Name, "record has no value")
		}
		return c.encodeField(s, f, v, dst)
	}

	var container uint32
	for _, i := range e.fields {
		f := s.fields[i]
		v, ok := r.Get(f.Name)
		if !ok {
			if len(e.fields) > 1 {
				return newError(IncompleteBitGroup, s.name, f.Name,
					"container at offset %d is shared with %s", f.Offset, strings.Join(s.Siblings(f.Name), ", "))
			}
			return newError(MissingField, s.name, f.Name, "record has no value")
		}
		raw, err := intBits(s, f, v)
		if err != nil {
			return err
		}
		container |= raw << f.Shift
	}
	writeUint(dst, container)
	return nil
}

func (c *LayoutCodec) encodeField(s *Schema, f FieldSpec, v Value, dst []byte) error {
	switch f.Kind {
	case FieldInt:
		raw, err := intBits(s, f, v)
		if err != nil {
			return err
		}
		writeUint(dst, raw)
		return nil

	case FieldBytes:
		if v.kind != FieldBytes {
			return newError(ValueOutOfRange, s.name, f.Name, "expected bytes, got %s", v.kind)
		}
		if len(v.raw) > f.Width {
			return newError(ValueOutOfRange, s.name, f.Name,
				"%d bytes exceed width %d", len(v.raw), f.Width)
		}
		copy(dst, v.raw)
		return nil

	case FieldString:
		if v.kind != FieldString {
			return newError(ValueOutOfRange, s.name, f.Name, "expected string, got %s", v.kind)
		}
		limit := f.Width - 1
		if c.opts.lenientStrings {
			limit = f.Width
		}
		if len(v.text) > limit {
			return newError(ValueOutOfRange, s.name, f.Name,
				"%d bytes exceed limit %d", len(v.text), limit)
		}
		if strings.IndexByte(v.text, f.Terminator) >= 0 {
			return newError(ValueOutOfRange, s.name, f.Name,
				"string contains terminator %#02x", f.Terminator)
		}
		n := copy(dst, v.text)
		if n < f.Width {
			dst[n] = f.Terminator
		}
		return nil
	}

	return newError(InvalidSchema, s.name, f.Name, "unknown field kind %d", uint8(f.Kind))
}

// intBits range-checks an integer value and returns its unshifted bits
func intBits(s *Schema, f FieldSpec, v Value) (uint32, error) {
	if v.kind != FieldInt {
		return 0, newError(ValueOutOfRange, s.name, f.Name, "expected integer, got %s", v.kind)
	}

	n := f.BitWidth()
	if f.Signed {
		lo, hi := -(int64(1) << (n - 1)), int64(1)<<(n-1)-1
		if v.num < lo || v.num > hi {
			return 0, newError(ValueOutOfRange, s.name, f.Name, "%d outside [%d, %d]", v.num, lo, hi)
		}
		return uint32(uint64(v.num) & (uint64(1)<<n - 1)), nil
	}

	hi := int64(1)<<n - 1
	if v.num < 0 || v.num > hi {
		return 0, newError(ValueOutOfRange, s.name, f.Name, "%d outside [0, %d]", v.Uint(), hi)
	}
	return uint32(v.num), nil
}

func readUint(data []byte) uint32 {
	switch len(data) {
	case 1:
		return uint32(data[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(data))
	default:
		return binary.LittleEndian.Uint32(data)
	}
}

func writeUint(dst []byte, v uint32) {
	switch len(dst) {
	case 1:
		dst[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(v))
	default:
		binary.LittleEndian.PutUint32(dst, v)
	}
}

func signExtend(v uint32, n int) int64 {
	shift := 64 - n
	return int64(uint64(v)<<shift) >> shift
}
