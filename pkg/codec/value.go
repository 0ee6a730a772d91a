package codec

import (
	"bytes"
	"encoding/hex"
	"strconv"
)

// Value is one decoded field: an integer, a raw byte sequence or a string
type Value struct {
	kind FieldKind
	num  int64
	raw  []byte
	text string
}

// UintValue wraps an unsigned integer
func UintValue(v uint64) Value {
	return Value{kind: FieldInt, num: int64(v)}
}

// IntValue wraps a signed integer
func IntValue(v int64) Value {
	return Value{kind: FieldInt, num: v}
}

// BytesValue wraps a copy of b
func BytesValue(b []byte) Value {
	return Value{kind: FieldBytes, raw: bytes.Clone(b)}
}

// StringValue wraps a string; its bytes are stored as-is
func StringValue(s string) Value {
	return Value{kind: FieldString, text: s}
}

// Kind returns the field kind the value belongs to
func (v Value) Kind() FieldKind {
	return v.kind
}

// Uint returns the integer as unsigned
func (v Value) Uint() uint64 {
	return uint64(v.num)
}

// Int returns the integer as signed
func (v Value) Int() int64 {
	return v.num
}

// Bytes returns a copy of the raw bytes
func (v Value) Bytes() []byte {
	return bytes.Clone(v.raw)
}

// Text returns the string contents
func (v Value) Text() string {
	return v.text
}

// Len returns the encoded length of a bytes or string value
func (v Value) Len() int {
	switch v.kind {
	case FieldBytes:
		return len(v.raw)
	case FieldString:
		return len(v.text)
	}
	return 0
}

// Equal reports whether both values have the same kind and contents
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case FieldInt:
		return v.num == o.num
	case FieldBytes:
		return bytes.Equal(v.raw, o.raw)
	default:
		return v.text == o.text
	}
}

// String renders the value for display: decimal, hex bytes or a quoted string
func (v Value) String() string {
	switch v.kind {
	case FieldInt:
		return strconv.FormatInt(v.num, 10)
	case FieldBytes:
		return hex.EncodeToString(v.raw)
	default:
		return strconv.Quote(v.text)
	}
}
