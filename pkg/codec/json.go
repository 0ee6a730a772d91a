package codec

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MarshalJSON renders integers as numbers and byte arrays as arrays of
// numbers. Strings are JSON strings when they are valid UTF-8; game text
// usually is not, so anything else is rendered as an array of its bytes.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case FieldInt:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	case FieldBytes:
		return marshalBytes(v.raw)
	default:
		if !utf8.ValidString(v.text) {
			return marshalBytes([]byte(v.text))
		}
		return json.Marshal(v.text)
	}
}

func marshalBytes(b []byte) ([]byte, error) {
	ints := make([]int, len(b))
	for i, c := range b {
		ints[i] = int(c)
	}
	return json.Marshal(ints)
}

// MarshalJSON renders the record as an object keyed by field name
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.values)
}

// RecordFromJSON builds a record for s from a JSON object. Byte arrays may
// be given as an array of numbers or as a hex string, strings as a JSON
// string or an array of their raw bytes. Keys that name no field of s are
// rejected with UnknownField; absent fields stay absent.
func RecordFromJSON(s *Schema, data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Record{}, newError(InvalidJSON, s.name, "", "invalid JSON object: %v", err)
	}

	values := make(map[string]Value, len(raw))
	for name, in := range raw {
		f, ok := s.Field(name)
		if !ok {
			return Record{}, newError(UnknownField, s.name, name, "no such field")
		}
		v, err := jsonValue(s, f, in)
		if err != nil {
			return Record{}, err
		}
		values[name] = v
	}

	return Record{schema: s.name, values: values}, nil
}

func jsonValue(s *Schema, f FieldSpec, in any) (Value, error) {
	switch f.Kind {
	case FieldInt:
		n, ok := in.(json.Number)
		if !ok {
			return Value{}, newError(ValueOutOfRange, s.name, f.Name, "expected a number")
		}
		if i, err := n.Int64(); err == nil {
			return IntValue(i), nil
		}
		u, err := strconv.ParseUint(n.String(), 10, 64)
		if err != nil {
			return Value{}, newError(ValueOutOfRange, s.name, f.Name, "%s is not an integer", n)
		}
		return UintValue(u), nil

	case FieldBytes:
		switch t := in.(type) {
		case string:
			return ParseValue(f, t)
		case []any:
			out, err := jsonBytes(s, f, t)
			if err != nil {
				return Value{}, err
			}
			return Value{kind: FieldBytes, raw: out}, nil
		}
		return Value{}, newError(ValueOutOfRange, s.name, f.Name, "expected an array of bytes or a hex string")

	case FieldString:
		switch t := in.(type) {
		case string:
			return StringValue(t), nil
		case []any:
			out, err := jsonBytes(s, f, t)
			if err != nil {
				return Value{}, err
			}
			return StringValue(string(out)), nil
		}
		return Value{}, newError(ValueOutOfRange, s.name, f.Name, "expected a string or an array of bytes")
	}

	return Value{}, newError(InvalidSchema, s.name, f.Name, "unknown field kind %d", uint8(f.Kind))
}

func jsonBytes(s *Schema, f FieldSpec, in []any) ([]byte, error) {
	out := make([]byte, len(in))
	for i, e := range in {
		n, ok := e.(json.Number)
		if !ok {
			return nil, newError(ValueOutOfRange, s.name, f.Name, "element %d is not a number", i)
		}
		b, err := strconv.ParseUint(n.String(), 10, 8)
		if err != nil {
			return nil, newError(ValueOutOfRange, s.name, f.Name, "element %d: %s is not a byte", i, n)
		}
		out[i] = byte(b)
	}
	return out, nil
}

// ParseValue converts command-line text into a value for f. Integers accept
// Go literal syntax (42, 0x2a, -3), byte arrays are hex and strings are taken
// verbatim. Range checks happen at encode time.
func ParseValue(f FieldSpec, text string) (Value, error) {
	switch f.Kind {
	case FieldInt:
		if f.Signed || strings.HasPrefix(text, "-") {
			n, err := strconv.ParseInt(text, 0, 64)
			if err != nil {
				return Value{}, newError(ValueOutOfRange, "", f.Name, "%q is not an integer", text)
			}
			return IntValue(n), nil
		}
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return Value{}, newError(ValueOutOfRange, "", f.Name, "%q is not an integer", text)
		}
		return UintValue(n), nil

	case FieldBytes:
		b, err := hex.DecodeString(strings.ReplaceAll(text, " ", ""))
		if err != nil {
			return Value{}, newError(ValueOutOfRange, "", f.Name, "%q is not hex", text)
		}
		return Value{kind: FieldBytes, raw: b}, nil

	case FieldString:
		return StringValue(text), nil
	}

	return Value{}, newError(InvalidSchema, "", f.Name, "unknown field kind %d", uint8(f.Kind))
}
