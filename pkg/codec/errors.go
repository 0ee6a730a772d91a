package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes a codec failure
type ErrorKind string

const (
	LengthMismatch     ErrorKind = "length_mismatch"
	MissingField       ErrorKind = "missing_field"
	ValueOutOfRange    ErrorKind = "value_out_of_range"
	IncompleteBitGroup ErrorKind = "incomplete_bit_group"
	MalformedString    ErrorKind = "malformed_string"
	InvalidSchema      ErrorKind = "invalid_schema"
	UnknownField       ErrorKind = "unknown_field"
	InvalidJSON        ErrorKind = "invalid_json"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrLengthMismatch     = &Error{Kind: LengthMismatch}
	ErrMissingField       = &Error{Kind: MissingField}
	ErrValueOutOfRange    = &Error{Kind: ValueOutOfRange}
	ErrIncompleteBitGroup = &Error{Kind: IncompleteBitGroup}
	ErrMalformedString    = &Error{Kind: MalformedString}
	ErrInvalidSchema      = &Error{Kind: InvalidSchema}
	ErrUnknownField       = &Error{Kind: UnknownField}
	ErrInvalidJSON        = &Error{Kind: InvalidJSON}
)

// Error is returned by every codec operation
type Error struct {
	Kind   ErrorKind
	Schema string
	Field  string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("codec: ")
	b.WriteString(string(e.Kind))

	if e.Schema != "" || e.Field != "" {
		b.WriteString(" at ")
		switch {
		case e.Schema != "" && e.Field != "":
			b.WriteString(e.Schema)
			b.WriteByte('.')
			b.WriteString(e.Field)
		case e.Schema != "":
			b.WriteString(e.Schema)
		default:
			b.WriteString(e.Field)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	return b.String()
}

// Is reports whether target is a codec error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the ErrorKind from err, if err wraps a codec error
func KindOf(err error) (ErrorKind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

func newError(kind ErrorKind, schema, field, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Schema: schema,
		Field:  field,
		Detail: fmt.Sprintf(format, args...),
	}
}
