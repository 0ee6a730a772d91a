// Package codec provides byte-accurate decoding and encoding of fixed-layout
// binary records.
//
// The codec package is the foundation of SaveLayout. It turns a flat byte
// buffer (one record copied out of emulated RAM or a save file) into a
// structured Record and back again, preserving the exact byte length and
// the offset of every field.
//
// # Schemas
//
// A Schema is an ordered list of FieldSpec values plus a fixed total length:
//
//	hero := codec.MustSchema("character", 60,
//	    codec.BitField("Level", 0, 1, 0x7F, 1),
//	    codec.BitField("LevelFlag", 0, 1, 0x01, 0).Unknown(),
//	    codec.Uint32("XP", 1),
//	    codec.Text("Name", 18, 5, 0xAC),
//	    codec.ByteArray("BagItems", 26, 34),
//	)
//
// Field kinds:
//   - Integer: 1, 2 or 4 bytes, little-endian, unsigned or signed
//   - Bit-sub-field: an integer with a mask and shift inside a container
//   - Byte array: a fixed-width range copied verbatim
//   - String: a fixed-width range terminated by a declared byte
//
// Schemas are validated when constructed. No two fields may overlap unless
// both are bit-sub-fields of the same container with disjoint masks, and
// every field must lie inside the record. A Schema is immutable afterwards.
//
// # Decoding
//
// Decode reads every field of the schema:
//
//	record, err := codec.Decode(hero, buf)
//	if err != nil {
//	    return err
//	}
//	level := record.Field("Level").Uint()
//
// The buffer must be exactly Schema.Size bytes long.
//
// # Encoding
//
// Encode writes every field at its declared offset into a zeroed buffer of
// Schema.Size bytes. Bit-sub-fields that share a container are combined from
// a zero baseline, so every member of the group must be present. Patch does
// the same on top of an existing buffer and keeps the bytes that no field
// covers.
//
// # Unknown Bits
//
// Bits whose meaning is not known are declared as opaque sub-fields
// (FieldSpec.Unknown). They are decoded like any other field and written
// back verbatim, so a decode/encode round trip never disturbs them.
//
// # Strings
//
// A string field holds up to Width-1 bytes followed by its terminator. By
// default a string with no terminator inside its width is rejected with
// MalformedString. WithLenientStrings treats the full width as the string
// instead and allows Width bytes on encode.
//
// String bytes are kept as-is. MarshalJSON emits a JSON string when they are
// valid UTF-8 and an array of byte values otherwise; RecordFromJSON accepts
// both.
//
// # Error Handling
//
// Every failure is a *Error carrying an ErrorKind:
//   - LengthMismatch: buffer length differs from the schema length
//   - MissingField: the record has no value for a declared field
//   - ValueOutOfRange: a value does not fit its field
//   - IncompleteBitGroup: a shared container is missing one of its members
//   - MalformedString: a string has no terminator within its width
//   - InvalidSchema: the field list violates a layout invariant
//   - UnknownField: the record names a field the schema does not declare
//   - InvalidJSON: RecordFromJSON was given something other than an object
//
// Use errors.Is with the Err* sentinels to test the kind.
//
// # Thread Safety
//
// Schema and LayoutCodec are immutable and safe for concurrent use. Record
// and Value are immutable values; With returns a modified copy.
package codec
