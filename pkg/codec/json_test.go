package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_MarshalJSON(t *testing.T) {
	r := NewRecord(map[string]Value{
		"Level": UintValue(42),
		"Delta": IntValue(-3),
		"Name":  StringValue("ROTO"),
		"Bag":   BytesValue([]byte{1, 255}),
	})

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Level":42,"Delta":-3,"Name":"ROTO","Bag":[1,255]}`, string(data))
}

func TestRecordFromJSON(t *testing.T) {
	s := heroLike(t)

	buf, err := Encode(s, heroRecord())
	require.NoError(t, err)
	want, err := Decode(s, buf)
	require.NoError(t, err)

	data, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := RecordFromJSON(s, data)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, "character", got.Schema())
}

func TestRecordFromJSON_GameText(t *testing.T) {
	s := MustSchema("c", 5, Text("Name", 0, 5, 0xAC))
	buf := []byte{0x24, 0x90, 0x11, 0x0A, 0xAC}

	r, err := Decode(s, buf)
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name":[36,144,17,10]}`, string(data))

	back, err := RecordFromJSON(s, data)
	require.NoError(t, err)
	assert.True(t, r.Equal(back))

	out, err := Encode(s, back)
	require.NoError(t, err)
	assert.Equal(t, buf, out)
}

func TestValue_MarshalJSON_Text(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"ascii", StringValue("ROTO"), `"ROTO"`},
		{"control bytes stay a string", StringValue("A\x11"), `"A\u0011"`},
		{"invalid utf-8", StringValue("\x90\xff"), `[144,255]`},
		{"empty", StringValue(""), `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestRecordFromJSON_Partial(t *testing.T) {
	s := heroLike(t)

	r, err := RecordFromJSON(s, []byte(`{"HP": 12, "BagItems": "0a0b"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, uint64(12), r.Field("HP").Uint())
	assert.Equal(t, []byte{0x0a, 0x0b}, r.Field("BagItems").Bytes())
}

func TestRecordFromJSON_Errors(t *testing.T) {
	s := heroLike(t)

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not an object", `[1,2]`, ErrInvalidJSON},
		{"malformed", `{`, ErrInvalidJSON},
		{"unknown field", `{"Mana": 1}`, ErrUnknownField},
		{"fraction", `{"HP": 1.5}`, ErrValueOutOfRange},
		{"string for int", `{"HP": "1"}`, ErrValueOutOfRange},
		{"number for string", `{"Name": 1}`, ErrValueOutOfRange},
		{"byte overflow", `{"BagItems": [256]}`, ErrValueOutOfRange},
		{"bad hex", `{"BagItems": "zz"}`, ErrValueOutOfRange},
		{"object for bytes", `{"BagItems": {}}`, ErrValueOutOfRange},
		{"object for string", `{"Name": {}}`, ErrValueOutOfRange},
		{"string byte overflow", `{"Name": [36, 300]}`, ErrValueOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecordFromJSON(s, []byte(tt.in))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name string
		f    FieldSpec
		in   string
		want Value
	}{
		{"decimal", Uint8("A", 0), "42", UintValue(42)},
		{"hex", Uint16("A", 0), "0x2a", UintValue(42)},
		{"negative", Int8("A", 0), "-3", IntValue(-3)},
		{"negative unsigned parses", Uint8("A", 0), "-3", IntValue(-3)},
		{"bytes", ByteArray("A", 0, 4), "de ad be ef", BytesValue([]byte{0xde, 0xad, 0xbe, 0xef})},
		{"string", Text("A", 0, 5, 0xAC), "ROTO", StringValue("ROTO")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.f, tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseValue(Uint8("A", 0), "twelve")
	assert.ErrorIs(t, err, ErrValueOutOfRange)
	_, err = ParseValue(ByteArray("A", 0, 2), "xyz")
	assert.ErrorIs(t, err, ErrValueOutOfRange)
}
