package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		fields []FieldSpec
	}{
		{"zero size", 0, nil},
		{"unnamed field", 4, []FieldSpec{Uint8("", 0)}},
		{"zero width", 4, []FieldSpec{ByteArray("A", 0, 0)}},
		{"negative offset", 4, []FieldSpec{Uint8("A", -1)}},
		{"past end", 4, []FieldSpec{Uint32("A", 1)}},
		{"odd int width", 4, []FieldSpec{{Name: "A", Width: 3, Kind: FieldInt}}},
		{"duplicate name", 4, []FieldSpec{Uint8("A", 0), Uint8("A", 1)}},
		{"overlap", 4, []FieldSpec{Uint16("A", 0), Uint8("B", 1)}},
		{"overlap from left", 4, []FieldSpec{Uint8("B", 1), Uint16("A", 0)}},
		{"same offset plain", 4, []FieldSpec{Uint8("A", 0), Uint8("B", 0)}},
		{"bit field over plain", 4, []FieldSpec{Uint8("A", 0), BitField("B", 0, 1, 0x01, 0)}},
		{"overlapping masks", 4, []FieldSpec{BitField("A", 0, 1, 0x0F, 0), BitField("B", 0, 1, 0x0F, 2)}},
		{"mixed container widths", 4, []FieldSpec{BitField("A", 0, 1, 0x0F, 0), BitField("B", 0, 2, 0x0F, 4)}},
		{"sparse mask", 4, []FieldSpec{BitField("A", 0, 1, 0x05, 0)}},
		{"shift overflow", 4, []FieldSpec{BitField("A", 0, 1, 0x7F, 2)}},
		{"shift without mask", 4, []FieldSpec{{Name: "A", Width: 1, Kind: FieldInt, Shift: 1}}},
		{"masked bytes", 4, []FieldSpec{{Name: "A", Width: 2, Kind: FieldBytes, Mask: 1}}},
		{"signed string", 4, []FieldSpec{{Name: "A", Width: 2, Kind: FieldString, Signed: true}}},
		{"unknown kind", 4, []FieldSpec{{Name: "A", Width: 1, Kind: FieldKind(9)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema("bad", tt.size, tt.fields...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSchema)
		})
	}
}

func TestMustSchema_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustSchema("bad", 1, Uint16("A", 0))
	})
}

func TestSchema_Accessors(t *testing.T) {
	s := heroLike(t)

	assert.Equal(t, "character", s.Name())
	assert.Equal(t, 60, s.Size())
	assert.Equal(t, 15, s.Len())

	f, ok := s.Field("HP")
	require.True(t, ok)
	assert.Equal(t, 7, f.Offset)
	assert.Equal(t, 2, f.Width)

	_, ok = s.Field("Nope")
	assert.False(t, ok)

	fields := s.Fields()
	fields[0].Name = "mutated"
	assert.Equal(t, "Level", s.Fields()[0].Name)
}

func TestSchema_FieldsAt(t *testing.T) {
	s := heroLike(t)

	names := func(fs []FieldSpec) []string {
		var out []string
		for _, f := range fs {
			out = append(out, f.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Level", "LevelFlag"}, names(s.FieldsAt(0)))
	assert.Equal(t, []string{"XP"}, names(s.FieldsAt(3)))
	assert.Equal(t, []string{"Name"}, names(s.FieldsAt(22)))
	assert.Empty(t, s.FieldsAt(24))
	assert.Equal(t, []string{"BagItems"}, names(s.FieldsAt(59)))
}

func TestSchema_Siblings(t *testing.T) {
	s := heroLike(t)

	assert.Equal(t, []string{"LevelFlag"}, s.Siblings("Level"))
	assert.Equal(t, []string{"Level"}, s.Siblings("LevelFlag"))
	assert.Nil(t, s.Siblings("XP"))
	assert.Nil(t, s.Siblings("missing"))
}

func TestSchema_Coverage(t *testing.T) {
	s := heroLike(t)

	assert.Equal(t, 58, s.Covered())
	assert.InDelta(t, 96.67, s.Coverage(), 0.01)
	assert.Equal(t, []Extent{{Offset: 24, Size: 2}}, s.Gaps())

	sparse := MustSchema("sparse", 10, Uint8("A", 2), Uint8("B", 5))
	assert.Equal(t, []Extent{
		{Offset: 0, Size: 2},
		{Offset: 3, Size: 2},
		{Offset: 6, Size: 4},
	}, sparse.Gaps())

	empty := MustSchema("empty", 4)
	assert.Equal(t, []Extent{{Offset: 0, Size: 4}}, empty.Gaps())
	assert.Zero(t, empty.Coverage())
}

func TestFieldSpec_TypeName(t *testing.T) {
	tests := []struct {
		f    FieldSpec
		want string
	}{
		{Uint8("A", 0), "uint8"},
		{Uint16("A", 0), "uint16"},
		{Int32("A", 0), "int32"},
		{BitField("A", 0, 1, 0x7F, 1), "uint8:7@1"},
		{ByteArray("A", 0, 34), "byte[34]"},
		{Text("A", 0, 5, 0xAC), "char[5]"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.TypeName())
		})
	}
}

func TestFieldSpec_Modifiers(t *testing.T) {
	f := Uint8("Spells", 23).Describe("learned spells").Unknown()
	assert.Equal(t, "learned spells", f.Doc)
	assert.True(t, f.Opaque)
	assert.Equal(t, 24, f.End())
	assert.Equal(t, 8, f.BitWidth())
	assert.False(t, f.IsBitField())
}

func TestFieldKind_Text(t *testing.T) {
	for _, k := range []FieldKind{FieldInt, FieldBytes, FieldString} {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var back FieldKind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	var k FieldKind
	assert.Error(t, k.UnmarshalText([]byte("float")))
	_, err := FieldKind(7).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "kind(7)", FieldKind(7).String())
}
