package memmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memory"
)

type write struct {
	region        string
	before, after []byte
}

type recorder struct {
	writes []write
	err    error
}

func (r *recorder) RegionWritten(region string, before, after []byte) error {
	r.writes = append(r.writes, write{region, before, after})
	return r.err
}

func newTestAccessor(t *testing.T, opts ...AccessorOption) (*Accessor, *memory.Buffer) {
	t.Helper()
	mem := memory.NewBuffer(0x40)
	require.NoError(t, mem.WriteAt([]byte{0x34, 0x12, 0xEE, 0x07}, 0x10))

	opts = append([]AccessorOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	a, err := NewAccessor(testMap(t), mem, opts...)
	require.NoError(t, err)
	return a, mem
}

func TestNewAccessor_TooSmall(t *testing.T) {
	_, err := NewAccessor(testMap(t), memory.NewBuffer(0x20))
	assert.ErrorIs(t, err, ErrRegionTooLarge)
}

func TestAccessor_Read(t *testing.T) {
	a, _ := newTestAccessor(t)

	rec, err := a.Read("Hero")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), rec.Field("HP").Uint())
	assert.Equal(t, uint64(7), rec.Field("Luck").Uint())

	raw, err := a.ReadRaw("Hero")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12, 0xEE, 0x07}, raw)

	_, err = a.Read("Nobody")
	assert.ErrorIs(t, err, ErrUnknownRegion)
	_, err = a.ReadRaw("Nobody")
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestAccessor_WritePreservesGaps(t *testing.T) {
	obs := &recorder{}
	a, mem := newTestAccessor(t, WithObserver(obs))

	rec := codec.NewRecord(map[string]codec.Value{
		"HP":   codec.UintValue(99),
		"Luck": codec.UintValue(3),
	})
	require.NoError(t, a.Write("Hero", rec))

	got := make([]byte, 4)
	require.NoError(t, mem.ReadAt(got, 0x10))
	assert.Equal(t, []byte{99, 0x00, 0xEE, 0x03}, got)

	require.Len(t, obs.writes, 1)
	assert.Equal(t, "Hero", obs.writes[0].region)
	assert.Equal(t, []byte{0x34, 0x12, 0xEE, 0x07}, obs.writes[0].before)
	assert.Equal(t, got, obs.writes[0].after)
}

func TestAccessor_WriteErrors(t *testing.T) {
	obs := &recorder{}
	a, mem := newTestAccessor(t, WithObserver(obs))

	err := a.Write("Hero", codec.NewRecord(map[string]codec.Value{"HP": codec.UintValue(1)}))
	assert.ErrorIs(t, err, codec.ErrMissingField)

	err = a.Write("Nobody", codec.NewRecord(nil))
	assert.ErrorIs(t, err, ErrUnknownRegion)

	rec, err := a.Read("Hero")
	require.NoError(t, err)
	err = a.Write("Hero", rec.With("Hp", codec.UintValue(1)))
	assert.ErrorIs(t, err, codec.ErrUnknownField)

	assert.Empty(t, obs.writes)
	got := make([]byte, 4)
	require.NoError(t, mem.ReadAt(got, 0x10))
	assert.Equal(t, []byte{0x34, 0x12, 0xEE, 0x07}, got, "failed writes leave memory alone")
}

func TestAccessor_Set(t *testing.T) {
	a, _ := newTestAccessor(t)

	rec, err := a.Set("Hero", "Luck", codec.UintValue(200))
	require.NoError(t, err)
	assert.Equal(t, uint64(200), rec.Field("Luck").Uint())
	assert.Equal(t, uint64(0x1234), rec.Field("HP").Uint())

	raw, err := a.ReadRaw("Hero")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12, 0xEE, 200}, raw)

	_, err = a.Set("Hero", "Luck", codec.UintValue(256))
	assert.ErrorIs(t, err, codec.ErrValueOutOfRange)

	_, err = a.Set("Hero", "Mana", codec.UintValue(1))
	assert.ErrorIs(t, err, codec.ErrUnknownField)
}

func TestAccessor_Update(t *testing.T) {
	a, _ := newTestAccessor(t)

	rec, err := a.Update("Bag", map[string]codec.Value{
		"Items": codec.BytesValue([]byte{1, 2, 3}),
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, rec.Field("Items").Bytes())

	raw, err := a.ReadRaw("Bag")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, raw)
}

func TestAccessor_WriteRaw(t *testing.T) {
	obs := &recorder{}
	a, _ := newTestAccessor(t, WithObserver(obs))

	require.NoError(t, a.WriteRaw("Ally", []byte{1, 2, 3, 4}))
	raw, err := a.ReadRaw("Ally")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, raw)
	assert.Len(t, obs.writes, 1)

	err = a.WriteRaw("Ally", []byte{1})
	assert.ErrorIs(t, err, codec.ErrLengthMismatch)
}

func TestAccessor_ObserverFailure(t *testing.T) {
	boom := errors.New("boom")
	a, _ := newTestAccessor(t, WithObserver(ObserverFunc(func(string, []byte, []byte) error {
		return boom
	})))

	_, err := a.Set("Hero", "Luck", codec.UintValue(1))
	assert.ErrorIs(t, err, boom)

	rec, err := a.Read("Hero")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Field("Luck").Uint(), "the write itself landed")
}

func TestAccessor_LenientCodec(t *testing.T) {
	schema := codec.MustSchema("name", 4, codec.Text("Name", 0, 4, 0xAC))
	mem := memory.BufferFrom([]byte("ABCD"))

	strict, err := NewAccessor(MustMap(Region{Name: "N", Schema: schema}), mem)
	require.NoError(t, err)
	_, err = strict.Read("N")
	assert.ErrorIs(t, err, codec.ErrMalformedString)

	lenient, err := NewAccessor(MustMap(Region{Name: "N", Schema: schema}), mem,
		WithCodec(codec.NewLayoutCodec(codec.WithLenientStrings())))
	require.NoError(t, err)
	rec, err := lenient.Read("N")
	require.NoError(t, err)
	assert.Equal(t, "ABCD", rec.Field("Name").Text())
	assert.True(t, lenient.Codec().LenientStrings())
	assert.Same(t, mem, lenient.Memory())
}
