package store

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{ObjectCount: 12, ObjectSize: 3052, EncryptionKeySlot: 0x9e}
}

func TestEncodeDecodeEmpty(t *testing.T) {
	p := testParams()
	obj := &Object{Index: 3}

	raw, err := obj.Encode(p, 7)
	require.NoError(t, err)
	assert.Len(t, raw, p.ObjectSize)
	assert.Equal(t, uint32(Magic), binary.LittleEndian.Uint32(raw))

	decoded, storeAge, err := DecodeObject(p, 3, raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), storeAge)
	assert.Equal(t, uint32(0), decoded.Age)
	assert.False(t, decoded.IsHead())
}

func TestEncodeDecodeHead(t *testing.T) {
	p := testParams()
	obj := &Object{
		Index:         0,
		Age:           5,
		ChunkPos:      0,
		Next:          2,
		BlobMTime:     1700000000,
		BlobSize:      6000,
		BlobKeySlot:   0x9e,
		BlobUnencSize: 5900,
		BlobName:      "backup",
		Payload:       []byte("hello payload"),
	}

	raw, err := obj.Encode(p, 9)
	require.NoError(t, err)

	decoded, storeAge, err := DecodeObject(p, 0, raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), storeAge)
	assert.Equal(t, uint32(5), decoded.Age)
	assert.True(t, decoded.IsHead())
	assert.Equal(t, uint8(2), decoded.Next)
	assert.Equal(t, int64(1700000000), decoded.BlobMTime)
	assert.Equal(t, uint32(6000), decoded.BlobSize)
	assert.Equal(t, uint8(0x9e), decoded.BlobKeySlot)
	assert.Equal(t, uint32(5900), decoded.BlobUnencSize)
	assert.Equal(t, "backup", decoded.BlobName)

	// The decoded payload spans the full capacity, zero padded.
	capacity, err := p.HeadCapacity("backup")
	require.NoError(t, err)
	assert.Len(t, decoded.Payload, capacity)
	assert.Equal(t, []byte("hello payload"), decoded.Payload[:13])
}

func TestEncodeDecodeBody(t *testing.T) {
	p := testParams()
	obj := &Object{
		Index:    4,
		Age:      6,
		ChunkPos: 1,
		Next:     4, // terminal
		Payload:  []byte{1, 2, 3},
	}

	raw, err := obj.Encode(p, 6)
	require.NoError(t, err)

	decoded, _, err := DecodeObject(p, 4, raw)
	require.NoError(t, err)
	assert.False(t, decoded.IsHead())
	assert.Equal(t, uint16(1), decoded.ChunkPos)
	assert.Len(t, decoded.Payload, p.BodyCapacity())
}

func TestEncodeValidatesRanges(t *testing.T) {
	p := testParams()

	tests := []struct {
		name string
		obj  *Object
		want error
	}{
		{
			"next out of range",
			&Object{Age: 1, ChunkPos: 1, Next: 12, Payload: []byte{1}},
			ErrValueRange,
		},
		{
			"negative mtime",
			&Object{Age: 1, Next: 0, BlobMTime: -1, BlobName: "x", Payload: []byte{1}},
			ErrValueRange,
		},
		{
			"empty name on head",
			&Object{Age: 1, Next: 0, Payload: []byte{1}},
			ErrInvalidName,
		},
		{
			"payload exceeds capacity",
			&Object{Age: 1, ChunkPos: 1, Next: 0, Payload: make([]byte, 3052)},
			ErrValueRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.obj.Encode(p, 0)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeRejectsCorruptRecords(t *testing.T) {
	p := testParams()
	good, err := (&Object{}).Encode(p, 0)
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		_, _, err := DecodeObject(p, 1, good[:10])
		assert.ErrorIs(t, err, ErrObjectTooShort)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, _, err := DecodeObject(p, 1, good[:2000])
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("bad magic", func(t *testing.T) {
		raw := append([]byte(nil), good...)
		raw[0] ^= 0xFF
		_, _, err := DecodeObject(p, 1, raw)
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("object count mismatch", func(t *testing.T) {
		raw := append([]byte(nil), good...)
		raw[4] = 13
		_, _, err := DecodeObject(p, 1, raw)
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("key slot mismatch", func(t *testing.T) {
		raw := append([]byte(nil), good...)
		raw[7] = 0x9a
		_, _, err := DecodeObject(p, 1, raw)
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("empty blob name", func(t *testing.T) {
		head := &Object{Age: 1, Next: 1, BlobName: "x", Payload: []byte{1}}
		raw, err := head.Encode(p, 1)
		require.NoError(t, err)
		raw[offNameLen] = 0
		_, _, err = DecodeObject(p, 1, raw)
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})

	t.Run("invalid UTF-8 name", func(t *testing.T) {
		head := &Object{Age: 1, Next: 1, BlobName: "xy", Payload: []byte{1}}
		raw, err := head.Encode(p, 1)
		require.NoError(t, err)
		raw[offName] = 0xFF
		raw[offName+1] = 0xFE
		_, _, err = DecodeObject(p, 1, raw)
		assert.ErrorIs(t, err, ErrCorruptHeader)
	})
}

func TestParseParams(t *testing.T) {
	p := testParams()
	raw, err := (&Object{}).Encode(p, 3)
	require.NoError(t, err)

	parsed, err := ParseParams(raw)
	require.NoError(t, err)
	assert.Equal(t, p, parsed)

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[1] ^= 0x55
		_, err := ParseParams(bad)
		assert.ErrorIs(t, err, ErrNotFormatted)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := ParseParams(raw[:8])
		assert.ErrorIs(t, err, ErrNotFormatted)
	})

	t.Run("size field mismatch", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint16(bad[offSize:], 1024)
		_, err := ParseParams(bad)
		assert.ErrorIs(t, err, ErrNotFormatted)
	})

	t.Run("count out of range", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[offCount] = 17
		_, err := ParseParams(bad)
		assert.ErrorIs(t, err, ErrNotFormatted)
	})
}

func TestCapacities(t *testing.T) {
	p := testParams()
	assert.Equal(t, 3052-19, p.BodyCapacity())

	capacity, err := p.HeadCapacity("hello")
	require.NoError(t, err)
	assert.Equal(t, 3052-37-5, capacity)

	_, err = p.HeadCapacity("")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = p.HeadCapacity(string(make([]byte, 256)))
	assert.ErrorIs(t, err, ErrInvalidName)
}
