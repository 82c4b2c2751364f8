package store

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Object is the in-memory image of one PIV data-object slot. The variant is
// carried by two tags: Age == 0 means the slot is empty, and ChunkPos == 0 on
// a non-empty object means the chunk is the head of its blob and the Blob*
// fields are meaningful.
type Object struct {
	// Index is the slot position in the store. Not serialized.
	Index int

	// Dirty marks an object whose in-memory state differs from the device.
	Dirty bool

	// Age is the store-age value at the time this object was written.
	// 0 means the slot is empty.
	Age uint32

	// ChunkPos is the chunk's position within its blob, 0 for the head.
	ChunkPos uint16

	// Next is the slot index of the next chunk. The final chunk points to
	// itself.
	Next uint8

	// Head-only blob metadata.
	BlobMTime     int64  // seconds since the Unix epoch
	BlobSize      uint32 // on-wire payload size across all chunks
	BlobKeySlot   uint8  // device key slot, 0 when unencrypted
	BlobUnencSize uint32 // payload size after decryption
	BlobName      string

	// Payload is the chunk's contribution to the blob. A decoded object
	// holds the whole remainder of its record, zero padding included;
	// readers truncate to the head's BlobSize.
	Payload []byte
}

// IsHead reports whether the object is the head chunk of a blob.
func (o *Object) IsHead() bool {
	return o.Age != 0 && o.ChunkPos == 0
}

// Reset returns the object to the empty state and marks it dirty.
func (o *Object) Reset() {
	o.Age = 0
	o.ChunkPos = 0
	o.Next = 0
	o.BlobMTime = 0
	o.BlobSize = 0
	o.BlobKeySlot = 0
	o.BlobUnencSize = 0
	o.BlobName = ""
	o.Payload = nil
	o.Dirty = true
}

// headerOverhead returns the byte offset at which the chunk payload starts.
func (o *Object) headerOverhead() int {
	if o.Age == 0 {
		return headerLen
	}
	if o.ChunkPos != 0 {
		return chunkLen
	}
	return offName + len(o.BlobName)
}

// Encode serializes the object into exactly p.ObjectSize bytes, padding the
// tail with zeros. storeAge is the store-wide age copied into the header.
// Every field is range-checked against its declared byte width.
func (o *Object) Encode(p Params, storeAge uint32) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	buf := make([]byte, p.ObjectSize)
	binary.LittleEndian.PutUint32(buf[offMagic:], Magic)
	buf[offCount] = byte(p.ObjectCount)
	binary.LittleEndian.PutUint16(buf[offSize:], uint16(p.ObjectSize))
	buf[offKeySlot] = p.EncryptionKeySlot
	binary.LittleEndian.PutUint32(buf[offStoreAge:], storeAge)
	binary.LittleEndian.PutUint32(buf[offObjectAge:], o.Age)

	if o.Age == 0 {
		return buf, nil
	}

	binary.LittleEndian.PutUint16(buf[offChunkPos:], o.ChunkPos)
	if int(o.Next) >= p.ObjectCount {
		return nil, fmt.Errorf("%w: next chunk index %d", ErrValueRange, o.Next)
	}
	buf[offNext] = o.Next

	start := chunkLen
	if o.ChunkPos == 0 {
		if o.BlobMTime < 0 {
			return nil, fmt.Errorf("%w: modification time %d", ErrValueRange, o.BlobMTime)
		}
		binary.LittleEndian.PutUint64(buf[offMTime:], uint64(o.BlobMTime))
		binary.LittleEndian.PutUint32(buf[offBlobSize:], o.BlobSize)
		buf[offBlobKeySlot] = o.BlobKeySlot
		binary.LittleEndian.PutUint32(buf[offUnencSize:], o.BlobUnencSize)
		n := len(o.BlobName)
		if n == 0 || n > MaxNameLen {
			return nil, ErrInvalidName
		}
		buf[offNameLen] = byte(n)
		copy(buf[offName:], o.BlobName)
		start = offName + n
	}

	if len(o.Payload) > p.ObjectSize-start {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds capacity %d",
			ErrValueRange, len(o.Payload), p.ObjectSize-start)
	}
	copy(buf[start:], o.Payload)
	return buf, nil
}

// DecodeObject parses one raw object record against the store-wide
// parameters. It returns the decoded object and the store-age value found in
// the header. Disagreement with the parameters or malformed blob metadata
// fails with ErrCorruptHeader; a record shorter than its layout requires
// fails with ErrObjectTooShort.
func DecodeObject(p Params, index int, raw []byte) (*Object, uint32, error) {
	if len(raw) < headerLen {
		return nil, 0, fmt.Errorf("%w: object %d holds %d bytes", ErrObjectTooShort, index, len(raw))
	}
	if len(raw) != p.ObjectSize {
		return nil, 0, fmt.Errorf("%w: object %d holds %d bytes, store uses %d",
			ErrCorruptHeader, index, len(raw), p.ObjectSize)
	}
	if binary.LittleEndian.Uint32(raw[offMagic:]) != Magic {
		return nil, 0, fmt.Errorf("%w: object %d has bad magic", ErrCorruptHeader, index)
	}
	if int(raw[offCount]) != p.ObjectCount {
		return nil, 0, fmt.Errorf("%w: object %d has bad object count", ErrCorruptHeader, index)
	}
	if int(binary.LittleEndian.Uint16(raw[offSize:])) != p.ObjectSize {
		return nil, 0, fmt.Errorf("%w: object %d has bad object size", ErrCorruptHeader, index)
	}
	if raw[offKeySlot] != p.EncryptionKeySlot {
		return nil, 0, fmt.Errorf("%w: object %d has bad encryption key slot", ErrCorruptHeader, index)
	}

	storeAge := binary.LittleEndian.Uint32(raw[offStoreAge:])
	o := &Object{
		Index: index,
		Age:   binary.LittleEndian.Uint32(raw[offObjectAge:]),
	}
	if o.Age == 0 {
		return o, storeAge, nil
	}

	o.ChunkPos = binary.LittleEndian.Uint16(raw[offChunkPos:])
	o.Next = raw[offNext]

	start := chunkLen
	if o.ChunkPos == 0 {
		o.BlobMTime = int64(binary.LittleEndian.Uint64(raw[offMTime:]))
		o.BlobSize = binary.LittleEndian.Uint32(raw[offBlobSize:])
		o.BlobKeySlot = raw[offBlobKeySlot]
		o.BlobUnencSize = binary.LittleEndian.Uint32(raw[offUnencSize:])
		n := int(raw[offNameLen])
		if n == 0 {
			return nil, 0, fmt.Errorf("%w: object %d has empty blob name", ErrCorruptHeader, index)
		}
		if offName+n > len(raw) {
			return nil, 0, fmt.Errorf("%w: object %d blob name", ErrObjectTooShort, index)
		}
		name := string(raw[offName : offName+n])
		if !utf8.ValidString(name) {
			return nil, 0, fmt.Errorf("%w: object %d blob name is not UTF-8", ErrCorruptHeader, index)
		}
		o.BlobName = name
		start = offName + n
	}

	o.Payload = append([]byte(nil), raw[start:]...)
	return o, storeAge, nil
}
