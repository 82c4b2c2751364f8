package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/douzebis/yb/device"
)

// Store is the in-memory image of all object slots of one device, together
// with the store-wide parameters and the monotonic store age (the highest age
// observed across all objects).
//
// One Store corresponds to one session against one device: it is owned by one
// operation at a time and performs no synchronization of its own.
type Store struct {
	Params

	// IDs maps slot index to device object id.
	IDs []device.ObjectID

	// Age is the store-wide monotonic age counter.
	Age uint32

	// Objects holds one entry per slot, in index order.
	Objects []*Object
}

// ParseParams extracts the store-wide parameters from the raw record of
// object 0, the metadata object. Any defect that prevents establishing the
// parameters — bad magic, truncation, out-of-range counts, a size field that
// does not match the record — fails with ErrNotFormatted.
func ParseParams(raw []byte) (Params, error) {
	if len(raw) < headerLen {
		return Params{}, fmt.Errorf("%w: metadata object holds %d bytes", ErrNotFormatted, len(raw))
	}
	if binary.LittleEndian.Uint32(raw[offMagic:]) != Magic {
		return Params{}, fmt.Errorf("%w: bad magic %#08x", ErrNotFormatted,
			binary.LittleEndian.Uint32(raw[offMagic:]))
	}
	p := Params{
		ObjectCount:       int(raw[offCount]),
		ObjectSize:        int(binary.LittleEndian.Uint16(raw[offSize:])),
		EncryptionKeySlot: raw[offKeySlot],
	}
	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("%w: %w", ErrNotFormatted, err)
	}
	if p.ObjectSize != len(raw) {
		return Params{}, fmt.Errorf("%w: object size field %d, record holds %d bytes",
			ErrNotFormatted, p.ObjectSize, len(raw))
	}
	return p, nil
}

// readObject reads one slot, retrying once on a transient I/O error.
func readObject(dev device.Device, id device.ObjectID) ([]byte, error) {
	raw, err := dev.ReadObject(id)
	if err != nil && device.IsTransient(err) {
		raw, err = dev.ReadObject(id)
	}
	return raw, err
}

// Load reads and decodes the full store image from the device. Object 0
// provides the store-wide parameters; slots that fail to decode — or were
// never written — are reset in memory and marked dirty, for Sanitize and a
// later Sync to repair. Load itself fails only on ErrNotFormatted or a device
// error that survives one retry.
func Load(dev device.Device, ids []device.ObjectID) (*Store, error) {
	if len(ids) == 0 {
		return nil, ErrBadObjectCount
	}
	raw0, err := readObject(dev, ids[0])
	if errors.Is(err, device.ErrObjectEmpty) {
		return nil, fmt.Errorf("%w: metadata object never written", ErrNotFormatted)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read metadata object: %w", err)
	}
	p, err := ParseParams(raw0)
	if err != nil {
		return nil, err
	}
	if p.ObjectCount > len(ids) {
		return nil, fmt.Errorf("%w: store spans %d objects, %d ids configured",
			ErrNotFormatted, p.ObjectCount, len(ids))
	}

	s := &Store{
		Params:  p,
		IDs:     ids[:p.ObjectCount],
		Objects: make([]*Object, 0, p.ObjectCount),
	}
	for i := 0; i < p.ObjectCount; i++ {
		raw := raw0
		if i != 0 {
			raw, err = readObject(dev, s.IDs[i])
			if err != nil && !errors.Is(err, device.ErrObjectEmpty) {
				return nil, fmt.Errorf("store: read object %d: %w", i, err)
			}
		}

		obj := &Object{Index: i}
		if err != nil || raw == nil {
			obj.Reset()
		} else if decoded, hdrAge, decErr := DecodeObject(p, i, raw); decErr != nil {
			obj.Reset()
		} else {
			obj = decoded
			if hdrAge > s.Age {
				s.Age = hdrAge
			}
		}
		if obj.Age > s.Age {
			s.Age = obj.Age
		}
		s.Objects = append(s.Objects, obj)
		err = nil
	}
	return s, nil
}

// NewFormatted builds a fresh store image of empty objects, all dirty, ready
// to be synced to the device.
func NewFormatted(p Params, ids []device.ObjectID) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ObjectCount > len(ids) {
		return nil, fmt.Errorf("%w: store spans %d objects, %d ids configured",
			ErrBadObjectCount, p.ObjectCount, len(ids))
	}
	s := &Store{
		Params:  p,
		IDs:     ids[:p.ObjectCount],
		Objects: make([]*Object, 0, p.ObjectCount),
	}
	for i := 0; i < p.ObjectCount; i++ {
		obj := &Object{Index: i}
		obj.Reset()
		s.Objects = append(s.Objects, obj)
	}
	return s, nil
}

// Sync writes every dirty slot to the device in ascending index order,
// clearing each dirty bit as its write succeeds. On failure the remaining
// dirty bits stay set and the first error is returned; the index order
// guarantees that the post-sanitize result of the next load is deterministic
// given the pattern of completed writes.
func (s *Store) Sync(dev device.Device, auth device.Auth) error {
	for i, obj := range s.Objects {
		if !obj.Dirty {
			continue
		}
		data, err := obj.Encode(s.Params, s.Age)
		if err != nil {
			return fmt.Errorf("store: encode object %d: %w", i, err)
		}
		if err := dev.WriteObject(s.IDs[i], data, auth); err != nil {
			return fmt.Errorf("store: write object %d: %w", i, err)
		}
		obj.Dirty = false
	}
	return nil
}

// freeIndices returns the k lowest empty slot indices, or ErrStoreFull when
// fewer than k slots are free.
func (s *Store) freeIndices(k int) ([]int, error) {
	indices := make([]int, 0, k)
	for i, obj := range s.Objects {
		if obj.Age != 0 {
			continue
		}
		indices = append(indices, i)
		if len(indices) == k {
			return indices, nil
		}
	}
	return nil, ErrStoreFull
}

// findHead returns the head chunk carrying the given blob name, or nil.
func (s *Store) findHead(name string) *Object {
	for _, obj := range s.Objects {
		if obj.IsHead() && obj.BlobName == name {
			return obj
		}
	}
	return nil
}
