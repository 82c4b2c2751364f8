package store

import (
	"sort"
)

// BlobInfo describes one blob as reported by Blobs.
type BlobInfo struct {
	Name      string
	Encrypted bool
	Chunks    int
	Size      uint32 // size after decryption
	ModTime   int64  // seconds since the Unix epoch
}

// chainLen counts the chunks of a valid chain.
func (s *Store) chainLen(head *Object) int {
	n := 1
	obj := head
	for int(obj.Next) != obj.Index {
		obj = s.Objects[obj.Next]
		n++
	}
	return n
}

// resetChain resets every chunk of a valid chain, head included.
func (s *Store) resetChain(head *Object) {
	obj := head
	for {
		next := int(obj.Next)
		obj.Reset()
		if next == obj.Index {
			break
		}
		obj = s.Objects[next]
	}
}

// WriteBlob lays a blob out across freshly allocated chunks in the in-memory
// image. payload is the on-wire bytes (post-envelope when encrypted);
// unencSize is the size to report back to callers after decryption. Any
// existing chain with the same name is reset first, making its slots
// available to the new chain. Newly created chunks receive consecutive ages
// above the current store age, head first, and the store age advances by the
// chunk count. The caller syncs.
//
// Fails with ErrStoreFull when not enough slots are free; the image is then
// not worth syncing (the reset of a replaced chain is discarded with it).
func (s *Store) WriteBlob(name string, payload []byte, keySlot uint8, unencSize uint32, mtime int64) error {
	headCap, err := s.HeadCapacity(name)
	if err != nil {
		return err
	}
	bodyCap := s.BodyCapacity()

	if old := s.findHead(name); old != nil {
		s.resetChain(old)
	}

	k := 1
	for remaining := len(payload) - headCap; remaining > 0; remaining -= bodyCap {
		k++
	}
	indices, err := s.freeIndices(k)
	if err != nil {
		return err
	}

	end := 0
	for pos, index := range indices {
		next := index
		if pos < len(indices)-1 {
			next = indices[pos+1]
		}

		size := bodyCap
		if pos == 0 {
			size = headCap
		}
		start := end
		if end += size; end > len(payload) {
			end = len(payload)
		}

		obj := &Object{
			Index:    index,
			Dirty:    true,
			Age:      s.Age + uint32(pos) + 1,
			ChunkPos: uint16(pos),
			Next:     uint8(next),
			Payload:  payload[start:end],
		}
		if pos == 0 {
			obj.BlobMTime = mtime
			obj.BlobSize = uint32(len(payload))
			obj.BlobKeySlot = keySlot
			obj.BlobUnencSize = unencSize
			obj.BlobName = name
		}
		s.Objects[index] = obj
	}
	s.Age += uint32(k)
	return nil
}

// ReadBlob assembles the named blob from its chain. It returns the on-wire
// payload truncated to the blob size, together with the head chunk carrying
// the blob metadata. The image must be sanitized.
func (s *Store) ReadBlob(name string) ([]byte, *Object, error) {
	head := s.findHead(name)
	if head == nil {
		return nil, nil, ErrNotFound
	}
	payload := make([]byte, 0, int(head.BlobSize))
	obj := head
	for {
		payload = append(payload, obj.Payload...)
		if int(obj.Next) == obj.Index {
			break
		}
		obj = s.Objects[obj.Next]
	}
	if len(payload) > int(head.BlobSize) {
		payload = payload[:head.BlobSize]
	}
	return payload, head, nil
}

// RemoveBlob resets every chunk of the named blob in the in-memory image.
// Removal does not consume store ages. The caller syncs.
func (s *Store) RemoveBlob(name string) error {
	head := s.findHead(name)
	if head == nil {
		return ErrNotFound
	}
	s.resetChain(head)
	return nil
}

// Blobs lists the surviving heads, sorted by name.
func (s *Store) Blobs() []BlobInfo {
	var infos []BlobInfo
	for _, head := range s.Objects {
		if !head.IsHead() {
			continue
		}
		infos = append(infos, BlobInfo{
			Name:      head.BlobName,
			Encrypted: head.BlobKeySlot != 0,
			Chunks:    s.chainLen(head),
			Size:      head.BlobUnencSize,
			ModTime:   head.BlobMTime,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
