package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/douzebis/yb/device"
)

// cleanStore builds an in-memory store of empty, non-dirty objects.
func cleanStore(t *testing.T, p Params) *Store {
	t.Helper()
	s, err := NewFormatted(p, device.DefaultObjectIDs())
	require.NoError(t, err)
	for _, obj := range s.Objects {
		obj.Dirty = false
	}
	return s
}

// placeChain lays a blob chain into the given slots with consecutive ages
// starting at firstAge and 100 payload bytes per chunk.
func placeChain(s *Store, name string, firstAge uint32, indices []int) {
	for pos, index := range indices {
		next := index
		if pos < len(indices)-1 {
			next = indices[pos+1]
		}
		obj := &Object{
			Index:    index,
			Age:      firstAge + uint32(pos),
			ChunkPos: uint16(pos),
			Next:     uint8(next),
			Payload:  make([]byte, 100),
		}
		if pos == 0 {
			obj.BlobName = name
			obj.BlobSize = uint32(100 * len(indices))
			obj.BlobUnencSize = obj.BlobSize
			obj.BlobMTime = 1700000000
		}
		s.Objects[index] = obj
	}
	if s.Age < firstAge+uint32(len(indices))-1 {
		s.Age = firstAge + uint32(len(indices)) - 1
	}
}

// checkInvariants asserts the post-sanitize properties: every non-empty
// object belongs to exactly one valid chain, ages and positions are
// consecutive, terminals self-loop, and no two heads share a name.
func checkInvariants(t *testing.T, s *Store) {
	t.Helper()
	reachable := make([]bool, s.ObjectCount)
	names := make(map[string]bool)

	for _, head := range s.Objects {
		if !head.IsHead() {
			continue
		}
		assert.False(t, names[head.BlobName], "duplicate head name %q", head.BlobName)
		names[head.BlobName] = true

		obj := head
		age := head.Age
		pos := uint16(0)
		for {
			assert.False(t, reachable[obj.Index], "object %d in two chains", obj.Index)
			reachable[obj.Index] = true
			assert.Equal(t, age, obj.Age)
			assert.Equal(t, pos, obj.ChunkPos)
			if int(obj.Next) == obj.Index {
				break
			}
			require.Less(t, int(obj.Next), s.ObjectCount)
			obj = s.Objects[obj.Next]
			age++
			pos++
		}
	}

	for _, obj := range s.Objects {
		if obj.Age != 0 {
			assert.True(t, reachable[obj.Index], "object %d is an orphan", obj.Index)
		}
	}
}

// snapshot captures the slot states for idempotence comparison.
func snapshot(s *Store) []string {
	out := make([]string, len(s.Objects))
	for i, obj := range s.Objects {
		out[i] = fmt.Sprintf("%d/%d/%d/%q/%v", obj.Age, obj.ChunkPos, obj.Next, obj.BlobName, obj.Dirty)
	}
	return out
}

func TestSanitizeKeepsValidChains(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0, 3, 5})
	placeChain(s, "beta", 4, []int{1})

	s.Sanitize()

	assert.NotNil(t, s.findHead("alpha"))
	assert.NotNil(t, s.findHead("beta"))
	for _, obj := range s.Objects {
		assert.False(t, obj.Dirty, "object %d reset unexpectedly", obj.Index)
	}
	checkInvariants(t, s)
}

func TestSanitizeResetsBrokenAgeSequence(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0, 2, 4})
	s.Objects[2].Age = 9 // ages must run N, N+1

	s.Sanitize()

	assert.Nil(t, s.findHead("alpha"))
	for _, i := range []int{0, 2, 4} {
		assert.Equal(t, uint32(0), s.Objects[i].Age)
		assert.True(t, s.Objects[i].Dirty)
	}
	checkInvariants(t, s)
}

func TestSanitizeResetsBrokenPositionSequence(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0, 2})
	s.Objects[2].ChunkPos = 5

	s.Sanitize()

	assert.Nil(t, s.findHead("alpha"))
	checkInvariants(t, s)
}

func TestSanitizeResetsOutOfRangePointer(t *testing.T) {
	p := testParams()
	s := cleanStore(t, p)
	placeChain(s, "alpha", 1, []int{0, 2})
	s.Objects[0].Next = uint8(p.ObjectCount) // beyond the last slot

	s.Sanitize()

	assert.Nil(t, s.findHead("alpha"))
	checkInvariants(t, s)
}

func TestSanitizeResetsRevisitingChain(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0, 2, 4})
	s.Objects[4].Next = 2 // back edge

	s.Sanitize()

	assert.Nil(t, s.findHead("alpha"))
	checkInvariants(t, s)
}

func TestSanitizeResetsPrematureSelfLoop(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0, 2})
	// The head claims more bytes than the truncated chain supplies.
	s.Objects[0].Next = 0
	s.Objects[0].BlobSize = 200

	s.Sanitize()

	assert.Nil(t, s.findHead("alpha"))
	checkInvariants(t, s)
}

func TestSanitizeKeepsNewestDuplicate(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0, 2})
	placeChain(s, "alpha", 5, []int{1, 3})

	s.Sanitize()

	head := s.findHead("alpha")
	require.NotNil(t, head)
	assert.Equal(t, uint32(5), head.Age)
	assert.Equal(t, 1, head.Index)
	// The losing chain is fully collected.
	assert.Equal(t, uint32(0), s.Objects[0].Age)
	assert.Equal(t, uint32(0), s.Objects[2].Age)
	checkInvariants(t, s)
}

func TestSanitizeCollectsOrphans(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0})
	s.Objects[7] = &Object{Index: 7, Age: 9, ChunkPos: 3, Next: 7, Payload: make([]byte, 10)}

	s.Sanitize()

	assert.Equal(t, uint32(0), s.Objects[7].Age)
	assert.True(t, s.Objects[7].Dirty)
	assert.NotNil(t, s.findHead("alpha"))
	checkInvariants(t, s)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	s := cleanStore(t, testParams())
	placeChain(s, "alpha", 1, []int{0, 2, 4})
	placeChain(s, "beta", 9, []int{1})
	s.Objects[2].Age = 77                    // break alpha
	s.Objects[6] = &Object{Index: 6, Age: 3} // orphan without payload

	s.Sanitize()
	first := snapshot(s)
	s.Sanitize()
	assert.Equal(t, first, snapshot(s))
	checkInvariants(t, s)
}
