package blobfs

import (
	"github.com/douzebis/yb/store"
)

// Fsck returns the decoded store image verbatim, without sanitizing, for
// diagnostics. Slots that fail to decode appear reset with their dirty bit
// set; nothing is written back.
func (s *Session) Fsck() (*store.Store, error) {
	return store.Load(s.dev, s.ids)
}
