package blobfs

import (
	"github.com/douzebis/yb/store"
)

// List reports every blob in the store, sorted by name.
func (s *Session) List() ([]store.BlobInfo, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.Blobs(), nil
}
