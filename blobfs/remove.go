package blobfs

import (
	"github.com/douzebis/yb/device"
)

// Remove deletes a named blob by resetting every chunk of its chain. Store
// ages are not consumed. The operation is idempotent in effect: if it is
// interrupted mid-commit, the next load's sanitize either completes it or
// leaves the original blob intact.
func (s *Session) Remove(name string, auth device.Auth) error {
	if err := validateName(name); err != nil {
		return err
	}
	st, err := s.load()
	if err != nil {
		return err
	}
	if err := st.RemoveBlob(name); err != nil {
		return err
	}
	return st.Sync(s.dev, auth)
}
