package blobfs

import (
	"fmt"

	"github.com/douzebis/yb/device"
	"github.com/douzebis/yb/store"
)

// Format initializes the device with a fresh, empty store. Any existing
// contents are ignored and overwritten; every object starts empty with the
// store age at zero.
func (s *Session) Format(p store.Params, auth device.Auth) error {
	if p.ObjectCount > len(s.ids) {
		return fmt.Errorf("%w: %d objects requested, %d ids configured",
			store.ErrBadObjectCount, p.ObjectCount, len(s.ids))
	}
	st, err := store.NewFormatted(p, s.ids)
	if err != nil {
		return err
	}
	return st.Sync(s.dev, auth)
}
