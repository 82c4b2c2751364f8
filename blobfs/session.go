// Package blobfs is the operations layer of the blob store. CLI commands and
// tests call Session methods to format a device and to store, fetch, remove,
// and list named blobs; the package ties the device abstraction, the object
// store, and the crypto envelope together.
package blobfs

import (
	"unicode/utf8"

	"github.com/douzebis/yb/device"
	"github.com/douzebis/yb/store"
)

// Session is one host-side session against one device. It owns no state
// beyond the device handle and the object-id window: every blob operation
// reloads the store image, sanitizes it, and commits its own changes. Fsck
// reloads without sanitizing; Format writes a fresh image without loading.
type Session struct {
	dev device.Device
	ids []device.ObjectID
}

// New creates a session over the given device. A nil ids slice selects the
// reference object-id window.
func New(dev device.Device, ids []device.ObjectID) *Session {
	if ids == nil {
		ids = device.DefaultObjectIDs()
	}
	return &Session{dev: dev, ids: ids}
}

// load reads the store image and restores its invariants.
func (s *Session) load() (*store.Store, error) {
	st, err := store.Load(s.dev, s.ids)
	if err != nil {
		return nil, err
	}
	st.Sanitize()
	return st, nil
}

// validateName enforces the blob-name contract: 1 to 255 bytes of valid UTF-8.
func validateName(name string) error {
	if len(name) == 0 || len(name) > store.MaxNameLen || !utf8.ValidString(name) {
		return store.ErrInvalidName
	}
	return nil
}

// PublicKey returns the uncompressed P-256 point of the given device key slot.
func (s *Session) PublicKey(slot device.KeySlot) ([]byte, error) {
	return s.dev.PublicKey(slot)
}
