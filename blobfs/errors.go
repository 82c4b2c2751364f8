package blobfs

import "errors"

var (
	// ErrNoEncryptionKey indicates an encrypted store was requested on a
	// store formatted without an encryption key slot.
	ErrNoEncryptionKey = errors.New("blobfs: store has no encryption key")

	// ErrPinRequired indicates a fetch of an encrypted blob without a PIN.
	ErrPinRequired = errors.New("blobfs: blob is encrypted, PIN required")
)
