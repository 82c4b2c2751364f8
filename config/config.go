// Package config holds the host-side session configuration: which token to
// talk to, how to authenticate, and the store geometry used at format time.
package config

import (
	"github.com/douzebis/yb/store"
)

// Config describes one session against one token.
type Config struct {
	// Reader is the PC/SC reader name of a hardware token.
	Reader string

	// Serial is the stable hardware serial of the same token, used for
	// PKCS#11 token selection during on-device ECDH.
	Serial string

	// EmulatorPath, when non-empty, selects the file-backed emulated token
	// instead of hardware.
	EmulatorPath string

	// PIN is the user PIN for decryption and PIN-protected management.
	PIN string

	// ManagementKey is the hex-encoded administrative key; empty selects
	// PIN-protected management-key mode.
	ManagementKey string

	// KeySlot is the device key slot holding the store's EC key, 0 for an
	// unencrypted store.
	KeySlot uint8

	// ObjectCount and ObjectSize set the store geometry at format time.
	ObjectCount int
	ObjectSize  int
}

// Default returns the reference-deployment configuration.
func Default() Config {
	return Config{
		KeySlot:     0x9e,
		ObjectCount: store.MaxObjectCount,
		ObjectSize:  store.MaxObjectSize,
	}
}
