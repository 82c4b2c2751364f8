package blobfs

import (
	"time"

	"github.com/douzebis/yb/device"
	"github.com/douzebis/yb/envelope"
)

// Store writes a named blob to the device, replacing any blob of the same
// name. With encrypted set, the payload is wrapped in the hybrid envelope
// against the store's encryption key — only the public key is needed, so no
// PIN is involved. Commits happen in ascending slot order; after an
// interrupted store the next load's sanitize resets any incomplete new chain,
// so a new name is either wholly present or wholly absent.
func (s *Session) Store(name string, payload []byte, encrypted bool, auth device.Auth) error {
	if err := validateName(name); err != nil {
		return err
	}
	st, err := s.load()
	if err != nil {
		return err
	}

	wire := payload
	var keySlot uint8
	if encrypted {
		if st.EncryptionKeySlot == 0 {
			return ErrNoEncryptionKey
		}
		pub, err := s.dev.PublicKey(device.KeySlot(st.EncryptionKeySlot))
		if err != nil {
			return err
		}
		wire, err = envelope.Encrypt(payload, pub)
		if err != nil {
			return err
		}
		keySlot = st.EncryptionKeySlot
	}

	mtime := time.Now().Unix()
	if err := st.WriteBlob(name, wire, keySlot, uint32(len(payload)), mtime); err != nil {
		return err
	}
	return st.Sync(s.dev, auth)
}
