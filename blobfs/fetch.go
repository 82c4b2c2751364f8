package blobfs

import (
	"fmt"

	"github.com/douzebis/yb/device"
	"github.com/douzebis/yb/envelope"
)

// Fetch reads a named blob back. Encrypted blobs need the user PIN for the
// on-device ECDH; the returned plaintext length always equals the size
// recorded at store time.
func (s *Session) Fetch(name, pin string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	st, err := s.load()
	if err != nil {
		return nil, err
	}

	payload, head, err := st.ReadBlob(name)
	if err != nil {
		return nil, err
	}
	if head.BlobKeySlot == 0 {
		return payload, nil
	}

	if pin == "" {
		return nil, ErrPinRequired
	}
	plain, err := envelope.Decrypt(payload, s.dev, device.KeySlot(head.BlobKeySlot), pin)
	if err != nil {
		return nil, err
	}
	if len(plain) != int(head.BlobUnencSize) {
		return nil, fmt.Errorf("%w: decrypted %d bytes, expected %d",
			envelope.ErrCorruptEnvelope, len(plain), head.BlobUnencSize)
	}
	return plain, nil
}
