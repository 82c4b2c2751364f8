package envelope

import "errors"

var (
	// ErrCorruptEnvelope indicates a wire envelope too short to parse or a
	// ciphertext whose padding does not verify. The two cases are
	// deliberately indistinguishable.
	ErrCorruptEnvelope = errors.New("envelope: corrupt envelope")

	// ErrInvalidPeerKey indicates the peer public key is not a valid
	// uncompressed P-256 point.
	ErrInvalidPeerKey = errors.New("envelope: invalid peer public key")
)
