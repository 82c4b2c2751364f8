// Package device abstracts the PIV hardware token that backs the blob store.
//
// The store core talks to the token exclusively through the Device interface:
// opaque byte blobs in a fixed set of data-object slots, the public half of a
// designated EC key, and on-device ECDH. Two implementations exist: PivTool
// drives real hardware through yubico-piv-tool/pkcs11-tool, and Emulator (with
// its bbolt-persisted sibling BoltDevice) reproduces the same semantics in
// memory for tests and offline use, including the partial-write window on
// simulated ejection.
package device

// ObjectID is a 3-byte device-local identifier of one PIV data object.
// The numeric values carry no meaning to the store core; slots are addressed
// by their position in an explicit []ObjectID list.
type ObjectID uint32

// KeySlot identifies an on-device asymmetric key slot (e.g. 0x9e).
// Slot 0 is reserved to mean "no key".
type KeySlot uint8

// PublicKeyLen is the length of an uncompressed P-256 point: 0x04 tag plus
// two 32-byte coordinates.
const PublicKeyLen = 65

// SharedSecretLen is the length of the ECDH shared secret (the x-coordinate).
const SharedSecretLen = 32

// MaxObjectBytes is the largest payload a single PIV data object can hold on
// the reference device.
const MaxObjectBytes = 3052

// DefaultPIN is the factory PIN of the reference device.
const DefaultPIN = "123456"

// firstObjectID is the base of the reference deployment's object-id window.
const firstObjectID ObjectID = 0x5F0000

// DefaultObjectCount is the number of slots in the reference deployment.
const DefaultObjectCount = 16

// Auth carries the administrative credential that enables object writes.
// ManagementKey takes precedence; when it is empty, PIN designates the
// PIN-unlocked management-key retrieval mode.
type Auth struct {
	ManagementKey []byte
	PIN           string
}

// Handle names one physical token. Reader is the transport-level PC/SC reader
// string; Serial is the stable hardware serial. Both travel together so that
// every operation on a device — including PKCS#11 token selection for ECDH —
// resolves to the same piece of hardware.
type Handle struct {
	Reader string
	Serial string
}

// Device is the complete surface the store core consumes.
//
// ReadObject and WriteObject move opaque byte blobs in and out of data-object
// slots. WriteObject is atomic from the host's perspective except on physical
// disconnection, where the slot may hold either the old or the new bytes.
// ECDH computes the shared secret on the device; the static private key never
// leaves the token.
type Device interface {
	// ReadObject returns exactly the last bytes written to the slot, or
	// ErrObjectEmpty if the slot was never written.
	ReadObject(id ObjectID) ([]byte, error)

	// WriteObject replaces the slot contents. data must not exceed
	// MaxObjectBytes. Fails with ErrAuth if auth is rejected.
	WriteObject(id ObjectID, data []byte, auth Auth) error

	// PublicKey returns the uncompressed P-256 point (65 bytes) of the key
	// in the given slot. Fails with ErrNoKey if the slot holds no key and
	// ErrWrongAlgorithm if the key is not an EC P-256 key.
	PublicKey(slot KeySlot) ([]byte, error)

	// ECDH multiplies the slot's private key with the peer's public point
	// and returns the 32-byte shared secret. A wrong PIN fails with a
	// *PinError carrying the device's remaining retry count.
	ECDH(slot KeySlot, peerPub []byte, pin string) ([]byte, error)

	// Authenticate verifies the administrative credential without writing.
	Authenticate(auth Auth) error
}

// DefaultObjectIDs returns the reference deployment's object-id window,
// 0x5F0000 through 0x5F000F.
func DefaultObjectIDs() []ObjectID {
	ids := make([]ObjectID, DefaultObjectCount)
	for i := range ids {
		ids[i] = firstObjectID + ObjectID(i)
	}
	return ids
}
