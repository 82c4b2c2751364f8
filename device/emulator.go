package device

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"sync"
)

// DefaultPinRetries is the factory retry counter of the reference device.
const DefaultPinRetries = 3

// Emulator is an in-memory Device used by tests and offline runs.
//
// It reproduces the hardware semantics the store core depends on: slots hold
// exactly the last bytes written, ECDH runs against per-slot P-256 keys, a
// wrong PIN decrements a retry counter, and writes can be interrupted by a
// simulated ejection. When an ejection fires the slot ends up holding either
// the old or the new bytes (coin flip), matching the partial-write window of
// a physical disconnect at slot granularity. The token is considered
// re-inserted on the next call.
type Emulator struct {
	mu sync.Mutex

	slots map[ObjectID][]byte
	keys  map[KeySlot]*ecdh.PrivateKey

	pin           string
	pinRetries    int
	managementKey []byte

	ejectProb float64
	rng       *mrand.Rand
	ejections int
}

// NewEmulator creates an emulated token with the given PIN and management key.
func NewEmulator(pin string, managementKey []byte) *Emulator {
	return &Emulator{
		slots:         make(map[ObjectID][]byte),
		keys:          make(map[KeySlot]*ecdh.PrivateKey),
		pin:           pin,
		pinRetries:    DefaultPinRetries,
		managementKey: append([]byte(nil), managementKey...),
	}
}

// SetEjection enables ejection simulation: each write fails with ErrEjected
// with probability prob, drawn from a deterministic seeded source.
func (e *Emulator) SetEjection(prob float64, seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ejectProb = prob
	e.rng = mrand.New(mrand.NewSource(seed))
}

// Ejections returns the number of simulated ejections so far.
func (e *Emulator) Ejections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ejections
}

// GenerateKey creates a fresh P-256 key pair in the given slot, replacing any
// existing key.
func (e *Emulator) GenerateKey(slot KeySlot) error {
	if slot == 0 {
		return fmt.Errorf("%w: slot 0 is reserved", ErrNoKey)
	}
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("device: generate key: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys[slot] = key
	return nil
}

// ReadObject returns the last bytes written to the slot.
func (e *Emulator) ReadObject(id ObjectID) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.slots[id]
	if !ok {
		return nil, ErrObjectEmpty
	}
	return append([]byte(nil), data...), nil
}

// WriteObject replaces the slot contents after checking the credential.
// With ejection simulation enabled the write may fail with ErrEjected, in
// which case the slot holds either the old or the new bytes.
func (e *Emulator) WriteObject(id ObjectID, data []byte, auth Auth) error {
	if len(data) > MaxObjectBytes {
		return fmt.Errorf("%w: %d bytes", ErrObjectTooLarge, len(data))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkAuth(auth); err != nil {
		return err
	}
	if e.rng != nil && e.rng.Float64() < e.ejectProb {
		e.ejections++
		if e.rng.Intn(2) == 0 {
			e.slots[id] = append([]byte(nil), data...)
		}
		return fmt.Errorf("%w: %w", ErrIO, ErrEjected)
	}
	e.slots[id] = append([]byte(nil), data...)
	return nil
}

// PublicKey returns the uncompressed point of the slot's key.
func (e *Emulator) PublicKey(slot KeySlot) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key, ok := e.keys[slot]
	if !ok {
		return nil, ErrNoKey
	}
	return key.PublicKey().Bytes(), nil
}

// ECDH computes the shared secret between the slot's private key and the
// peer's public point. The x-coordinate is returned as 32 bytes.
func (e *Emulator) ECDH(slot KeySlot, peerPub []byte, pin string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pinRetries == 0 {
		return nil, ErrPinBlocked
	}
	if pin != e.pin {
		e.pinRetries--
		if e.pinRetries == 0 {
			return nil, ErrPinBlocked
		}
		return nil, &PinError{Retries: e.pinRetries}
	}
	e.pinRetries = DefaultPinRetries
	key, ok := e.keys[slot]
	if !ok {
		return nil, ErrNoKey
	}
	peer, err := ecdh.P256().NewPublicKey(peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: bad peer point: %w", ErrWrongAlgorithm, err)
	}
	shared, err := key.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("device: ECDH: %w", err)
	}
	return shared, nil
}

// Authenticate verifies the administrative credential.
func (e *Emulator) Authenticate(auth Auth) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkAuth(auth)
}

// checkAuth validates the credential under e.mu. A management key is compared
// directly; otherwise the PIN stands in for PIN-protected key retrieval.
func (e *Emulator) checkAuth(auth Auth) error {
	if len(auth.ManagementKey) > 0 {
		if !bytes.Equal(auth.ManagementKey, e.managementKey) {
			return ErrAuth
		}
		return nil
	}
	if auth.PIN != e.pin {
		return ErrAuth
	}
	return nil
}

// PinRetries returns the current PIN retry counter.
func (e *Emulator) PinRetries() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pinRetries
}
