package device

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketObjects = []byte("objects")
	bucketKeys    = []byte("keys")
	bucketMeta    = []byte("meta")

	metaPIN     = []byte("pin")
	metaMgmtKey = []byte("mgmt_key")
	metaRetries = []byte("pin_retries")
)

// BoltDevice is an emulated token persisted in a bbolt file, so that an
// emulated store survives process restarts. Semantics are identical to
// Emulator minus ejection simulation (a process kill plays that role).
type BoltDevice struct {
	db *bbolt.DB
}

// OpenBoltDevice opens or creates the emulated token at dbPath. On first
// creation the given PIN and management key are sealed into the file; on
// reopen the stored credentials win and the arguments are ignored.
func OpenBoltDevice(dbPath, pin string, managementKey []byte) (*BoltDevice, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("device: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("device: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketObjects, bucketKeys, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		meta := tx.Bucket(bucketMeta)
		if meta.Get(metaPIN) == nil {
			if err := meta.Put(metaPIN, []byte(pin)); err != nil {
				return err
			}
			if err := meta.Put(metaMgmtKey, managementKey); err != nil {
				return err
			}
			if err := meta.Put(metaRetries, []byte{DefaultPinRetries}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("device: init bolt db: %w", err)
	}

	return &BoltDevice{db: db}, nil
}

// Close closes the underlying database.
func (d *BoltDevice) Close() error { return d.db.Close() }

// objectKey encodes a 3-byte object id as a big-endian bucket key.
func objectKey(id ObjectID) []byte {
	return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
}

// GenerateKey creates a fresh P-256 key pair in the given slot.
func (d *BoltDevice) GenerateKey(slot KeySlot) error {
	if slot == 0 {
		return fmt.Errorf("%w: slot 0 is reserved", ErrNoKey)
	}
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("device: generate key: %w", err)
	}
	err = d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKeys).Put([]byte{byte(slot)}, key.Bytes())
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// ReadObject returns the last bytes written to the slot.
func (d *BoltDevice) ReadObject(id ObjectID) ([]byte, error) {
	var data []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketObjects).Get(objectKey(id))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if data == nil {
		return nil, ErrObjectEmpty
	}
	return data, nil
}

// WriteObject replaces the slot contents after checking the credential.
func (d *BoltDevice) WriteObject(id ObjectID, data []byte, auth Auth) error {
	if len(data) > MaxObjectBytes {
		return fmt.Errorf("%w: %d bytes", ErrObjectTooLarge, len(data))
	}
	err := d.db.Update(func(tx *bbolt.Tx) error {
		if err := checkStoredAuth(tx, auth); err != nil {
			return err
		}
		return tx.Bucket(bucketObjects).Put(objectKey(id), data)
	})
	if errors.Is(err, ErrAuth) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// PublicKey returns the uncompressed point of the slot's key.
func (d *BoltDevice) PublicKey(slot KeySlot) ([]byte, error) {
	var raw []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketKeys).Get([]byte{byte(slot)})
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if raw == nil {
		return nil, ErrNoKey
	}
	key, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrongAlgorithm, err)
	}
	return key.PublicKey().Bytes(), nil
}

// ECDH computes the shared secret on the stored key, enforcing the persisted
// PIN retry counter. The counter update commits in its own transaction so a
// rejected PIN cannot roll it back.
func (d *BoltDevice) ECDH(slot KeySlot, peerPub []byte, pin string) ([]byte, error) {
	var pinErr error
	err := d.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		retries := int(meta.Get(metaRetries)[0])
		if retries == 0 {
			pinErr = ErrPinBlocked
			return nil
		}
		if pin != string(meta.Get(metaPIN)) {
			retries--
			if retries == 0 {
				pinErr = ErrPinBlocked
			} else {
				pinErr = &PinError{Retries: retries}
			}
			return meta.Put(metaRetries, []byte{byte(retries)})
		}
		return meta.Put(metaRetries, []byte{DefaultPinRetries})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if pinErr != nil {
		return nil, pinErr
	}

	var shared []byte
	err = d.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketKeys).Get([]byte{byte(slot)})
		if raw == nil {
			return ErrNoKey
		}
		key, err := ecdh.P256().NewPrivateKey(raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrongAlgorithm, err)
		}
		peer, err := ecdh.P256().NewPublicKey(peerPub)
		if err != nil {
			return fmt.Errorf("%w: bad peer point: %w", ErrWrongAlgorithm, err)
		}
		shared, err = key.ECDH(peer)
		return err
	})
	if err != nil {
		return nil, err
	}
	return shared, nil
}

// Authenticate verifies the administrative credential.
func (d *BoltDevice) Authenticate(auth Auth) error {
	return d.db.View(func(tx *bbolt.Tx) error {
		return checkStoredAuth(tx, auth)
	})
}

// checkStoredAuth validates the credential against the meta bucket.
func checkStoredAuth(tx *bbolt.Tx, auth Auth) error {
	meta := tx.Bucket(bucketMeta)
	if len(auth.ManagementKey) > 0 {
		if !bytes.Equal(auth.ManagementKey, meta.Get(metaMgmtKey)) {
			return ErrAuth
		}
		return nil
	}
	if auth.PIN != string(meta.Get(metaPIN)) {
		return ErrAuth
	}
	return nil
}
