package device

import (
	"crypto/ecdh"
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestBoltDevice(t *testing.T, path string) *BoltDevice {
	t.Helper()
	dev, err := OpenBoltDevice(path, DefaultPIN, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func TestBoltDevicePersistsObjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.db")
	auth := Auth{PIN: DefaultPIN}
	id := DefaultObjectIDs()[3]

	dev := openTestBoltDevice(t, path)
	require.NoError(t, dev.WriteObject(id, []byte("persisted"), auth))
	require.NoError(t, dev.GenerateKey(0x9e))
	pub, err := dev.PublicKey(0x9e)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	// Reopen: objects and keys survive, credentials are the sealed ones.
	reopened, err := OpenBoltDevice(path, "ignored-pin", nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ReadObject(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)

	pub2, err := reopened.PublicKey(0x9e)
	require.NoError(t, err)
	assert.Equal(t, pub, pub2)

	assert.NoError(t, reopened.Authenticate(Auth{PIN: DefaultPIN}))
	assert.ErrorIs(t, reopened.Authenticate(Auth{PIN: "ignored-pin"}), ErrAuth)
}

func TestBoltDeviceEmptyObject(t *testing.T) {
	dev := openTestBoltDevice(t, filepath.Join(t.TempDir(), "token.db"))
	_, err := dev.ReadObject(DefaultObjectIDs()[0])
	assert.ErrorIs(t, err, ErrObjectEmpty)
}

func TestBoltDeviceECDH(t *testing.T) {
	dev := openTestBoltDevice(t, filepath.Join(t.TempDir(), "token.db"))
	require.NoError(t, dev.GenerateKey(0x9e))

	host, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	shared, err := dev.ECDH(0x9e, host.PublicKey().Bytes(), DefaultPIN)
	require.NoError(t, err)
	require.Len(t, shared, SharedSecretLen)

	pub, err := dev.PublicKey(0x9e)
	require.NoError(t, err)
	devicePub, err := ecdh.P256().NewPublicKey(pub)
	require.NoError(t, err)
	hostShared, err := host.ECDH(devicePub)
	require.NoError(t, err)
	assert.Equal(t, hostShared, shared)
}

func TestBoltDevicePinRetriesPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.db")
	dev := openTestBoltDevice(t, path)
	require.NoError(t, dev.GenerateKey(0x9e))
	host, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	peer := host.PublicKey().Bytes()

	_, err = dev.ECDH(0x9e, peer, "000000")
	var pinErr *PinError
	require.ErrorAs(t, err, &pinErr)
	assert.Equal(t, 2, pinErr.Retries)
	require.NoError(t, dev.Close())

	// The decremented counter survives a reopen.
	reopened, err := OpenBoltDevice(path, DefaultPIN, nil)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.ECDH(0x9e, peer, "000000")
	require.ErrorAs(t, err, &pinErr)
	assert.Equal(t, 1, pinErr.Retries)

	_, err = reopened.ECDH(0x9e, peer, DefaultPIN)
	assert.NoError(t, err)
}
