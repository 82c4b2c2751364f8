// Package envelope implements the hybrid encryption wrapping blob payloads:
// an ephemeral P-256 ECDH agreement against the store's on-device key, key
// derivation with HKDF-SHA256, and AES-256-CBC with PKCS#7 padding.
//
// Wire format:
//
//	ephemeral_pub(65) || iv(16) || ciphertext
//
// Encryption needs only the device's public key; decryption runs the ECDH on
// the device, so the static private key never leaves the token.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/douzebis/yb/device"
)

const (
	// PubKeyLen is the length of the uncompressed ephemeral P-256 point.
	PubKeyLen = 65

	// IVLen is the length of the AES-CBC initialization vector.
	IVLen = 16

	// Overhead is the fixed wire overhead before the ciphertext.
	Overhead = PubKeyLen + IVLen

	// KeyLen is the length of the derived AES-256 key.
	KeyLen = 32
)

// deriveKey derives the AES-256 key from the ECDH shared secret.
//
// The HKDF parameters are:
//   - IKM  = shared secret (32 bytes)
//   - Salt = none
//   - Info = none
//   - Len  = 32 (AES-256)
func deriveKey(shared []byte) ([]byte, error) {
	if len(shared) != device.SharedSecretLen {
		return nil, fmt.Errorf("%w: shared secret is %d bytes", ErrCorruptEnvelope, len(shared))
	}
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, nil), key); err != nil {
		return nil, fmt.Errorf("envelope: HKDF: %w", err)
	}
	return key, nil
}

// Encrypt wraps plaintext for the holder of the private key matching peerPub,
// an uncompressed P-256 point.
//
// Process:
//  1. Generate an ephemeral P-256 key pair.
//  2. ECDH(ephemeral_priv, peer_pub) -> 32-byte shared secret.
//  3. key = HKDF-SHA256(shared), iv = 16 random bytes.
//  4. ct = AES-256-CBC(key, iv, PKCS7(plaintext)).
//  5. Output ephemeral_pub || iv || ct.
func Encrypt(plaintext, peerPub []byte) ([]byte, error) {
	peer, err := ecdh.P256().NewPublicKey(peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPeerKey, err)
	}
	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("envelope: generate ephemeral key: %w", err)
	}
	shared, err := ephemeral.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("envelope: ECDH: %w", err)
	}
	key, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: AES cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	wire := make([]byte, Overhead+len(padded))
	copy(wire, ephemeral.PublicKey().Bytes())
	iv := wire[PubKeyLen:Overhead]
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("envelope: random IV: %w", err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(wire[Overhead:], padded)
	return wire, nil
}

// Decrypt unwraps an envelope. The ECDH agreement runs on the device against
// the key in the given slot; a wrong PIN surfaces the device's *PinError
// unchanged. All envelope and padding defects collapse to ErrCorruptEnvelope.
func Decrypt(wire []byte, dev device.Device, slot device.KeySlot, pin string) ([]byte, error) {
	if len(wire) < Overhead+aes.BlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptEnvelope, len(wire))
	}
	ct := wire[Overhead:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is %d bytes", ErrCorruptEnvelope, len(ct))
	}

	shared, err := dev.ECDH(slot, wire[:PubKeyLen], pin)
	if err != nil {
		return nil, err
	}
	key, err := deriveKey(shared)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: AES cipher: %w", err)
	}
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, wire[PubKeyLen:Overhead]).CryptBlocks(padded, ct)
	return pkcs7Unpad(padded, aes.BlockSize)
}

// pkcs7Pad appends PKCS#7 padding up to the next block boundary.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// pkcs7Unpad strips PKCS#7 padding. The checks run over the whole final block
// regardless of where they fail, keeping the error path timing-uniform.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrCorruptEnvelope
	}
	n := int(data[len(data)-1])
	bad := 0
	if n == 0 || n > blockSize {
		bad = 1
		n = blockSize
	}
	for i, b := range data[len(data)-blockSize:] {
		if i >= blockSize-n && int(b) != n {
			bad |= 1
		}
	}
	if bad != 0 {
		return nil, ErrCorruptEnvelope
	}
	return data[:len(data)-n], nil
}
