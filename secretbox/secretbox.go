// Package secretbox provides symmetric encryption for small secrets at rest:
// TOTP seeds and related two-factor material.
//
// Envelopes are AES-256-CBC, serialized as "<iv-hex>:<ciphertext-hex>" with a
// fresh 16-byte IV per call. Keys are always 32 bytes. Callers holding a human
// password derive a key with DeriveKey; callers holding pre-derived key
// material (for example from a transitional login token) pass a Key directly.
// There is no third mode: a string secret is never silently reinterpreted as
// raw key bytes.
package secretbox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

// ErrDecryptionFailed is returned on any decryption failure: wrong key,
// truncated envelope, corrupted ciphertext. The cause is deliberately not
// distinguished.
var ErrDecryptionFailed = errors.New("invalid password, cannot decrypt")

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

const checksumSize = 8

// Key is pre-derived symmetric key material.
type Key [KeySize]byte

// DeriveKey maps a human password to a fixed-length key.
func DeriveKey(password string) Key {
	return Key(sha256.Sum256([]byte(password)))
}

// ParseKey decodes a hex-encoded Key, the wire form carried inside
// transitional tokens.
func ParseKey(encoded string) (Key, error) {
	var key Key
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return key, errors.New("invalid key encoding")
	}
	if len(raw) != KeySize {
		return key, errors.New("invalid key size")
	}
	copy(key[:], raw)
	return key, nil
}

// Hex returns the hex form of the key for embedding in a signed token.
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

// Encrypt seals plaintext under key and returns the envelope string.
// A truncated keyed checksum is sealed alongside the plaintext so that
// decryption under the wrong key fails deterministically instead of
// surfacing garbage on a lucky padding match.
func Encrypt(plaintext string, key Key) (string, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	sum := checksum([]byte(plaintext), key)
	padded := pkcs7Pad(append([]byte(plaintext), sum...), aes.BlockSize)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt opens an envelope produced by Encrypt. Any failure, structural or
// cryptographic, is reported as ErrDecryptionFailed.
func Decrypt(envelope string, key Key) (string, error) {
	ivHex, ctHex, ok := strings.Cut(envelope, ":")
	if !ok {
		return "", ErrDecryptionFailed
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrDecryptionFailed
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrDecryptionFailed
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return "", ErrDecryptionFailed
	}

	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)

	unpadded, err := pkcs7Unpad(padded, aes.BlockSize)
	if err != nil || len(unpadded) < checksumSize {
		return "", ErrDecryptionFailed
	}

	plaintext := unpadded[:len(unpadded)-checksumSize]
	sum := unpadded[len(unpadded)-checksumSize:]
	if !hmac.Equal(sum, checksum(plaintext, key)) {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func checksum(plaintext []byte, key Key) []byte {
	mac := hmac.New(sha256.New, key[:])
	_, _ = mac.Write(plaintext)
	return mac.Sum(nil)[:checksumSize]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
