package secretbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveKey("correct horse battery staple")

	for _, plaintext := range []string{
		"",
		"x",
		"JBSWY3DPEHPK3PXP",
		strings.Repeat("long totp seed material ", 20),
		"unicode: éèê ☃",
	} {
		envelope, err := Encrypt(plaintext, key)
		require.NoError(t, err)

		ivHex, ctHex, ok := strings.Cut(envelope, ":")
		require.True(t, ok, "envelope must be <iv>:<ciphertext>")
		require.Len(t, ivHex, 32)
		require.NotEmpty(t, ctHex)

		got, err := Decrypt(envelope, key)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestEncryptUsesFreshIV(t *testing.T) {
	key := DeriveKey("some password")

	e1, err := Encrypt("same plaintext", key)
	require.NoError(t, err)
	e2, err := Encrypt("same plaintext", key)
	require.NoError(t, err)
	require.NotEqual(t, e1, e2)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	envelope, err := Encrypt("JBSWY3DPEHPK3PXP", DeriveKey("right password"))
	require.NoError(t, err)

	_, err = Decrypt(envelope, DeriveKey("wrong password"))
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptMalformedEnvelopeFails(t *testing.T) {
	key := DeriveKey("pw")
	envelope, err := Encrypt("payload", key)
	require.NoError(t, err)
	iv, ct, _ := strings.Cut(envelope, ":")

	for _, bad := range []string{
		"",
		"no-separator",
		"zz:" + ct,
		iv + ":zz",
		iv[:30] + ":" + ct,
		iv + ":" + ct[:len(ct)-2],
	} {
		_, err := Decrypt(bad, key)
		require.ErrorIs(t, err, ErrDecryptionFailed, "envelope %q", bad)
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	key := DeriveKey("pw-tamper")
	envelope, err := Encrypt("authentic payload", key)
	require.NoError(t, err)

	tampered := []byte(envelope)
	last := len(tampered) - 1
	if tampered[last] == '0' {
		tampered[last] = '1'
	} else {
		tampered[last] = '0'
	}

	_, err = Decrypt(string(tampered), key)
	require.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestKeyHexRoundTrip(t *testing.T) {
	key := DeriveKey("material")
	parsed, err := ParseKey(key.Hex())
	require.NoError(t, err)
	require.Equal(t, key, parsed)

	_, err = ParseKey("abcd")
	require.Error(t, err)
	_, err = ParseKey("not hex at all")
	require.Error(t, err)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	require.Equal(t, DeriveKey("pw"), DeriveKey("pw"))
	require.NotEqual(t, DeriveKey("pw"), DeriveKey("pw2"))
}
