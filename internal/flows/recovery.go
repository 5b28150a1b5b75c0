package flows

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet excludes 0/O/1/I to survive being read over the phone.
const recoveryAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const recoveryCodeLen = 10

const defaultRecoveryCodes = 10

// generateRecoveryCodes mints the one-time recovery set. The raw codes are
// shown to the user once; only the hashes are ever stored.
func generateRecoveryCodes(d *Deps) (raw []string, hashed []string, err error) {
	n := d.Settings.RecoveryCodes
	if n <= 0 {
		n = defaultRecoveryCodes
	}
	raw = make([]string, n)
	hashed = make([]string, n)
	for i := 0; i < n; i++ {
		code, err := randomRecoveryCode()
		if err != nil {
			return nil, nil, err
		}
		digest, err := d.Hasher.Hash(code)
		if err != nil {
			return nil, nil, err
		}
		raw[i] = formatRecoveryCode(code)
		hashed[i] = digest
	}
	return raw, hashed, nil
}

func randomRecoveryCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(recoveryAlphabet)))
	for i := 0; i < recoveryCodeLen; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(recoveryAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// formatRecoveryCode renders XXXXX-XXXXX for display.
func formatRecoveryCode(code string) string {
	if len(code) != recoveryCodeLen {
		return code
	}
	return code[:5] + "-" + code[5:]
}

// canonicalRecoveryCode undoes user formatting: case, dashes, spaces.
func canonicalRecoveryCode(code string) string {
	code = strings.ToUpper(code)
	code = strings.ReplaceAll(code, "-", "")
	return strings.ReplaceAll(code, " ", "")
}

// matchRecoveryCode scans the full hashed set and returns the index of the
// matching code, or -1. The scan never short-circuits, so timing does not
// reveal which position matched.
func matchRecoveryCode(d *Deps, u *User, code string) int {
	canonical := canonicalRecoveryCode(code)
	match := -1
	for i, digest := range u.TFARecoveryCodes {
		if d.Hasher.Verify(digest, canonical) && match < 0 {
			match = i
		}
	}
	return match
}

func withoutIndex(codes []string, i int) []string {
	out := make([]string, 0, len(codes)-1)
	out = append(out, codes[:i]...)
	return append(out, codes[i+1:]...)
}
