package authcore

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const totpSecretBytes = 20

// TOTPConfig tunes the one-time-code engine. Zero values fall back to the
// RFC 6238 defaults used by every mainstream authenticator app.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string
}

func (c TOTPConfig) withDefaults() TOTPConfig {
	if c.Issuer == "" {
		c.Issuer = "authcore"
	}
	if c.Digits == 0 {
		c.Digits = 6
	}
	if c.Period == 0 {
		c.Period = 30
	}
	if c.Skew == 0 {
		c.Skew = 1
	}
	if c.Algorithm == "" {
		c.Algorithm = "SHA1"
	}
	return c
}

// totpEngine implements time-based one-time codes over base32 secrets.
type totpEngine struct {
	config TOTPConfig
}

func newTOTPEngine(cfg TOTPConfig) *totpEngine {
	return &totpEngine{config: cfg.withDefaults()}
}

// GenerateSecret returns a fresh 20-byte seed, base32 encoded without
// padding.
func (e *totpEngine) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(raw), nil
}

// ProvisionURI renders the otpauth URI rendered as a QR code during
// enrollment.
func (e *totpEngine) ProvisionURI(secret, account string) string {
	issuer := e.config.Issuer
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(e.config.Period))
	v.Set("digits", strconv.Itoa(e.config.Digits))
	v.Set("algorithm", strings.ToUpper(e.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// Check validates a code against the secret within the configured skew.
func (e *totpEngine) Check(secret, code string) bool {
	return e.checkAt(secret, code, time.Now())
}

func (e *totpEngine) checkAt(secret, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != e.config.Digits || !isNumeric(trimmed) {
		return false
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	raw, err := enc.DecodeString(strings.ToUpper(strings.TrimRight(secret, "=")))
	if err != nil || len(raw) == 0 {
		return false
	}

	baseCounter := now.Unix() / int64(e.config.Period)
	for step := -e.config.Skew; step <= e.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(raw, counter, e.config.Digits, e.config.Algorithm)
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true
		}
	}
	return false
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	}
	return nil, fmt.Errorf("unsupported totp algorithm %q", algorithm)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
