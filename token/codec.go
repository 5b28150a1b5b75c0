// Package token signs and verifies the compact bearer credentials used by the
// authentication engine: full session tokens and the short-lived transitional
// tokens issued mid-flow (password verified but 2FA pending, reset authorized
// but 2FA confirmation pending).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Registered subjects. A token is only accepted by the flow step whose
// subject it carries.
const (
	SubjectSession = "auth"
	SubjectTFA     = "tfa"
	SubjectReset   = "password-reset"
)

// DefaultIssuer is the iss claim stamped on every token unless overridden in
// the engine configuration.
const DefaultIssuer = "authcore"

// ErrInvalid covers every verification failure: malformed structure, wrong
// algorithm, bad signature, nbf in the future, exp in the past, or a
// subject/audience/issuer mismatch.
var ErrInvalid = errors.New("invalid token")

// Payload is the application claim set. It is a union of the full session
// shape and the reduced transitional shapes; verifiers must branch on field
// presence rather than assume the full shape.
type Payload struct {
	ID                  string `json:"id,omitempty"`
	LastRoleID          string `json:"lastRoleId,omitempty"`
	Email               string `json:"email,omitempty"`
	CollectPersonalData bool   `json:"collectPersonalData,omitempty"`
	JWTVersion          int    `json:"jwtVersion"`

	// Transitional-only fields.
	PassKey         string `json:"passKey,omitempty"`
	NewPasswordHash string `json:"newPasswordHash,omitempty"`
	NewPassKey      string `json:"newPassKey,omitempty"`
}

// Options control the registered claims added at signing time.
type Options struct {
	Subject   string
	Audience  string
	TTL       time.Duration
	NotBefore time.Time
}

// Expect is the claim set a verifier requires.
type Expect struct {
	Subject  string
	Audience string
}

// Codec signs and verifies tokens with HMAC-SHA256. The signing secret is
// supplied per call so distinct flows may use distinct secrets.
type Codec struct {
	issuer string
	leeway time.Duration
}

type signedClaims struct {
	Payload
	jwt.RegisteredClaims
}

// New returns a codec stamping the given issuer. An empty issuer falls back
// to DefaultIssuer.
func New(issuer string) *Codec {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Codec{issuer: issuer, leeway: 0}
}

// Sign merges payload with the registered claims described by opts and
// returns the signed token. Issuer is always the codec's constant; every
// token gets a fresh jti and an iat of now.
func (c *Codec) Sign(payload Payload, secret []byte, opts Options) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if opts.TTL == 0 {
		return "", errors.New("token TTL required")
	}

	now := time.Now()
	claims := signedClaims{
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   opts.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{opts.Audience}
	}
	if !opts.NotBefore.IsZero() {
		claims.NotBefore = jwt.NewNumericDate(opts.NotBefore)
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify parses and validates raw against secret and the expected claims.
// Verification is pure: no I/O, no side effects. Every failure mode collapses
// to ErrInvalid.
func (c *Codec) Verify(raw string, secret []byte, expect Expect) (*Payload, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	}
	if expect.Subject != "" {
		options = append(options, jwt.WithSubject(expect.Subject))
	}
	if expect.Audience != "" {
		options = append(options, jwt.WithAudience(expect.Audience))
	}
	if c.leeway > 0 {
		options = append(options, jwt.WithLeeway(c.leeway))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(raw, &signedClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*signedClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}

	payload := claims.Payload
	return &payload, nil
}
