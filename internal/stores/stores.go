// Package stores holds the typed views over the ephemeral key-value cache:
// pending two-factor secrets awaiting setup confirmation and opaque
// password-reset tokens. TTL expiry is enforced by the backing cache; an
// expired entry is indistinguishable from an absent one.
package stores

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"
)

const (
	pendingSecretPrefix = "authcore:tfa:pending:"
	resetTokenPrefix    = "authcore:reset:"

	resetTokenBytes = 48
)

// KV is the external cache contract. Get reports found=false both for keys
// that never existed and for keys whose TTL elapsed.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PendingSecretStore keeps the encrypted TOTP secret produced during 2FA
// enrollment, keyed by user id, until setup confirms or the TTL elapses.
type PendingSecretStore struct {
	kv KV
}

func NewPendingSecretStore(kv KV) *PendingSecretStore {
	return &PendingSecretStore{kv: kv}
}

func (s *PendingSecretStore) Save(ctx context.Context, userID, envelope string, ttl time.Duration) error {
	return s.kv.Set(ctx, pendingSecretPrefix+userID, envelope, ttl)
}

func (s *PendingSecretStore) Get(ctx context.Context, userID string) (string, bool, error) {
	return s.kv.Get(ctx, pendingSecretPrefix+userID)
}

func (s *PendingSecretStore) Delete(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, pendingSecretPrefix+userID)
}

// ResetTokenStore maps opaque single-use reset tokens to user ids.
type ResetTokenStore struct {
	kv KV
}

func NewResetTokenStore(kv KV) *ResetTokenStore {
	return &ResetTokenStore{kv: kv}
}

// NewResetToken returns a fresh opaque token: 48 random bytes, hex encoded.
func NewResetToken() (string, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func (s *ResetTokenStore) Save(ctx context.Context, resetToken, userID string, ttl time.Duration) error {
	return s.kv.Set(ctx, resetTokenPrefix+resetToken, userID, ttl)
}

// Consume looks up the token and deletes it immediately, making every token
// single-use regardless of what the caller does next.
func (s *ResetTokenStore) Consume(ctx context.Context, resetToken string) (string, bool, error) {
	key := resetTokenPrefix + resetToken
	userID, found, err := s.kv.Get(ctx, key)
	if err != nil || !found {
		return "", false, err
	}
	if err := s.kv.Delete(ctx, key); err != nil {
		return "", false, err
	}
	return userID, true, nil
}
