package flows

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talentyard/authcore/internal/stores"
	"github.com/talentyard/authcore/password"
	"github.com/talentyard/authcore/social"
	"github.com/talentyard/authcore/token"
)

// memUsers is an in-memory UserStore for flow tests.
type memUsers struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*User{}}
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memUsers) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *memUsers) FindBySocialID(_ context.Context, provider social.Name, externalID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.ExternalID(provider) == externalID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memUsers) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	u.ID = fmt.Sprintf("u-%d", s.seq)
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *memUsers) CreateRole(_ context.Context, userID string, role Role) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("r-%d-%s", s.seq, role), nil
}

func (s *memUsers) Update(_ context.Context, id string, patch UserPatch) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.JWTVersion != nil {
		u.JWTVersion = *patch.JWTVersion
	}
	if patch.LastRoleID != nil {
		u.LastRoleID = *patch.LastRoleID
	}
	if patch.FailedLoginAttempts != nil {
		u.FailedLoginAttempts = *patch.FailedLoginAttempts
	}
	if patch.Locked != nil {
		u.Locked = *patch.Locked
	}
	if patch.TFASecret != nil {
		u.TFASecret = *patch.TFASecret
	}
	if patch.TFARecoveryCodes != nil {
		u.TFARecoveryCodes = *patch.TFARecoveryCodes
	}
	if patch.GoogleID != nil {
		u.GoogleID = *patch.GoogleID
	}
	if patch.FacebookID != nil {
		u.FacebookID = *patch.FacebookID
	}
	if patch.AppleID != nil {
		u.AppleID = *patch.AppleID
	}
	if patch.LinkedInID != nil {
		u.LinkedInID = *patch.LinkedInID
	}
	cp := *u
	return &cp, nil
}

// memKV backs the ephemeral stores in tests. TTLs are ignored; expiry
// behavior is covered by the store tests against miniredis.
type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemKV() *memKV { return &memKV{m: map[string]string{}} }

func (kv *memKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

func (kv *memKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}

type memNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *memNotifier) Send(_ context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *memNotifier) ofKind(kind NotificationKind) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, msg := range n.sent {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

// fakeTOTP accepts exactly one code regardless of secret, keeping flow tests
// independent of clock skew. Real code checking is covered by the TOTP
// engine's own tests.
type fakeTOTP struct {
	valid string
}

func (f fakeTOTP) GenerateSecret() (string, error) { return "JBSWY3DPEHPK3PXP", nil }

func (f fakeTOTP) Check(_, code string) bool { return code == f.valid }

func (f fakeTOTP) ProvisionURI(secret, account string) string {
	return "otpauth://totp/test:" + account + "?secret=" + secret
}

const goodTOTPCode = "123456"

func testDeps(t *testing.T) (*Deps, *memUsers, *memNotifier) {
	t.Helper()

	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)

	users := newMemUsers()
	notifier := &memNotifier{}
	kv := newMemKV()

	d := &Deps{
		Users:    users,
		Notifier: notifier,
		Hasher:   hasher,
		TOTP:     fakeTOTP{valid: goodTOTPCode},
		Codec:    token.New("authcore-test"),
		Pending:  stores.NewPendingSecretStore(kv),
		Resets:   stores.NewResetTokenStore(kv),
		Settings: Settings{
			TokenSecret:         []byte("0123456789abcdef0123456789abcdef"),
			Audience:            "test-clients",
			SessionTTL:          time.Hour,
			TransitionalTTL:     10 * time.Minute,
			CacheTTL:            time.Hour,
			FailedAttemptsLimit: 10,
			RecoveryCodes:       4,
		},
	}
	return d, users, notifier
}

// seedUser registers through the real flow so the stored hash matches the
// production format.
func seedUser(t *testing.T, d *Deps, email, pwd string) *User {
	t.Helper()
	res, err := RunRegister(context.Background(), d, RegisterInput{
		Email:    email,
		Password: pwd,
		Role:     RoleClient,
	})
	require.NoError(t, err)
	return res.User
}
