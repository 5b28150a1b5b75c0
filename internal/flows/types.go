// Package flows implements the authentication flow logic. Each operation is
// a Run* function taking a Deps bundle plus request arguments; the root
// engine builds Deps once and delegates to the matching flow.
package flows

import (
	"context"
	"time"

	"github.com/talentyard/authcore/social"
)

// Role is the role name attached to a user on registration.
type Role string

const (
	RoleClient     Role = "client"
	RolePro        Role = "pro"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// Elevated reports whether the role may never be self-assigned through
// registration or social signup.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is the account record the flows read and mutate. It is owned by the
// caller's user store; flows only ever see it through UserStore.
type User struct {
	ID                  string
	Email               string
	FirstName           string
	LastName            string
	Avatar              string
	PasswordHash        string // empty means password login not configured
	JWTVersion          int
	LastRoleID          string
	CollectPersonalData bool
	FailedLoginAttempts int
	Locked              bool
	Deleted             bool

	// TFASecret is the secretbox envelope of the TOTP seed, encrypted under
	// the account password. TFARecoveryCodes holds credential-hasher digests
	// of the one-time recovery codes. Both are set together or not at all.
	TFASecret        string
	TFARecoveryCodes []string

	GoogleID   string
	FacebookID string
	AppleID    string
	LinkedInID string
}

// TFAEnabled reports whether two-factor auth is configured.
func (u *User) TFAEnabled() bool {
	return u.TFASecret != ""
}

// ExternalID returns the stored external ID for a provider.
func (u *User) ExternalID(provider social.Name) string {
	switch provider {
	case social.Google:
		return u.GoogleID
	case social.Facebook:
		return u.FacebookID
	case social.Apple:
		return u.AppleID
	case social.LinkedIn:
		return u.LinkedInID
	}
	return ""
}

// ConnectedProviders lists providers the user already linked, used in the
// hint shown when a login arrives through an unlinked provider.
func (u *User) ConnectedProviders() []social.Name {
	var out []social.Name
	for _, name := range social.Names() {
		if u.ExternalID(name) != "" {
			out = append(out, name)
		}
	}
	return out
}

// UserPatch is a partial update. Nil fields are left untouched by the store.
type UserPatch struct {
	Email               *string
	FirstName           *string
	LastName            *string
	Avatar              *string
	PasswordHash        *string
	JWTVersion          *int
	LastRoleID          *string
	FailedLoginAttempts *int
	Locked              *bool
	TFASecret           *string
	TFARecoveryCodes    *[]string

	GoogleID   *string
	FacebookID *string
	AppleID    *string
	LinkedInID *string
}

func ptr[T any](v T) *T { return &v }

// UserStore is the caller-supplied persistence boundary. Find methods return
// (nil, nil) when no record exists. Every flow that mutates user state runs
// its read-verify-write sequence against one store handle; transaction
// scoping is the caller's concern.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindBySocialID(ctx context.Context, provider social.Name, externalID string) (*User, error)

	// Create persists a new user and fills in its ID.
	Create(ctx context.Context, u *User) error

	// CreateRole attaches a role record to the user and returns its ID.
	CreateRole(ctx context.Context, userID string, role Role) (string, error)

	// Update applies the patch and returns the updated record, or (nil, nil)
	// when the user no longer exists.
	Update(ctx context.Context, id string, patch UserPatch) (*User, error)
}

// NotificationKind names an outbound notification.
type NotificationKind string

const (
	NotifyPasswordReset NotificationKind = "password_reset"
	NotifyAccountLocked NotificationKind = "account_locked"
)

// Notification is the payload handed to the notification sender. ResetToken
// is set only for NotifyPasswordReset.
type Notification struct {
	ID         string
	Kind       NotificationKind
	UserID     string
	Email      string
	ResetToken string
}

// Notifier dispatches notifications. Send is invoked synchronously but its
// delivery is fire-and-forget from the flow's perspective; only the enqueue
// error propagates.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Hasher is the credential hashing contract, satisfied by password.Argon2.
// Verify reports false for any malformed stored hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(encodedHash, plaintext string) bool
}

// TOTPEngine generates and checks time-based one-time codes.
type TOTPEngine interface {
	GenerateSecret() (string, error)
	Check(secret, code string) bool
	ProvisionURI(secret, account string) string
}

// Settings is the flow-relevant configuration subset, copied from the root
// engine config at build time.
type Settings struct {
	TokenSecret         []byte
	Audience            string
	SessionTTL          time.Duration
	TransitionalTTL     time.Duration
	CacheTTL            time.Duration
	FailedAttemptsLimit int
	RecoveryCodes       int
	TOTPIssuer          string
}

// FactorKind tags which second factor a request presents.
type FactorKind string

const (
	FactorTOTP     FactorKind = "totp"
	FactorRecovery FactorKind = "recovery"
)

// Factor is a tagged second-factor proof: a current TOTP code or a one-time
// recovery code. Exactly one kind per request.
type Factor struct {
	Kind FactorKind
	Code string
}

func TOTPFactor(code string) Factor     { return Factor{Kind: FactorTOTP, Code: code} }
func RecoveryFactor(code string) Factor { return Factor{Kind: FactorRecovery, Code: code} }

// ResetProof is the tagged second-factor proof for a 2FA-gated password
// reset. The TOTP variant needs the old password to unseal the stored secret
// so it can be re-encrypted under the new one; the recovery variant wipes
// two-factor state entirely.
type ResetProof struct {
	Kind        FactorKind
	OldPassword string
	Code        string
}

func ResetWithTOTP(oldPassword, code string) ResetProof {
	return ResetProof{Kind: FactorTOTP, OldPassword: oldPassword, Code: code}
}

func ResetWithRecovery(code string) ResetProof {
	return ResetProof{Kind: FactorRecovery, Code: code}
}

// RegisterInput are the fields accepted at registration.
type RegisterInput struct {
	Email               string
	Password            string
	Role                Role
	FirstName           string
	LastName            string
	CollectPersonalData bool
}

// LoginResult is returned by password login. When TFARequired is set, Token
// is a short-lived transitional token and User is nil; the caller must
// complete the two-factor step.
type LoginResult struct {
	Token       string
	User        *User
	TFARequired bool
}

// SocialLoginResult flags whether the login created the account.
type SocialLoginResult struct {
	Token string
	User  *User
	New   bool
}

// ResetResult is returned by resetPassword. When TFARequired is set, Token
// is a reset transitional token and the password has not changed yet.
type ResetResult struct {
	Token       string
	User        *User
	TFARequired bool
}

// TFAInitResult carries the plaintext secret exactly once, for QR rendering.
type TFAInitResult struct {
	Secret string
	URI    string
}

// TFASetupResult carries the raw recovery codes exactly once.
type TFASetupResult struct {
	RecoveryCodes []string
}
