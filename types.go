package authcore

import (
	"github.com/talentyard/authcore/internal/flows"
	"github.com/talentyard/authcore/internal/stores"
	"github.com/talentyard/authcore/social"
)

// The domain types live in internal/flows; these aliases form the public
// surface without exposing the internal package path.
type (
	User       = flows.User
	UserPatch  = flows.UserPatch
	UserStore  = flows.UserStore
	Role       = flows.Role
	Notifier   = flows.Notifier
	NotificationKind = flows.NotificationKind
	Notification     = flows.Notification

	RegisterInput     = flows.RegisterInput
	LoginResult       = flows.LoginResult
	SocialLoginResult = flows.SocialLoginResult
	ResetResult       = flows.ResetResult
	TFAInitResult     = flows.TFAInitResult
	TFASetupResult    = flows.TFASetupResult

	Factor     = flows.Factor
	FactorKind = flows.FactorKind
	ResetProof = flows.ResetProof

	// KV is the cache contract; RedisCache is the stock implementation.
	KV = stores.KV

	// SocialUser is the normalized profile returned by provider adapters.
	SocialUser   = social.User
	ProviderName = social.Name
)

const (
	RoleClient     = flows.RoleClient
	RolePro        = flows.RolePro
	RoleAdmin      = flows.RoleAdmin
	RoleSuperAdmin = flows.RoleSuperAdmin

	NotifyPasswordReset = flows.NotifyPasswordReset
	NotifyAccountLocked = flows.NotifyAccountLocked

	FactorTOTP     = flows.FactorTOTP
	FactorRecovery = flows.FactorRecovery

	ProviderGoogle   = social.Google
	ProviderFacebook = social.Facebook
	ProviderApple    = social.Apple
	ProviderLinkedIn = social.LinkedIn
)

// ResetMessage is the constant response of InitPasswordReset.
const ResetMessage = flows.ResetMessage

// TOTPFactor wraps a live authenticator code as a second-factor proof.
func TOTPFactor(code string) Factor { return flows.TOTPFactor(code) }

// RecoveryFactor wraps a one-time recovery code as a second-factor proof.
func RecoveryFactor(code string) Factor { return flows.RecoveryFactor(code) }

// ResetWithTOTP proves a 2FA-gated reset with the old password plus a live
// code; the stored secret survives, resealed under the new password.
func ResetWithTOTP(oldPassword, code string) ResetProof {
	return flows.ResetWithTOTP(oldPassword, code)
}

// ResetWithRecovery proves a 2FA-gated reset with a recovery code alone;
// two-factor auth is wiped as the fallback for a lost device.
func ResetWithRecovery(code string) ResetProof {
	return flows.ResetWithRecovery(code)
}
