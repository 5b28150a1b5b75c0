package flows

import (
	"go.uber.org/zap"

	"github.com/talentyard/authcore/internal/metrics"
	"github.com/talentyard/authcore/internal/stores"
	"github.com/talentyard/authcore/social"
	"github.com/talentyard/authcore/token"
)

// Deps bundles every collaborator the flows need. The root engine builds
// this once at construction time; nothing here is a package global.
type Deps struct {
	Users    UserStore
	Notifier Notifier
	Hasher   Hasher
	TOTP     TOTPEngine
	Codec    *token.Codec
	Pending  *stores.PendingSecretStore
	Resets   *stores.ResetTokenStore
	Social   map[social.Name]social.Provider
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Settings Settings
}

func (d *Deps) log() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return zap.NewNop()
}

// sessionToken issues the full session credential for a user.
func (d *Deps) sessionToken(u *User) (string, error) {
	return d.Codec.Sign(token.Payload{
		ID:                  u.ID,
		LastRoleID:          u.LastRoleID,
		Email:               u.Email,
		CollectPersonalData: u.CollectPersonalData,
		JWTVersion:          u.JWTVersion,
	}, d.Settings.TokenSecret, token.Options{
		Subject:  token.SubjectSession,
		Audience: d.Settings.Audience,
		TTL:      d.Settings.SessionTTL,
	})
}
