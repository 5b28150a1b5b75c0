package flows

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentyard/authcore/secretbox"
	"github.com/talentyard/authcore/token"
)

// ResetMessage is returned by RunInitPasswordReset no matter what, so the
// response never reveals whether an account exists.
const ResetMessage = "If the account exists, a password reset email has been sent"

// RunLogin authenticates email+password. When the account has two-factor
// auth enabled the result carries a short-lived transitional token instead
// of a session token and the caller must complete RunTFALogin.
func RunLogin(ctx context.Context, d *Deps, email, password string) (*LoginResult, error) {
	u, err := d.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if u.Deleted {
		return nil, loginErr(ReasonDeleted)
	}
	if u.Locked {
		return nil, loginErr(ReasonLocked)
	}
	if u.PasswordHash == "" {
		return nil, loginErr(ReasonNoPassword)
	}

	if !d.Hasher.Verify(u.PasswordHash, password) {
		if err := registerLoginFailure(ctx, d, u); err != nil {
			return nil, err
		}
		return nil, loginErr(ReasonBadCredentials)
	}

	if u.TFAEnabled() {
		transitional, err := d.Codec.Sign(token.Payload{
			Email:   u.Email,
			PassKey: secretbox.DeriveKey(password).Hex(),
		}, d.Settings.TokenSecret, token.Options{
			Subject:  token.SubjectTFA,
			Audience: d.Settings.Audience,
			TTL:      d.Settings.TransitionalTTL,
		})
		if err != nil {
			return nil, err
		}
		d.Metrics.TFARequired(ctx)
		return &LoginResult{Token: transitional, TFARequired: true}, nil
	}

	if err := clearLoginFailures(ctx, d, u); err != nil {
		return nil, err
	}
	session, err := d.sessionToken(u)
	if err != nil {
		return nil, err
	}
	d.Metrics.LoginSuccess(ctx)
	return &LoginResult{Token: session, User: u}, nil
}

// RunRegister creates a user with a role and signs them in.
func RunRegister(ctx context.Context, d *Deps, in RegisterInput) (*LoginResult, error) {
	if in.Role.Elevated() {
		return nil, fmt.Errorf("%w: cannot register role %q", ErrForbidden, in.Role)
	}
	existing, err := d.Users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := d.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:               in.Email,
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		PasswordHash:        hash,
		CollectPersonalData: in.CollectPersonalData,
	}
	if err := d.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	roleID, err := d.Users.CreateRole(ctx, u.ID, in.Role)
	if err != nil {
		return nil, err
	}
	updated, err := d.Users.Update(ctx, u.ID, UserPatch{LastRoleID: ptr(roleID)})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	u = updated

	d.log().Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("role", string(in.Role)))

	session, err := d.sessionToken(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: session, User: u}, nil
}

// RunInitPasswordReset starts the reset flow for an email. The returned
// message is constant whether or not the account exists.
func RunInitPasswordReset(ctx context.Context, d *Deps, email string) (string, error) {
	u, err := d.Users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return ResetMessage, nil
	}
	if err := initPasswordReset(ctx, d, u); err != nil {
		return "", err
	}
	return ResetMessage, nil
}

// RunResetPassword consumes an opaque reset token. With two-factor auth
// enabled the password does not change yet; the caller receives a reset
// transitional token and must finish through RunTFAResetPassword.
func RunResetPassword(ctx context.Context, d *Deps, resetToken, newPassword string) (*ResetResult, error) {
	userID, found, err := d.Resets.Consume(ctx, resetToken)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: unknown or expired reset token", ErrForbidden)
	}
	u, err := d.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	hash, err := d.Hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	if u.TFAEnabled() {
		transitional, err := d.Codec.Sign(token.Payload{
			ID:              u.ID,
			JWTVersion:      u.JWTVersion,
			NewPasswordHash: hash,
			NewPassKey:      secretbox.DeriveKey(newPassword).Hex(),
		}, d.Settings.TokenSecret, token.Options{
			Subject:  token.SubjectReset,
			Audience: d.Settings.Audience,
			TTL:      d.Settings.TransitionalTTL,
		})
		if err != nil {
			return nil, err
		}
		return &ResetResult{Token: transitional, TFARequired: true}, nil
	}

	updated, err := d.Users.Update(ctx, u.ID, UserPatch{
		PasswordHash:        ptr(hash),
		JWTVersion:          ptr(u.JWTVersion + 1),
		FailedLoginAttempts: ptr(0),
		Locked:              ptr(false),
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	u = updated

	d.Metrics.ResetCompleted(ctx)
	session, err := d.sessionToken(u)
	if err != nil {
		return nil, err
	}
	return &ResetResult{Token: session, User: u}, nil
}

// RunUpdatePassword changes the password for a signed-in user. An account
// that already has a password requires the old one; with two-factor auth
// enabled the stored secret is resealed under the new password.
func RunUpdatePassword(ctx context.Context, d *Deps, userID, oldPassword, newPassword string) (*LoginResult, error) {
	u, err := d.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	if u.PasswordHash != "" {
		if oldPassword == "" {
			return nil, ErrPasswordRequired
		}
		if !d.Hasher.Verify(u.PasswordHash, oldPassword) {
			return nil, fmt.Errorf("%w: old password mismatch", ErrUnauthorized)
		}
	}

	patch := UserPatch{JWTVersion: ptr(u.JWTVersion + 1)}

	if u.TFAEnabled() {
		secret, err := secretbox.Decrypt(u.TFASecret, secretbox.DeriveKey(oldPassword))
		if err != nil {
			return nil, err
		}
		resealed, err := secretbox.Encrypt(secret, secretbox.DeriveKey(newPassword))
		if err != nil {
			return nil, err
		}
		patch.TFASecret = ptr(resealed)
	}

	hash, err := d.Hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	patch.PasswordHash = ptr(hash)

	updated, err := d.Users.Update(ctx, u.ID, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	u = updated

	session, err := d.sessionToken(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: session, User: u}, nil
}

// RunVerifySession validates a session token against current user state.
func RunVerifySession(ctx context.Context, d *Deps, raw string) (*User, error) {
	payload, err := d.Codec.Verify(raw, d.Settings.TokenSecret, token.Expect{
		Subject:  token.SubjectSession,
		Audience: d.Settings.Audience,
	})
	if err != nil {
		return nil, err
	}
	u, err := d.Users.FindByID(ctx, payload.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if u.Deleted {
		return nil, fmt.Errorf("%w: account deactivated", ErrUnauthorized)
	}
	if payload.JWTVersion != u.JWTVersion {
		return nil, fmt.Errorf("%w: stale jwtVersion", token.ErrInvalid)
	}
	return u, nil
}
