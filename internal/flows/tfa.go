package flows

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentyard/authcore/secretbox"
	"github.com/talentyard/authcore/token"
)

// RunTFAInit starts two-factor enrollment. The generated secret lives only
// in the pending cache, encrypted under the submitted password, until
// RunTFASetup confirms it. Calling init again with the same password returns
// the same secret; a different password fails to decrypt and errors.
func RunTFAInit(ctx context.Context, d *Deps, userID, password string) (*TFAInitResult, error) {
	u, err := d.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if u.TFAEnabled() {
		return nil, ErrTFAEnabled
	}
	if u.PasswordHash == "" {
		return nil, ErrPasswordRequired
	}
	if !d.Hasher.Verify(u.PasswordHash, password) {
		return nil, fmt.Errorf("%w: password mismatch", ErrUnauthorized)
	}

	key := secretbox.DeriveKey(password)

	var secret string
	envelope, found, err := d.Pending.Get(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if found {
		secret, err = secretbox.Decrypt(envelope, key)
		if err != nil {
			return nil, err
		}
	} else {
		secret, err = d.TOTP.GenerateSecret()
		if err != nil {
			return nil, err
		}
		sealed, err := secretbox.Encrypt(secret, key)
		if err != nil {
			return nil, err
		}
		if err := d.Pending.Save(ctx, u.ID, sealed, d.Settings.CacheTTL); err != nil {
			return nil, err
		}
	}

	return &TFAInitResult{
		Secret: secret,
		URI:    d.TOTP.ProvisionURI(secret, u.Email),
	}, nil
}

// RunTFASetup confirms enrollment with a live code, persists the encrypted
// secret plus hashed recovery codes, and returns the raw recovery codes the
// one time they exist in plaintext.
func RunTFASetup(ctx context.Context, d *Deps, userID, password, code string) (*TFASetupResult, error) {
	u, err := d.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if u.TFAEnabled() {
		return nil, ErrTFAEnabled
	}

	envelope, found, err := d.Pending.Get(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: pending 2FA secret", ErrNotFound)
	}
	secret, err := secretbox.Decrypt(envelope, secretbox.DeriveKey(password))
	if err != nil {
		return nil, err
	}
	if !d.TOTP.Check(secret, code) {
		return nil, ErrTFACodeInvalid
	}

	raw, hashed, err := generateRecoveryCodes(d)
	if err != nil {
		return nil, err
	}
	updated, err := d.Users.Update(ctx, u.ID, UserPatch{
		TFASecret:        ptr(envelope),
		TFARecoveryCodes: ptr(hashed),
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if err := d.Pending.Delete(ctx, u.ID); err != nil {
		return nil, err
	}

	d.log().Info("two-factor auth enabled", zap.String("user_id", u.ID))
	return &TFASetupResult{RecoveryCodes: raw}, nil
}

// RunTFARemove disables two-factor auth. The request must prove possession
// of either the live TOTP device or an unused recovery code.
func RunTFARemove(ctx context.Context, d *Deps, userID, password string, factor Factor) error {
	u, err := d.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	if !u.TFAEnabled() {
		return ErrTFANotEnabled
	}

	switch factor.Kind {
	case FactorTOTP:
		secret, err := secretbox.Decrypt(u.TFASecret, secretbox.DeriveKey(password))
		if err != nil {
			return err
		}
		if !d.TOTP.Check(secret, factor.Code) {
			return ErrTFACodeInvalid
		}
	case FactorRecovery:
		if matchRecoveryCode(d, u, factor.Code) < 0 {
			return ErrTFACodeInvalid
		}
	default:
		return fmt.Errorf("unknown factor kind %q", factor.Kind)
	}

	updated, err := d.Users.Update(ctx, u.ID, UserPatch{
		TFASecret:        ptr(""),
		TFARecoveryCodes: ptr([]string(nil)),
	})
	if err != nil {
		return err
	}
	if updated == nil {
		return fmt.Errorf("%w: user", ErrNotFound)
	}

	d.log().Info("two-factor auth removed", zap.String("user_id", u.ID))
	return nil
}

// RunTFALogin finishes a password login that stopped at the second factor.
// The transitional token carries the email and the cipher key derived from
// the verified password, so the stored secret can be unsealed without the
// password itself crossing this boundary again.
func RunTFALogin(ctx context.Context, d *Deps, transitional string, factor Factor) (*LoginResult, error) {
	payload, err := d.Codec.Verify(transitional, d.Settings.TokenSecret, token.Expect{
		Subject:  token.SubjectTFA,
		Audience: d.Settings.Audience,
	})
	if err != nil {
		return nil, err
	}
	u, err := d.Users.FindByEmail(ctx, payload.Email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if u.Locked {
		return nil, loginErr(ReasonLocked)
	}
	if !u.TFAEnabled() {
		return nil, ErrTFANotEnabled
	}

	key, err := secretbox.ParseKey(payload.PassKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrInvalid, err)
	}
	secret, err := secretbox.Decrypt(u.TFASecret, key)
	if err != nil {
		return nil, err
	}

	patch := UserPatch{FailedLoginAttempts: ptr(0)}

	var ok bool
	switch factor.Kind {
	case FactorTOTP:
		ok = d.TOTP.Check(secret, factor.Code)
	case FactorRecovery:
		if i := matchRecoveryCode(d, u, factor.Code); i >= 0 {
			ok = true
			patch.TFARecoveryCodes = ptr(withoutIndex(u.TFARecoveryCodes, i))
		}
	default:
		return nil, fmt.Errorf("unknown factor kind %q", factor.Kind)
	}

	if !ok {
		d.Metrics.TFAFailure(ctx)
		if err := registerLoginFailure(ctx, d, u); err != nil {
			return nil, err
		}
		return nil, ErrTFACodeInvalid
	}

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
	d.Metrics.TFASuccess(ctx)
	d.Metrics.LoginSuccess(ctx)
	return &LoginResult{Token: session, User: u}, nil
}

// RunTFAResetPassword finishes a password reset on an account with
// two-factor auth enabled. The TOTP path proves the old password and a live
// code and reseals the secret under the new password; the recovery path
// wipes two-factor state entirely, since the device and old password may
// both be gone. The token's jwtVersion pins it to the state it was issued
// against, so it dies once any reset completes.
func RunTFAResetPassword(ctx context.Context, d *Deps, transitional string, proof ResetProof) (*LoginResult, error) {
	payload, err := d.Codec.Verify(transitional, d.Settings.TokenSecret, token.Expect{
		Subject:  token.SubjectReset,
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
	if payload.JWTVersion != u.JWTVersion {
		return nil, fmt.Errorf("%w: reset token already used", token.ErrInvalid)
	}
	if !u.TFAEnabled() {
		return nil, ErrTFANotEnabled
	}

	patch := UserPatch{
		PasswordHash:        ptr(payload.NewPasswordHash),
		JWTVersion:          ptr(u.JWTVersion + 1),
		FailedLoginAttempts: ptr(0),
		Locked:              ptr(false),
	}

	switch proof.Kind {
	case FactorTOTP:
		secret, err := secretbox.Decrypt(u.TFASecret, secretbox.DeriveKey(proof.OldPassword))
		if err != nil {
			return nil, err
		}
		if !d.TOTP.Check(secret, proof.Code) {
			return nil, ErrTFACodeInvalid
		}
		newKey, err := secretbox.ParseKey(payload.NewPassKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", token.ErrInvalid, err)
		}
		resealed, err := secretbox.Encrypt(secret, newKey)
		if err != nil {
			return nil, err
		}
		patch.TFASecret = ptr(resealed)
	case FactorRecovery:
		if matchRecoveryCode(d, u, proof.Code) < 0 {
			return nil, ErrTFACodeInvalid
		}
		patch.TFASecret = ptr("")
		patch.TFARecoveryCodes = ptr([]string(nil))
	default:
		return nil, fmt.Errorf("unknown factor kind %q", proof.Kind)
	}

	updated, err := d.Users.Update(ctx, u.ID, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	u = updated

	d.log().Info("password reset completed with 2FA", zap.String("user_id", u.ID))
	d.Metrics.ResetCompleted(ctx)

	session, err := d.sessionToken(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: session, User: u}, nil
}
