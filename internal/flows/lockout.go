package flows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentyard/authcore/internal/stores"
)

// registerLoginFailure records one failed credential check. Crossing the
// attempt limit locks the account and fires exactly one password-reset
// initiation as the unlock path. The persist and notify side effects must
// complete before the caller raises its login error; their failure
// propagates instead.
func registerLoginFailure(ctx context.Context, d *Deps, u *User) error {
	attempts := u.FailedLoginAttempts + 1
	patch := UserPatch{FailedLoginAttempts: ptr(attempts)}

	lock := attempts > d.Settings.FailedAttemptsLimit && !u.Locked
	if lock {
		patch.Locked = ptr(true)
	}

	updated, err := d.Users.Update(ctx, u.ID, patch)
	if err != nil {
		return fmt.Errorf("persisting failed attempt: %w", err)
	}
	if updated == nil {
		return ErrNotFound
	}
	*u = *updated
	d.Metrics.LoginFailure(ctx)

	if !lock {
		return nil
	}

	d.log().Warn("account locked after repeated login failures",
		zap.String("user_id", u.ID),
		zap.Int("attempts", attempts))
	d.Metrics.AccountLocked(ctx)

	if err := d.Notifier.Send(ctx, Notification{
		ID:     uuid.NewString(),
		Kind:   NotifyAccountLocked,
		UserID: u.ID,
		Email:  u.Email,
	}); err != nil {
		return fmt.Errorf("sending lockout notification: %w", err)
	}
	if err := initPasswordReset(ctx, d, u); err != nil {
		return fmt.Errorf("initiating unlock reset: %w", err)
	}
	return nil
}

// clearLoginFailures resets the attempt counter after a successful
// authentication. It never clears Locked; only a completed password reset
// does that.
func clearLoginFailures(ctx context.Context, d *Deps, u *User) error {
	if u.FailedLoginAttempts == 0 {
		return nil
	}
	updated, err := d.Users.Update(ctx, u.ID, UserPatch{FailedLoginAttempts: ptr(0)})
	if err != nil {
		return fmt.Errorf("resetting failed attempts: %w", err)
	}
	if updated == nil {
		return ErrNotFound
	}
	*u = *updated
	return nil
}

// initPasswordReset mints an opaque single-use token, caches the
// token-to-user mapping, and dispatches the reset notification.
func initPasswordReset(ctx context.Context, d *Deps, u *User) error {
	resetToken, err := stores.NewResetToken()
	if err != nil {
		return err
	}
	if err := d.Resets.Save(ctx, resetToken, u.ID, d.Settings.CacheTTL); err != nil {
		return fmt.Errorf("caching reset token: %w", err)
	}
	if err := d.Notifier.Send(ctx, Notification{
		ID:         uuid.NewString(),
		Kind:       NotifyPasswordReset,
		UserID:     u.ID,
		Email:      u.Email,
		ResetToken: resetToken,
	}); err != nil {
		return fmt.Errorf("sending reset notification: %w", err)
	}
	d.Metrics.ResetRequested(ctx)
	return nil
}
