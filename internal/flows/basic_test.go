package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentyard/authcore/token"
)

func TestLoginIssuesSessionToken(t *testing.T) {
	d, _, _ := testDeps(t)
	u := seedUser(t, d, "a@example.com", "s3cret-pass")

	res, err := RunLogin(context.Background(), d, "a@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, res.TFARequired)
	require.NotNil(t, res.User)
	assert.Equal(t, u.ID, res.User.ID)

	payload, err := d.Codec.Verify(res.Token, d.Settings.TokenSecret, token.Expect{
		Subject:  token.SubjectSession,
		Audience: d.Settings.Audience,
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, payload.ID)
	assert.Equal(t, "a@example.com", payload.Email)
	assert.NotEmpty(t, payload.LastRoleID)
}

func TestLoginUnknownEmail(t *testing.T) {
	d, _, _ := testDeps(t)
	_, err := RunLogin(context.Background(), d, "ghost@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginRejectionReasons(t *testing.T) {
	ctx := context.Background()

	t.Run("deleted account", func(t *testing.T) {
		d, users, _ := testDeps(t)
		u := seedUser(t, d, "a@example.com", "s3cret-pass")
		users.byID[u.ID].Deleted = true

		_, err := RunLogin(ctx, d, "a@example.com", "s3cret-pass")
		require.ErrorIs(t, err, ErrLoginRejected)
		var le *LoginError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ReasonDeleted, le.Reason)
	})

	t.Run("locked account", func(t *testing.T) {
		d, users, _ := testDeps(t)
		u := seedUser(t, d, "a@example.com", "s3cret-pass")
		users.byID[u.ID].Locked = true

		_, err := RunLogin(ctx, d, "a@example.com", "s3cret-pass")
		var le *LoginError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ReasonLocked, le.Reason)
	})

	t.Run("social only account", func(t *testing.T) {
		d, users, _ := testDeps(t)
		u := seedUser(t, d, "a@example.com", "s3cret-pass")
		users.byID[u.ID].PasswordHash = ""

		_, err := RunLogin(ctx, d, "a@example.com", "s3cret-pass")
		var le *LoginError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ReasonNoPassword, le.Reason)
	})
}

func TestLoginWrongPasswordCountsFailure(t *testing.T) {
	d, users, _ := testDeps(t)
	u := seedUser(t, d, "a@example.com", "s3cret-pass")

	_, err := RunLogin(context.Background(), d, "a@example.com", "wrong-pass")
	var le *LoginError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ReasonBadCredentials, le.Reason)
	assert.Equal(t, 1, users.byID[u.ID].FailedLoginAttempts)
	assert.False(t, users.byID[u.ID].Locked)
}

func TestLockoutOnEleventhFailure(t *testing.T) {
	ctx := context.Background()
	d, users, notifier := testDeps(t)
	u := seedUser(t, d, "a@example.com", "s3cret-pass")

	for i := 0; i < 10; i++ {
		_, err := RunLogin(ctx, d, "a@example.com", "wrong-pass")
		require.ErrorIs(t, err, ErrLoginRejected)
	}
	assert.Equal(t, 10, users.byID[u.ID].FailedLoginAttempts)
	assert.False(t, users.byID[u.ID].Locked)
	assert.Empty(t, notifier.ofKind(NotifyPasswordReset))

	_, err := RunLogin(ctx, d, "a@example.com", "wrong-pass")
	require.ErrorIs(t, err, ErrLoginRejected)

	assert.True(t, users.byID[u.ID].Locked)
	assert.Len(t, notifier.ofKind(NotifyAccountLocked), 1)
	resets := notifier.ofKind(NotifyPasswordReset)
	require.Len(t, resets, 1, "lockout initiates exactly one reset")
	assert.NotEmpty(t, resets[0].ResetToken)
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	ctx := context.Background()
	d, users, _ := testDeps(t)
	u := seedUser(t, d, "a@example.com", "s3cret-pass")

	for i := 0; i < 9; i++ {
		_, err := RunLogin(ctx, d, "a@example.com", "wrong-pass")
		require.Error(t, err)
	}
	_, err := RunLogin(ctx, d, "a@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, 0, users.byID[u.ID].FailedLoginAttempts)
}

func TestRegisterRejectsElevatedRoles(t *testing.T) {
	d, _, _ := testDeps(t)
	for _, role := range []Role{RoleAdmin, RoleSuperAdmin} {
		_, err := RunRegister(context.Background(), d, RegisterInput{
			Email:    "a@example.com",
			Password: "s3cret-pass",
			Role:     role,
		})
		assert.ErrorIs(t, err, ErrForbidden, "role %s", role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	d, _, _ := testDeps(t)
	seedUser(t, d, "a@example.com", "s3cret-pass")

	_, err := RunRegister(context.Background(), d, RegisterInput{
		Email:    "a@example.com",
		Password: "other-pass1",
		Role:     RolePro,
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestInitPasswordResetHidesAccountExistence(t *testing.T) {
	ctx := context.Background()
	d, _, notifier := testDeps(t)
	seedUser(t, d, "a@example.com", "s3cret-pass")

	msg, err := RunInitPasswordReset(ctx, d, "ghost@example.com")
	require.NoError(t, err)
	assert.Equal(t, ResetMessage, msg)
	assert.Empty(t, notifier.sent)

	msg, err = RunInitPasswordReset(ctx, d, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, ResetMessage, msg)
	assert.Len(t, notifier.ofKind(NotifyPasswordReset), 1)
}

func TestResetPasswordIsSingleUse(t *testing.T) {
	ctx := context.Background()
	d, users, notifier := testDeps(t)
	u := seedUser(t, d, "a@example.com", "old-pass-99")
	users.byID[u.ID].Locked = true
	users.byID[u.ID].FailedLoginAttempts = 11

	_, err := RunInitPasswordReset(ctx, d, "a@example.com")
	require.NoError(t, err)
	resetToken := notifier.ofKind(NotifyPasswordReset)[0].ResetToken

	res, err := RunResetPassword(ctx, d, resetToken, "new-pass-99")
	require.NoError(t, err)
	assert.False(t, res.TFARequired)
	assert.NotEmpty(t, res.Token)

	stored := users.byID[u.ID]
	assert.Equal(t, u.JWTVersion+1, stored.JWTVersion)
	assert.False(t, stored.Locked)
	assert.Equal(t, 0, stored.FailedLoginAttempts)

	_, err = RunLogin(ctx, d, "a@example.com", "new-pass-99")
	require.NoError(t, err)

	_, err = RunResetPassword(ctx, d, resetToken, "another-pass")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTwoResetTokensAreIndependent(t *testing.T) {
	ctx := context.Background()
	d, _, notifier := testDeps(t)
	seedUser(t, d, "a@example.com", "old-pass-99")

	_, err := RunInitPasswordReset(ctx, d, "a@example.com")
	require.NoError(t, err)
	_, err = RunInitPasswordReset(ctx, d, "a@example.com")
	require.NoError(t, err)

	resets := notifier.ofKind(NotifyPasswordReset)
	require.Len(t, resets, 2)
	assert.NotEqual(t, resets[0].ResetToken, resets[1].ResetToken)

	_, err = RunResetPassword(ctx, d, resets[0].ResetToken, "new-pass-one")
	require.NoError(t, err)

	// The second token's cache entry survives the first completing.
	_, err = RunResetPassword(ctx, d, resets[1].ResetToken, "new-pass-two")
	require.NoError(t, err)
}

func TestUpdatePasswordRequiresOldWhenSet(t *testing.T) {
	ctx := context.Background()
	d, _, _ := testDeps(t)
	u := seedUser(t, d, "a@example.com", "old-pass-99")

	_, err := RunUpdatePassword(ctx, d, u.ID, "", "new-pass-99")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = RunUpdatePassword(ctx, d, u.ID, "wrong-pass", "new-pass-99")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUpdatePasswordInvalidatesOldSessions(t *testing.T) {
	ctx := context.Background()
	d, _, _ := testDeps(t)
	u := seedUser(t, d, "a@example.com", "old-pass-99")

	login, err := RunLogin(ctx, d, "a@example.com", "old-pass-99")
	require.NoError(t, err)

	res, err := RunUpdatePassword(ctx, d, u.ID, "old-pass-99", "new-pass-99")
	require.NoError(t, err)
	assert.Equal(t, u.JWTVersion+1, res.User.JWTVersion)

	// Old token carries the previous jwtVersion.
	_, err = RunVerifySession(ctx, d, login.Token)
	assert.ErrorIs(t, err, token.ErrInvalid)

	// New token is current.
	_, err = RunVerifySession(ctx, d, res.Token)
	assert.NoError(t, err)
}

func TestUpdatePasswordAllowedWithoutExistingPassword(t *testing.T) {
	ctx := context.Background()
	d, users, _ := testDeps(t)
	u := seedUser(t, d, "a@example.com", "old-pass-99")
	users.byID[u.ID].PasswordHash = ""

	res, err := RunUpdatePassword(ctx, d, u.ID, "", "new-pass-99")
	require.NoError(t, err)
	assert.NotEmpty(t, res.User.PasswordHash)

	_, err = RunLogin(ctx, d, "a@example.com", "new-pass-99")
	assert.NoError(t, err)
}

func TestVerifySessionRejectsDeleted(t *testing.T) {
	ctx := context.Background()
	d, users, _ := testDeps(t)
	u := seedUser(t, d, "a@example.com", "s3cret-pass")

	login, err := RunLogin(ctx, d, "a@example.com", "s3cret-pass")
	require.NoError(t, err)

	users.byID[u.ID].Deleted = true
	_, err = RunVerifySession(ctx, d, login.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
