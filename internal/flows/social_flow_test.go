package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentyard/authcore/social"
)

func googleProfile() *social.User {
	return &social.User{
		ID:        "g-123",
		Email:     "a@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Avatar:    "https://img.example.com/a",
	}
}

func TestSocialLoginSignsUpNewUser(t *testing.T) {
	ctx := context.Background()
	d, users, _ := testDeps(t)

	res, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), RoleClient)
	require.NoError(t, err)
	assert.True(t, res.New)
	assert.NotEmpty(t, res.Token)

	stored := users.byID[res.User.ID]
	assert.Equal(t, "g-123", stored.GoogleID)
	assert.Equal(t, "a@example.com", stored.Email)
	assert.Empty(t, stored.PasswordHash)
	assert.NotEmpty(t, stored.LastRoleID)

	// Next login is no longer new.
	res, err = RunSocialLogin(ctx, d, social.Google, googleProfile(), "")
	require.NoError(t, err)
	assert.False(t, res.New)
}

func TestSocialLoginSignUpRules(t *testing.T) {
	ctx := context.Background()

	t.Run("requires role for unknown user", func(t *testing.T) {
		d, _, _ := testDeps(t)
		_, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), "")
		var le *LoginError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ReasonSignUpFirst, le.Reason)
	})

	t.Run("rejects elevated role", func(t *testing.T) {
		d, _, _ := testDeps(t)
		_, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), RoleAdmin)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("requires provider email", func(t *testing.T) {
		d, _, _ := testDeps(t)
		p := googleProfile()
		p.Email = ""
		_, err := RunSocialLogin(ctx, d, social.Google, p, RoleClient)
		var le *LoginError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, ReasonNoEmail, le.Reason)
	})
}

func TestSocialLoginUnlinkedAccountGetsHint(t *testing.T) {
	ctx := context.Background()
	d, _, _ := testDeps(t)

	// Account exists via Google; a Facebook login with the same email must
	// not silently link.
	_, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), RoleClient)
	require.NoError(t, err)

	_, err = RunSocialLogin(ctx, d, social.Facebook, &social.User{
		ID:    "fb-9",
		Email: "a@example.com",
	}, "")
	var le *LoginError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Reason, "google")
}

func TestSocialLoginPasswordAccountGetsHint(t *testing.T) {
	ctx := context.Background()
	d, _, _ := testDeps(t)
	seedUser(t, d, "a@example.com", "s3cret-pass")

	_, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), "")
	var le *LoginError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Reason, "password")
}

func TestSocialLoginIDConflict(t *testing.T) {
	ctx := context.Background()
	d, _, _ := testDeps(t)

	_, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), RoleClient)
	require.NoError(t, err)

	p := googleProfile()
	p.ID = "g-other"
	_, err = RunSocialLogin(ctx, d, social.Google, p, "")
	var le *LoginError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ReasonIDConflict, le.Reason)
}

func TestSocialLoginRefusedWithTFA(t *testing.T) {
	ctx := context.Background()
	d, users, _ := testDeps(t)

	res, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), RoleClient)
	require.NoError(t, err)
	users.byID[res.User.ID].TFASecret = "sealed"

	_, err = RunSocialLogin(ctx, d, social.Google, googleProfile(), "")
	var le *LoginError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ReasonUseEmailLogin, le.Reason)
}

func TestSocialLoginDeletedAccount(t *testing.T) {
	ctx := context.Background()
	d, users, _ := testDeps(t)

	res, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), RoleClient)
	require.NoError(t, err)
	users.byID[res.User.ID].Deleted = true

	_, err = RunSocialLogin(ctx, d, social.Google, googleProfile(), "")
	var le *LoginError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ReasonDeleted, le.Reason)
}

func TestSocialLoginLookupFallsBackToExternalID(t *testing.T) {
	ctx := context.Background()
	d, _, _ := testDeps(t)

	_, err := RunSocialLogin(ctx, d, social.Google, googleProfile(), RoleClient)
	require.NoError(t, err)

	// Provider stops sharing the email; the external ID still resolves.
	p := googleProfile()
	p.Email = ""
	res, err := RunSocialLogin(ctx, d, social.Google, p, "")
	require.NoError(t, err)
	assert.False(t, res.New)
	assert.Equal(t, "a@example.com", res.User.Email)
}
