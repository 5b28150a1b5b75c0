package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/talentyard/authcore/internal/flows"
	"github.com/talentyard/authcore/social"
)

// ErrProviderNotConfigured is returned by social operations naming a
// provider the builder was never given.
var ErrProviderNotConfigured = errors.New("social provider not configured")

// Engine is the authentication facade. Build one with the Builder and share
// it; all methods are safe for concurrent use as long as the injected
// collaborators are.
type Engine struct {
	deps *flows.Deps
}

// Login authenticates email+password. With 2FA enabled the result carries a
// transitional token and TFARequired; finish with TFALogin.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return flows.RunLogin(ctx, e.deps, email, password)
}

// Register creates an account with a non-elevated role and signs it in.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	return flows.RunRegister(ctx, e.deps, in)
}

// InitPasswordReset starts the reset flow. The returned message is constant
// whether or not the account exists.
func (e *Engine) InitPasswordReset(ctx context.Context, email string) (string, error) {
	return flows.RunInitPasswordReset(ctx, e.deps, email)
}

// ResetPassword consumes a single-use reset token. On a 2FA account the
// result carries a transitional token instead; finish with TFAResetPassword.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) (*ResetResult, error) {
	return flows.RunResetPassword(ctx, e.deps, resetToken, newPassword)
}

// UpdatePassword changes the password of a signed-in user, requiring the old
// one when set, and invalidates previously issued session tokens.
func (e *Engine) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) (*LoginResult, error) {
	return flows.RunUpdatePassword(ctx, e.deps, userID, oldPassword, newPassword)
}

// VerifySession validates a session token against current user state.
func (e *Engine) VerifySession(ctx context.Context, raw string) (*User, error) {
	return flows.RunVerifySession(ctx, e.deps, raw)
}

// TFAInit starts two-factor enrollment and returns the secret for QR
// rendering. Nothing persists on the user until TFASetup confirms it.
func (e *Engine) TFAInit(ctx context.Context, userID, password string) (*TFAInitResult, error) {
	return flows.RunTFAInit(ctx, e.deps, userID, password)
}

// TFASetup confirms enrollment with a live code and returns the recovery
// codes, the only time they exist in plaintext.
func (e *Engine) TFASetup(ctx context.Context, userID, password, code string) (*TFASetupResult, error) {
	return flows.RunTFASetup(ctx, e.deps, userID, password, code)
}

// TFARemove disables two-factor auth given a live code or a recovery code.
func (e *Engine) TFARemove(ctx context.Context, userID, password string, factor Factor) error {
	return flows.RunTFARemove(ctx, e.deps, userID, password, factor)
}

// TFALogin completes a login that stopped at the second factor.
func (e *Engine) TFALogin(ctx context.Context, transitional string, factor Factor) (*LoginResult, error) {
	return flows.RunTFALogin(ctx, e.deps, transitional, factor)
}

// TFAResetPassword completes a password reset on a 2FA account.
func (e *Engine) TFAResetPassword(ctx context.Context, transitional string, proof ResetProof) (*LoginResult, error) {
	return flows.RunTFAResetPassword(ctx, e.deps, transitional, proof)
}

// SocialAuthURL builds the provider's authorization URL.
func (e *Engine) SocialAuthURL(provider ProviderName, redirectURI, state string) (string, error) {
	p, err := e.provider(provider)
	if err != nil {
		return "", err
	}
	return p.CreateOauthURL(redirectURI, state), nil
}

// SocialLogin signs a user in (or up, when role is non-empty) from an
// already verified provider profile.
func (e *Engine) SocialLogin(ctx context.Context, provider ProviderName, su *SocialUser, role Role) (*SocialLoginResult, error) {
	return flows.RunSocialLogin(ctx, e.deps, provider, su, role)
}

// SocialLoginWithCode exchanges an authorization code, fetches the profile,
// and signs the user in. The two provider calls run sequentially since the
// token from the first feeds the second.
func (e *Engine) SocialLoginWithCode(ctx context.Context, provider ProviderName, code, redirectURI string, role Role) (*SocialLoginResult, error) {
	p, err := e.provider(provider)
	if err != nil {
		return nil, err
	}
	accessToken, err := p.Authorize(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	su, err := p.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return flows.RunSocialLogin(ctx, e.deps, provider, su, role)
}

func (e *Engine) provider(name ProviderName) (social.Provider, error) {
	p, ok := e.deps.Social[name]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, name)
	}
	return p, nil
}
