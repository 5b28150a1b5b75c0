package flows

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/talentyard/authcore/social"
)

// RunSocialLogin signs a user in (or up) from a verified external profile.
// Lookup prefers the profile email and falls back to the provider's external
// ID. A nonexistent account requires a role in the request; an existing
// account must either already be linked to this exact external ID or carry
// no ID for the provider at all, and in the latter case the login is
// rejected with a hint listing what the account is connected to.
func RunSocialLogin(ctx context.Context, d *Deps, provider social.Name, su *social.User, role Role) (*SocialLoginResult, error) {
	var u *User
	var err error
	if su.Email != "" {
		u, err = d.Users.FindByEmail(ctx, su.Email)
		if err != nil {
			return nil, err
		}
	}
	if u == nil && su.ID != "" {
		u, err = d.Users.FindBySocialID(ctx, provider, su.ID)
		if err != nil {
			return nil, err
		}
	}

	isNew := u == nil
	if isNew {
		u, err = createSocialUser(ctx, d, provider, su, role)
		if err != nil {
			return nil, err
		}
	} else {
		switch linked := u.ExternalID(provider); {
		case linked == "":
			return nil, loginErr(connectedHint(u))
		case linked != su.ID:
			return nil, loginErr(ReasonIDConflict)
		}
		if u.TFAEnabled() {
			return nil, loginErr(ReasonUseEmailLogin)
		}
		if u.Deleted {
			return nil, loginErr(ReasonDeleted)
		}
		if err := clearLoginFailures(ctx, d, u); err != nil {
			return nil, err
		}
	}

	session, err := d.sessionToken(u)
	if err != nil {
		return nil, err
	}
	d.Metrics.SocialLogin(ctx, string(provider))
	return &SocialLoginResult{Token: session, User: u, New: isNew}, nil
}

func createSocialUser(ctx context.Context, d *Deps, provider social.Name, su *social.User, role Role) (*User, error) {
	if role == "" {
		return nil, loginErr(ReasonSignUpFirst)
	}
	if role.Elevated() {
		return nil, fmt.Errorf("%w: cannot sign up role %q", ErrForbidden, role)
	}
	if su.Email == "" {
		return nil, loginErr(ReasonNoEmail)
	}

	u := &User{
		Email:     su.Email,
		FirstName: su.FirstName,
		LastName:  su.LastName,
		Avatar:    su.Avatar,
	}
	setExternalID(u, provider, su.ID)
	if err := d.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	roleID, err := d.Users.CreateRole(ctx, u.ID, role)
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

	d.log().Info("user signed up via social provider",
		zap.String("user_id", updated.ID),
		zap.String("provider", string(provider)))
	return updated, nil
}

func setExternalID(u *User, provider social.Name, id string) {
	switch provider {
	case social.Google:
		u.GoogleID = id
	case social.Facebook:
		u.FacebookID = id
	case social.Apple:
		u.AppleID = id
	case social.LinkedIn:
		u.LinkedInID = id
	}
}

func connectedHint(u *User) string {
	names := u.ConnectedProviders()
	if len(names) == 0 {
		return "This email is registered with password login, sign in with your email and password"
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return "This email is already connected to: " + strings.Join(parts, ", ")
}
