package social

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

const linkedInUserInfoURL = "https://api.linkedin.com/v2/userinfo"

var linkedInEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
}

// LinkedInProvider authenticates against LinkedIn's OpenID Connect surface.
type LinkedInProvider struct {
	clientID     string
	clientSecret string

	HTTPClient *http.Client

	userInfoURL string
}

func NewLinkedIn(clientID, clientSecret string) *LinkedInProvider {
	return &LinkedInProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		userInfoURL:  linkedInUserInfoURL,
	}
}

func (p *LinkedInProvider) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     linkedInEndpoint,
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func (p *LinkedInProvider) CreateOauthURL(redirectURI, state string) string {
	return p.config(redirectURI).AuthCodeURL(state)
}

func (p *LinkedInProvider) Authorize(ctx context.Context, code, redirectURI string) (string, error) {
	tok, err := exchange(ctx, p.config(redirectURI), code, p.HTTPClient)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (p *LinkedInProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequest(http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var info struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
		Picture    string `json:"picture"`
	}
	if err := getJSON(ctx, p.HTTPClient, req, &info); err != nil {
		return nil, err
	}
	return &User{
		ID:        info.Sub,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Avatar:    info.Picture,
	}, nil
}
