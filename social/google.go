package social

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// GoogleProvider authenticates against Google's OAuth2 endpoints and reads
// the profile from the OpenID userinfo endpoint.
type GoogleProvider struct {
	clientID     string
	clientSecret string

	// HTTPClient overrides the client used for token exchange and profile
	// fetches. Nil means http.DefaultClient.
	HTTPClient *http.Client

	userInfoURL string
}

func NewGoogle(clientID, clientSecret string) *GoogleProvider {
	return &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		userInfoURL:  googleUserInfoURL,
	}
}

func (p *GoogleProvider) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     googleEndpoint,
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func (p *GoogleProvider) CreateOauthURL(redirectURI, state string) string {
	return p.config(redirectURI).AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Authorize(ctx context.Context, code, redirectURI string) (string, error) {
	tok, err := exchange(ctx, p.config(redirectURI), code, p.HTTPClient)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (p *GoogleProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
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
