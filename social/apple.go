package social

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

var appleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://appleid.apple.com/auth/authorize",
	TokenURL: "https://appleid.apple.com/auth/token",
}

// AppleProvider authenticates with Sign in with Apple. Apple has no profile
// endpoint; the identity lives in the id_token returned alongside the access
// token, so Authorize hands the id_token forward and GetUser reads its
// claims. The id_token arrives over TLS straight from Apple's token endpoint
// within the same exchange, which is why its signature is not re-verified
// against Apple's JWKS here.
type AppleProvider struct {
	clientID     string
	clientSecret string

	HTTPClient *http.Client
}

func NewApple(clientID, clientSecret string) *AppleProvider {
	return &AppleProvider{clientID: clientID, clientSecret: clientSecret}
}

func (p *AppleProvider) config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     appleEndpoint,
		RedirectURL:  redirectURI,
		Scopes:       []string{"name", "email"},
	}
}

func (p *AppleProvider) CreateOauthURL(redirectURI, state string) string {
	return p.config(redirectURI).AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "form_post"))
}

func (p *AppleProvider) Authorize(ctx context.Context, code, redirectURI string) (string, error) {
	tok, err := exchange(ctx, p.config(redirectURI), code, p.HTTPClient)
	if err != nil {
		return "", err
	}
	idToken, ok := tok.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errors.New("apple token response missing id_token")
	}
	return idToken, nil
}

func (p *AppleProvider) GetUser(_ context.Context, idToken string) (*User, error) {
	var claims struct {
		jwt.RegisteredClaims
		Email string `json:"email"`
	}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("malformed apple id_token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("apple id_token missing subject")
	}
	return &User{
		ID:    claims.Subject,
		Email: claims.Email,
	}, nil
}
