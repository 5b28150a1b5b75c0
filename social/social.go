// Package social implements the OAuth2 provider adapters used for social
// login. Each provider builds its authorization URL, exchanges an
// authorization code for an access token, and fetches the owner's profile,
// normalized into the common User shape the auth flows consume.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Name identifies a supported provider.
type Name string

const (
	Google   Name = "google"
	Facebook Name = "facebook"
	Apple    Name = "apple"
	LinkedIn Name = "linkedin"
)

// Names lists every supported provider, in linking-hint order.
func Names() []Name {
	return []Name{Google, Facebook, Apple, LinkedIn}
}

// User is the normalized external profile. It is merged into the platform's
// own user record on link or create and never persisted directly.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Avatar    string
}

// Provider is the uniform adapter contract. Authorize and GetUser are
// sequential network calls; the result of the first feeds the second.
type Provider interface {
	CreateOauthURL(redirectURI, state string) string
	Authorize(ctx context.Context, code, redirectURI string) (string, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

func exchange(ctx context.Context, cfg *oauth2.Config, code string, client *http.Client) (*oauth2.Token, error) {
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return tok, nil
}

func getJSON(ctx context.Context, client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile request failed: status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
