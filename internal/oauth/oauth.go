package oauth

import (
	"context"
	"errors"
)

var (
	ErrNoIdentityToken  = errors.New("provider response did not include an identity token")
	ErrEmailNotVerified = errors.New("provider email is not verified")
	ErrEmailRequired    = errors.New("email is required from oauth provider")
	ErrSubjectRequired  = errors.New("subject is required from oauth provider")
)

// Provider defines the interface for identity providers.
type Provider interface {
	// Name returns the provider identifier (e.g., "google").
	Name() string

	// AuthURL generates the authorization URL for initiating the flow.
	AuthURL(state, codeChallenge, redirectURI string) string

	// Exchange redeems an authorization code for a verified identity.
	// The returned claims have passed signature and audience checks.
	Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*IdentityClaims, error)
}

// IdentityClaims holds the verified claims from a provider identity token.
type IdentityClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Audience      string `json:"aud"`
}

// Validate checks that required fields are present.
func (c *IdentityClaims) Validate() error {
	if c.Subject == "" {
		return ErrSubjectRequired
	}
	if c.Email == "" {
		return ErrEmailRequired
	}
	return nil
}

// Config holds provider configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}
