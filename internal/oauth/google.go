package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleIssuer = "https://accounts.google.com"

// GoogleProvider implements the authorization-code exchange against
// Google, verifying the returned identity token before trusting it.
type GoogleProvider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogleProvider creates a Google provider. It performs OIDC
// discovery against the Google issuer to obtain the signing keys used
// for identity-token verification.
func NewGoogleProvider(ctx context.Context, cfg Config) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery failed: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newGoogleProvider(cfg, google.Endpoint, verifier), nil
}

// newGoogleProvider wires an explicit endpoint and verifier. Tests use
// it to point at a local token endpoint with a static key set.
func newGoogleProvider(cfg Config, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoint,
		},
		verifier: verifier,
	}
}

// Name returns "google".
func (g *GoogleProvider) Name() string {
	return "google"
}

// AuthURL generates the Google authorization URL with PKCE.
func (g *GoogleProvider) AuthURL(state, codeChallenge, redirectURI string) string {
	cfg := *g.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", ChallengeMethod),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange redeems the authorization code and verifies the identity
// token from the response: signature against the provider keys, issuer,
// and audience (must equal our client id). The code is single-use, so
// no retry is attempted on failure.
func (g *GoogleProvider) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*IdentityClaims, error) {
	cfg := *g.config
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	token, err := cfg.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("google token exchange failed: %w", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, ErrNoIdentityToken
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("identity token verification failed: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode identity token claims: %w", err)
	}

	identity := &IdentityClaims{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
		Audience:      g.config.ClientID,
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return identity, nil
}
