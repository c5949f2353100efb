// Package client is the Go SDK for the bodylog API. It drives the
// login flow end to end: PKCE generation, the authorization redirect,
// the callback exchange, durable session storage, and a reconciler
// that keeps an optimistic session view consistent with the server.
package client

import (
	"context"
	"errors"
	"net/http"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the bodylog server, e.g. "https://bodylog.example.com".
	BaseURL string
	// ClientID is the OAuth client id registered with the provider.
	ClientID string
	// RedirectURI is where the provider sends the user back.
	RedirectURI string
	// AuthEndpoint overrides the provider authorization endpoint.
	// Defaults to Google's.
	AuthEndpoint string
	// Scope defaults to "openid email profile".
	Scope string
	// Prompt defaults to "consent".
	Prompt string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// KV is the storage backend for the session and the PKCE verifier.
	KV KV
}

// Client ties the flow pieces together.
type Client struct {
	cfg      Config
	api      *API
	stash    *VerifierStash
	sessions *Manager
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if cfg.KV == nil {
		return nil, errors.New("KV storage is required")
	}
	if cfg.AuthEndpoint == "" {
		cfg.AuthEndpoint = GoogleAuthEndpoint
	}
	if cfg.Scope == "" {
		cfg.Scope = "openid email profile"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "consent"
	}

	api := NewAPI(cfg.BaseURL, cfg.HTTPClient)
	return &Client{
		cfg:      cfg,
		api:      api,
		stash:    NewVerifierStash(cfg.KV),
		sessions: NewManager(NewSessionStore(cfg.KV), api),
	}, nil
}

// Sessions returns the session reconciler.
func (c *Client) Sessions() *Manager {
	return c.sessions
}

// Whoami synchronously revalidates the stored session and returns the
// server-confirmed identity. On rejection the stored session is
// cleared and the tagged error returned.
func (c *Client) Whoami(ctx context.Context) (*User, error) {
	store := NewSessionStore(c.cfg.KV)
	sess := store.Load()
	if sess == nil {
		return nil, flowErr(InvalidToken, errors.New("no stored session"))
	}

	user, err := c.api.Me(ctx, sess.Token)
	if err != nil {
		switch CodeOf(err) {
		case TokenExpired, InvalidToken:
			store.Clear()
		}
		return nil, err
	}
	return user, nil
}
