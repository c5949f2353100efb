// internal/auth/exchange.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/markb/bodylog/internal/oauth"
)

var (
	// ErrRedirectNotAllowed is returned when the redirect URI does not
	// match the configured allow-list.
	ErrRedirectNotAllowed = errors.New("redirect uri is not allowed")
	// ErrProviderNotConfigured is returned when no identity provider
	// has been wired into the service.
	ErrProviderNotConfigured = errors.New("oauth provider not configured")
)

// ExchangeResult is the outcome of a successful code exchange: the
// resolved local user and a freshly issued application token.
type ExchangeResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// ExchangeCode redeems an authorization code for an application
// session. Each step is a distinct failure point: redirect allow-list,
// provider exchange, identity-token verification (done inside the
// provider), the verified-email gate, user resolution, and token
// issuance. Provider and signing secrets never leave this boundary.
func (s *Service) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*ExchangeResult, error) {
	if s.provider == nil {
		return nil, ErrProviderNotConfigured
	}

	if !s.isRedirectAllowed(redirectURI) {
		return nil, ErrRedirectNotAllowed
	}

	claims, err := s.provider.Exchange(ctx, code, codeVerifier, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	// An unverified email is not sufficient identity proof.
	if !claims.EmailVerified {
		return nil, oauth.ErrEmailNotVerified
	}

	user, err := s.ResolveOAuthUser(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	token, expiresAt, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &ExchangeResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// isRedirectAllowed checks the redirect URI against the allow-list.
// With no allow-list configured, everything is allowed (development
// mode). Matching is by scheme and host, plus path prefix when the
// allowed entry carries a path.
func (s *Service) isRedirectAllowed(redirectURI string) bool {
	if len(s.allowedRedirects) == 0 {
		return true
	}

	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}

	for _, allowed := range s.allowedRedirects {
		allowedParsed, err := url.Parse(allowed)
		if err != nil {
			continue
		}

		if parsed.Scheme != allowedParsed.Scheme || parsed.Host != allowedParsed.Host {
			continue
		}

		if allowedParsed.Path != "" && allowedParsed.Path != "/" {
			if strings.HasPrefix(parsed.Path, allowedParsed.Path) {
				return true
			}
		} else {
			return true
		}
	}

	return false
}
