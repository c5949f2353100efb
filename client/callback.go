package client

import (
	"context"
	"errors"
	"net/url"

	"github.com/markb/bodylog/internal/oauth"
)

// CallbackResult is the terminal outcome of a callback. Success and
// failure are both terminal; retry means restarting the login from
// BeginLogin.
type CallbackResult struct {
	OK      bool
	Session *Session
	Err     *FlowError
}

func callbackFailure(code Code, cause error) CallbackResult {
	return CallbackResult{Err: flowErr(code, cause)}
}

// BeginLogin generates a fresh PKCE pair, stashes the verifier for
// the callback, and returns the authorization URL to send the user to.
func (c *Client) BeginLogin() (string, error) {
	pkce, err := oauth.GeneratePKCE()
	if err != nil {
		return "", err
	}
	if err := c.stash.Put(pkce.Verifier); err != nil {
		return "", err
	}
	return BuildAuthorizationURL(c.cfg.AuthEndpoint, c.cfg.ClientID,
		c.cfg.RedirectURI, pkce.Challenge, LoginState, c.cfg.Scope, c.cfg.Prompt), nil
}

// HandleCallback drives the state machine over the redirect URL:
// parse code and state, validate the state marker, retrieve the
// stashed verifier, and run the exchange. Every failure is returned
// as a tagged result, never panicked or thrown.
func (c *Client) HandleCallback(ctx context.Context, redirectURL string) CallbackResult {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return callbackFailure(CodeMissing, err)
	}
	q := parsed.Query()

	code := q.Get("code")
	if code == "" {
		return callbackFailure(CodeMissing, nil)
	}

	if q.Get("state") != LoginState {
		return callbackFailure(StateMismatch, nil)
	}

	// The verifier lives only in short-lived storage; losing it means
	// the login must be restarted from the beginning.
	verifier, ok := c.stash.Take()
	if !ok {
		return callbackFailure(PKCEVerifierMissing, nil)
	}

	sess, err := c.sessions.Login(ctx, code, verifier, c.cfg.RedirectURI)
	if err != nil {
		// All exchange failures are terminal CODE_EXCHANGE_FAILED; the
		// underlying cause (network, server, rejection) rides along.
		var fe *FlowError
		if errors.As(err, &fe) && fe.Code == CodeExchangeFailed {
			return CallbackResult{Err: fe}
		}
		return callbackFailure(CodeExchangeFailed, err)
	}

	return CallbackResult{OK: true, Session: sess}
}
