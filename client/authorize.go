package client

import (
	"net/url"

	"github.com/markb/bodylog/internal/oauth"
)

// GoogleAuthEndpoint is the default authorization endpoint.
const GoogleAuthEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"

// LoginState is the state value used to correlate the callback with a
// login attempt started by this client. A fixed marker mirrors the
// upstream behavior; see DESIGN.md for the CSRF discussion.
const LoginState = "login"

// BuildAuthorizationURL constructs the provider authorization URL.
// Pure string construction: no network, no validation of the inputs.
// The challenge method is always S256.
func BuildAuthorizationURL(endpoint, clientID, redirectURI, codeChallenge, state, scope, prompt string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scope)
	q.Set("state", state)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", oauth.ChallengeMethod)
	if prompt != "" {
		q.Set("prompt", prompt)
	}
	return endpoint + "?" + q.Encode()
}
