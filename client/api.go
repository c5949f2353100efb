package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// User is the identity the server vouches for.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture,omitempty"`
	GoogleID string `json:"googleId,omitempty"`
}

// Session is the unit persisted client-side: the verified user plus
// the bearer token authorizing requests on their behalf. ExpiresAt is
// zero when unknown; the token itself is opaque beyond its expiry.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// API is the HTTP client for the bodylog auth endpoints. All failures
// come back as *FlowError so callers can branch on the code.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ExchangeCode redeems an authorization code and PKCE verifier for a
// session. The code is single-use, so failures are terminal.
func (a *API) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI string) (*Session, error) {
	body, _ := json.Marshal(map[string]string{
		"code":         code,
		"codeVerifier": codeVerifier,
		"redirectUri":  redirectURI,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/auth/google/code", bytes.NewReader(body))
	if err != nil {
		return nil, flowErr(NetworkError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, flowErr(NetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, flowErr(ServerUnavailable, fmt.Errorf("server returned %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, flowErr(CodeExchangeFailed, fmt.Errorf("exchange rejected: %s", readError(resp)))
	}

	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, flowErr(CodeExchangeFailed, fmt.Errorf("malformed exchange response: %w", err))
	}
	if sess.Token == "" || sess.User.ID == "" {
		return nil, flowErr(CodeExchangeFailed, fmt.Errorf("incomplete exchange response"))
	}
	return &sess, nil
}

// Me revalidates a token against the server and returns the fresh
// identity. A 401 reports TOKEN_EXPIRED or INVALID_TOKEN depending on
// the server's reason.
func (a *API) Me(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, flowErr(NetworkError, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, flowErr(NetworkError, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		reason := readError(resp)
		if strings.Contains(reason, "expired") {
			return nil, flowErr(TokenExpired, fmt.Errorf("%s", reason))
		}
		return nil, flowErr(InvalidToken, fmt.Errorf("%s", reason))
	case resp.StatusCode >= 500:
		return nil, flowErr(ServerUnavailable, fmt.Errorf("server returned %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, flowErr(InvalidToken, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, flowErr(ServerUnavailable, fmt.Errorf("malformed identity response: %w", err))
	}
	return &user, nil
}

// Logout notifies the server. Best-effort: the token is stateless, so
// a failure here does not undo a local logout.
func (a *API) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/logout", nil)
	if err != nil {
		return flowErr(NetworkError, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.http.Do(req)
	if err != nil {
		return flowErr(NetworkError, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return flowErr(ServerUnavailable, fmt.Errorf("logout returned %d", resp.StatusCode))
	}
	return nil
}

// readError extracts the {"error": ...} body, falling back to the
// status text.
func readError(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(resp.StatusCode)
}
