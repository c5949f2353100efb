package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/markb/bodylog/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal bodylog server covering the auth endpoints
// the client talks to.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/google/code", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code         string `json:"code"`
			CodeVerifier string `json:"codeVerifier"`
			RedirectURI  string `json:"redirectUri"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			req.Code == "" || req.CodeVerifier == "" || req.RedirectURI == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "code, codeVerifier and redirectUri are required"})
			return
		}
		if req.Code == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "code exchange failed"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"user":  map[string]string{"id": "user-1", "email": "a@example.com", "name": "Alice"},
			"token": "issued-token",
		})
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer issued-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "a@example.com", "name": "Alice"})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL:     baseURL,
		ClientID:    "client-123",
		RedirectURI: "http://127.0.0.1:9094/auth/callback",
		KV:          NewMemoryKV(),
	})
	require.NoError(t, err)
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{KV: NewMemoryKV()})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "http://localhost:8080"})
	assert.Error(t, err)
}

func TestBeginLogin(t *testing.T) {
	c := newTestClient(t, "http://localhost:8080")

	authURL, err := c.BeginLogin()
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", parsed.Host)

	q := parsed.Query()
	assert.Equal(t, "client-123", q.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:9094/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, LoginState, q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.NotEmpty(t, q.Get("code_challenge"))

	// The stashed verifier must hash to the challenge in the URL
	verifier, ok := c.stash.Take()
	require.True(t, ok)
	assert.Equal(t, oauth.GenerateCodeChallenge(verifier), q.Get("code_challenge"))
}

func TestHandleCallbackSuccess(t *testing.T) {
	ts := fakeServer(t)
	c := newTestClient(t, ts.URL)

	_, err := c.BeginLogin()
	require.NoError(t, err)

	result := c.HandleCallback(context.Background(),
		c.cfg.RedirectURI+"?code=code-1&state="+LoginState)
	require.True(t, result.OK, "callback failed: %v", result.Err)
	require.NotNil(t, result.Session)
	assert.Equal(t, "user-1", result.Session.User.ID)
	assert.Equal(t, "issued-token", result.Session.Token)
	assert.Nil(t, result.Err)

	// The session is persisted for the next invocation
	store := NewSessionStore(c.cfg.KV)
	require.NotNil(t, store.Load())
}

func TestHandleCallbackMissingCode(t *testing.T) {
	c := newTestClient(t, "http://localhost:8080")

	result := c.HandleCallback(context.Background(),
		c.cfg.RedirectURI+"?state="+LoginState)
	require.False(t, result.OK)
	require.NotNil(t, result.Err)
	assert.Equal(t, CodeMissing, result.Err.Code)
}

func TestHandleCallbackStateMismatch(t *testing.T) {
	c := newTestClient(t, "http://localhost:8080")

	_, err := c.BeginLogin()
	require.NoError(t, err)

	result := c.HandleCallback(context.Background(),
		c.cfg.RedirectURI+"?code=code-1&state=tampered")
	require.False(t, result.OK)
	assert.Equal(t, StateMismatch, result.Err.Code)

	// The verifier is untouched; only a consumed or absent stash fails
	_, ok := c.stash.Take()
	assert.True(t, ok)
}

func TestHandleCallbackVerifierMissing(t *testing.T) {
	c := newTestClient(t, "http://localhost:8080")

	// No BeginLogin: nothing stashed
	result := c.HandleCallback(context.Background(),
		c.cfg.RedirectURI+"?code=code-1&state="+LoginState)
	require.False(t, result.OK)
	assert.Equal(t, PKCEVerifierMissing, result.Err.Code)
}

func TestHandleCallbackExchangeRejected(t *testing.T) {
	ts := fakeServer(t)
	c := newTestClient(t, ts.URL)

	_, err := c.BeginLogin()
	require.NoError(t, err)

	result := c.HandleCallback(context.Background(),
		c.cfg.RedirectURI+"?code=bad-code&state="+LoginState)
	require.False(t, result.OK)
	assert.Equal(t, CodeExchangeFailed, result.Err.Code)

	// The code was single-use: the verifier must be consumed too
	_, ok := c.stash.Take()
	assert.False(t, ok)
}

func TestWhoami(t *testing.T) {
	ts := fakeServer(t)
	c := newTestClient(t, ts.URL)

	_, err := c.Whoami(context.Background())
	require.Error(t, err, "no stored session")

	store := NewSessionStore(c.cfg.KV)
	require.NoError(t, store.Save(&Session{
		User:  User{ID: "user-1", Email: "a@example.com"},
		Token: "issued-token",
	}))

	user, err := c.Whoami(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	// A rejected token clears the stored session
	require.NoError(t, store.Save(&Session{
		User:  User{ID: "user-1", Email: "a@example.com"},
		Token: "stale-token",
	}))
	_, err = c.Whoami(context.Background())
	require.Error(t, err)
	assert.Equal(t, InvalidToken, CodeOf(err))
	assert.Nil(t, store.Load())
}

func TestHandleCallbackServerDown(t *testing.T) {
	ts := fakeServer(t)
	serverURL := ts.URL
	ts.Close()

	c := newTestClient(t, serverURL)
	_, err := c.BeginLogin()
	require.NoError(t, err)

	result := c.HandleCallback(context.Background(),
		c.cfg.RedirectURI+"?code=code-1&state="+LoginState)
	require.False(t, result.OK)
	assert.Equal(t, CodeExchangeFailed, result.Err.Code)
	assert.Error(t, result.Err.Cause)
}
