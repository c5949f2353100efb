// internal/server/server_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/markb/bodylog/internal/db"
	"github.com/markb/bodylog/internal/oauth"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-min-32-characters"

type fakeProvider struct {
	claims *oauth.IdentityClaims
	err    error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AuthURL(state, codeChallenge, redirectURI string) string {
	return "https://provider.test/auth"
}

func (f *fakeProvider) Exchange(ctx context.Context, code, codeVerifier, redirectURI string) (*oauth.IdentityClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func setupTestServer(t *testing.T, provider oauth.Provider) (*Server, *httptest.Server) {
	t.Helper()

	database, err := db.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	t.Cleanup(func() { database.Close() })

	s := New(database, Config{JWTSecret: testJWTSecret, Provider: provider})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func verifiedClaims(email string) *oauth.IdentityClaims {
	return &oauth.IdentityClaims{
		Subject:       "google-" + email,
		Email:         email,
		EmailVerified: true,
		Name:          "Alice",
		Picture:       "https://example.com/a.png",
	}
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// exchangeSession runs the code exchange and returns the issued token
// and user id.
func exchangeSession(t *testing.T, ts *httptest.Server) (string, string) {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/auth/google/code", "", map[string]string{
		"code":         "code-1",
		"codeVerifier": "verifier-1",
		"redirectUri":  "http://localhost:9094/auth/callback",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user, _ := body["user"].(map[string]any)
	require.NotNil(t, user)
	id, _ := user["id"].(string)
	require.NotEmpty(t, id)
	return token, id
}

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func TestHealth(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}
