// internal/server/records_test.go
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordsCRUD(t *testing.T) {
	_, ts := setupTestServer(t, &fakeProvider{claims: verifiedClaims("a@example.com")})
	token, _ := exchangeSession(t, ts)

	// Create
	resp, created := doJSON(t, http.MethodPost, ts.URL+"/api/records", token, map[string]any{
		"weightKg":   82.3,
		"bodyFatPct": 21.5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entryID := created["id"].(string)
	require.NotEmpty(t, entryID)

	// List
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/records", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var entries []map[string]any
	raw, _ := io.ReadAll(listResp.Body)
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 82.3, entries[0]["weightKg"])

	// Update
	resp, updated := doJSON(t, http.MethodPut, ts.URL+"/api/records/"+entryID, token, map[string]any{
		"weightKg": 81.0,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 81.0, updated["weightKg"])

	// Delete
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/records/"+entryID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/records/"+entryID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecordsValidation(t *testing.T) {
	_, ts := setupTestServer(t, &fakeProvider{claims: verifiedClaims("a@example.com")})
	token, _ := exchangeSession(t, ts)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/records", token, map[string]any{
		"weightKg": -5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "weightKg must be positive", body["error"])

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/records", token, map[string]any{
		"weightKg":   80,
		"bodyFatPct": 150,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bodyFatPct must be between 0 and 100", body["error"])
}

func TestRecordsRequireAuth(t *testing.T) {
	_, ts := setupTestServer(t, &fakeProvider{claims: verifiedClaims("a@example.com")})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "authorization required", body["error"])
}

func TestLeaderboardRedaction(t *testing.T) {
	_, ts := setupTestServer(t, &fakeProvider{claims: verifiedClaims("a@example.com")})
	token, _ := exchangeSession(t, ts)

	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/records", token, map[string]any{
		"weightKg": 82.3,
	})
	require.NotEmpty(t, created["id"])

	fetch := func(token string) []map[string]any {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/leaderboard", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rows []map[string]any
		raw, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(raw, &rows))
		return rows
	}

	// Guests see redacted names
	rows := fetch("")
	require.Len(t, rows, 1)
	assert.Equal(t, "Anonymous", rows[0]["name"])
	assert.Equal(t, float64(1), rows[0]["rank"])

	// The authenticated caller sees their own name
	rows = fetch(token)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0]["name"])

	// An invalid token degrades to guest, not an error
	rows = fetch("garbage")
	require.Len(t, rows, 1)
	assert.Equal(t, "Anonymous", rows[0]["name"])
}
