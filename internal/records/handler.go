// internal/records/handler.go
package records

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/markb/bodylog/internal/auth"
	"github.com/markb/bodylog/internal/log"
)

// Handler exposes the records REST endpoints.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type entryRequest struct {
	WeightKg   float64  `json:"weightKg"`
	BodyFatPct *float64 `json:"bodyFatPct"`
	RecordedAt string   `json:"recordedAt"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *Handler) parseEntry(w http.ResponseWriter, r *http.Request) (*entryRequest, time.Time, bool) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, time.Time{}, false
	}
	if req.WeightKg <= 0 {
		h.writeError(w, http.StatusBadRequest, "weightKg must be positive")
		return nil, time.Time{}, false
	}
	if req.BodyFatPct != nil && (*req.BodyFatPct < 0 || *req.BodyFatPct > 100) {
		h.writeError(w, http.StatusBadRequest, "bodyFatPct must be between 0 and 100")
		return nil, time.Time{}, false
	}

	var recordedAt time.Time
	if req.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "recordedAt must be RFC 3339")
			return nil, time.Time{}, false
		}
		recordedAt = t
	}
	return &req, recordedAt, true
}

// Create adds a new entry for the authenticated user.
// POST /api/records
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	req, recordedAt, ok := h.parseEntry(w, r)
	if !ok {
		return
	}

	entry, err := h.store.Create(claims.UserID, req.WeightKg, req.BodyFatPct, recordedAt)
	if err != nil {
		log.Error("failed to create entry", "error", err, "user_id", claims.UserID)
		h.writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// List returns the authenticated user's entries, most recent first.
// GET /api/records
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	entries, err := h.store.ListByUser(claims.UserID)
	if err != nil {
		log.Error("failed to list entries", "error", err, "user_id", claims.UserID)
		h.writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	json.NewEncoder(w).Encode(entries)
}

// Update replaces an entry owned by the authenticated user.
// PUT /api/records/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	req, recordedAt, ok := h.parseEntry(w, r)
	if !ok {
		return
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	entry, err := h.store.Update(claims.UserID, id, req.WeightKg, req.BodyFatPct, recordedAt)
	if err != nil {
		if err == ErrEntryNotFound {
			h.writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Error("failed to update entry", "error", err, "user_id", claims.UserID)
		h.writeError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}

	json.NewEncoder(w).Encode(entry)
}

// Delete removes an entry owned by the authenticated user.
// DELETE /api/records/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.store.Delete(claims.UserID, id); err != nil {
		if err == ErrEntryNotFound {
			h.writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		log.Error("failed to delete entry", "error", err, "user_id", claims.UserID)
		h.writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"message": "entry deleted"})
}

// Leaderboard returns the ranked standings. Guests see every name
// redacted; authenticated users see their own name and redacted peers.
// GET /api/leaderboard
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	board, err := h.store.Leaderboard()
	if err != nil {
		log.Error("failed to build leaderboard", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to build leaderboard")
		return
	}

	type rankedRow struct {
		Rank int `json:"rank"`
		*LeaderboardRow
	}

	ranked := make([]rankedRow, 0, len(board))
	for i, row := range board {
		if claims == nil || claims.UserID != row.UserID {
			row.Name = "Anonymous"
		}
		ranked = append(ranked, rankedRow{Rank: i + 1, LeaderboardRow: row})
	}

	json.NewEncoder(w).Encode(ranked)
}
