// internal/records/store.go

// Package records implements weight and body-fat entry persistence
// and the leaderboard aggregation built on top of it.
package records

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/markb/bodylog/internal/db"
)

// ErrEntryNotFound is returned when no entry matches the id for the
// given owner. Other users' rows are indistinguishable from absent.
var ErrEntryNotFound = errors.New("entry not found")

type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	WeightKg   float64   `json:"weightKg"`
	BodyFatPct *float64  `json:"bodyFatPct,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LeaderboardRow is one user's aggregate standing.
type LeaderboardRow struct {
	UserID        string  `json:"-"`
	Name          string  `json:"name"`
	EntryCount    int     `json:"entryCount"`
	StartWeight   float64 `json:"startWeight"`
	CurrentWeight float64 `json:"currentWeight"`
	LostKg        float64 `json:"lostKg"`
}

type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func (s *Store) Create(userID string, weightKg float64, bodyFatPct *float64, recordedAt time.Time) (*Entry, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	if recordedAt.IsZero() {
		recordedAt = now
	}

	var fat any
	if bodyFatPct != nil {
		fat = *bodyFatPct
	}

	_, err := s.db.Exec(`
		INSERT INTO entries (id, user_id, weight_kg, body_fat_pct, recorded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, weightKg, fat,
		recordedAt.UTC().Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	return s.Get(userID, id)
}

func (s *Store) Get(userID, id string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, weight_kg, body_fat_pct, recorded_at, created_at
		FROM entries WHERE id = ? AND user_id = ?`, id, userID)
	return scanEntry(row)
}

// ListByUser returns the user's entries, most recent first.
func (s *Store) ListByUser(userID string) ([]*Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, weight_kg, body_fat_pct, recorded_at, created_at
		FROM entries WHERE user_id = ?
		ORDER BY recorded_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) Update(userID, id string, weightKg float64, bodyFatPct *float64, recordedAt time.Time) (*Entry, error) {
	var fat any
	if bodyFatPct != nil {
		fat = *bodyFatPct
	}

	res, err := s.db.Exec(`
		UPDATE entries SET weight_kg = ?, body_fat_pct = ?, recorded_at = ?
		WHERE id = ? AND user_id = ?`,
		weightKg, fat, recordedAt.UTC().Format(time.RFC3339), id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrEntryNotFound
	}

	return s.Get(userID, id)
}

func (s *Store) Delete(userID, id string) error {
	res, err := s.db.Exec("DELETE FROM entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Leaderboard aggregates every user with at least one entry, ranked by
// weight lost between their earliest and latest entries.
func (s *Store) Leaderboard() ([]*LeaderboardRow, error) {
	rows, err := s.db.Query(`
		SELECT u.id, u.display_name, COUNT(e.id),
		       (SELECT weight_kg FROM entries
		        WHERE user_id = u.id ORDER BY recorded_at ASC, created_at ASC LIMIT 1),
		       (SELECT weight_kg FROM entries
		        WHERE user_id = u.id ORDER BY recorded_at DESC, created_at DESC LIMIT 1)
		FROM users u
		JOIN entries e ON e.user_id = u.id
		GROUP BY u.id, u.display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	board := []*LeaderboardRow{}
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Name, &row.EntryCount,
			&row.StartWeight, &row.CurrentWeight); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		row.LostKg = row.StartWeight - row.CurrentWeight
		board = append(board, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Highest loss first, ties broken by entry count
	sort.SliceStable(board, func(i, j int) bool {
		if board[i].LostKg != board[j].LostKg {
			return board[i].LostKg > board[j].LostKg
		}
		return board[i].EntryCount > board[j].EntryCount
	})
	return board, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var entry Entry
	var fat sql.NullFloat64
	var recordedAt, createdAt string

	err := row.Scan(&entry.ID, &entry.UserID, &entry.WeightKg, &fat, &recordedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	if fat.Valid {
		v := fat.Float64
		entry.BodyFatPct = &v
	}
	entry.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
	entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &entry, nil
}
