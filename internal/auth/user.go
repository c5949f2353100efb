// internal/auth/user.go
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/markb/bodylog/internal/db"
	"github.com/markb/bodylog/internal/oauth"
)

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	GoogleID    string    `json:"google_id"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Service struct {
	db               *db.DB
	jwtSecret        string
	provider         oauth.Provider
	allowedRedirects []string
}

func NewService(database *db.DB, jwtSecret string) *Service {
	return &Service{db: database, jwtSecret: jwtSecret}
}

// SetProvider wires the identity provider used for code exchange.
func (s *Service) SetProvider(p oauth.Provider) {
	s.provider = p
}

// SetAllowedRedirects configures the redirect URI allow-list.
// An empty list allows everything (development mode).
func (s *Service) SetAllowedRedirects(urls []string) {
	s.allowedRedirects = urls
}

// ResolveOAuthUser finds or creates the local user for a verified
// identity. Existing users keep their stored username and display
// name; the avatar and provider subject are refreshed from the fresh
// claims on every login.
func (s *Service) ResolveOAuthUser(claims *oauth.IdentityClaims) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(claims.Email))

	user, err := s.GetUserByEmail(email)
	if err == nil {
		now := time.Now().UTC().Format(time.RFC3339)
		_, err = s.db.Exec(`
			UPDATE users SET google_id = ?, avatar_url = ?, updated_at = ?
			WHERE id = ?`,
			claims.Subject, claims.Picture, now, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh user: %w", err)
		}
		return s.GetUserByID(user.ID)
	}
	if err != ErrUserNotFound {
		return nil, err
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = localPart(email)
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.Exec(`
		INSERT INTO users (id, email, username, display_name, google_id, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, email, generateUsername(email), displayName, claims.Subject, claims.Picture, now, now)

	if err != nil {
		// Concurrent first logins for the same email can both reach
		// the insert; the unique constraint resolves the race and the
		// loser re-reads the winner's row.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return s.GetUserByEmail(email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.GetUserByID(id)
}

// ErrUserNotFound is returned when no matching user row exists.
var ErrUserNotFound = fmt.Errorf("user not found")

func (s *Service) GetUserByID(id string) (*User, error) {
	return s.getUser("SELECT id, email, username, display_name, google_id, avatar_url, created_at, updated_at FROM users WHERE id = ?", id)
}

func (s *Service) GetUserByEmail(email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.getUser("SELECT id, email, username, display_name, google_id, avatar_url, created_at, updated_at FROM users WHERE email = ?", email)
}

func (s *Service) getUser(query string, arg any) (*User, error) {
	var user User
	var createdAt, updatedAt string

	err := s.db.QueryRow(query, arg).Scan(&user.ID, &user.Email, &user.Username,
		&user.DisplayName, &user.GoogleID, &user.AvatarURL, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &user, nil
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// generateUsername derives a unique username from the email local part
// plus a short random suffix.
func generateUsername(email string) string {
	b := make([]byte, 3)
	rand.Read(b)
	return localPart(email) + "-" + hex.EncodeToString(b)
}
