package client

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Fixed storage keys for the persisted session record.
const (
	KeyToken     = "auth_token"
	KeyUser      = "auth_user"
	KeyExpiresAt = "auth_expires_at"
	keyVerifier  = "pkce_verifier"
)

// KV is the low-level persistence the session store and verifier
// stash are built on.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileKV stores one file per key under a directory.
type FileKV struct {
	dir string
}

func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, key)
}

func (f *FileKV) Get(key string) (string, bool, error) {
	b, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (f *FileKV) Set(key, value string) error {
	return os.WriteFile(f.path(key), []byte(value), 0o600)
}

func (f *FileKV) Delete(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryKV is an in-memory KV, used in tests and as a throwaway
// backend for processes that should not persist a session.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Store is the session persistence contract the reconciler depends
// on. SessionStore is the real implementation; tests may inject fakes.
type Store interface {
	Save(sess *Session) error
	Load() *Session
	Clear()
	HasValid() bool
}

// SessionStore owns the persisted {token, user, expiry} record. It
// never holds a token without a user or vice versa: a partial or
// corrupt record is deleted on read rather than surfaced.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

func (s *SessionStore) Save(sess *Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	if err := s.kv.Set(KeyToken, sess.Token); err != nil {
		return err
	}
	if err := s.kv.Set(KeyUser, string(userJSON)); err != nil {
		// Do not leave a token without a user behind
		s.kv.Delete(KeyToken)
		return err
	}
	if !sess.ExpiresAt.IsZero() {
		return s.kv.Set(KeyExpiresAt, strconv.FormatInt(sess.ExpiresAt.Unix(), 10))
	}
	return s.kv.Delete(KeyExpiresAt)
}

// Load returns the stored session, or nil when there is none. A
// record missing either field, or whose user JSON fails validation,
// is cleared and reported as absent.
func (s *SessionStore) Load() *Session {
	token, hasToken, err := s.kv.Get(KeyToken)
	if err != nil {
		return nil
	}
	userJSON, hasUser, err := s.kv.Get(KeyUser)
	if err != nil {
		return nil
	}

	if !hasToken && !hasUser {
		return nil
	}
	if !hasToken || !hasUser || strings.TrimSpace(token) == "" {
		s.Clear()
		return nil
	}

	var user User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil ||
		user.ID == "" || user.Email == "" {
		s.Clear()
		return nil
	}

	sess := &Session{User: user, Token: token}
	if raw, ok, _ := s.kv.Get(KeyExpiresAt); ok {
		if unix, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			sess.ExpiresAt = time.Unix(unix, 0)
		}
	}
	return sess
}

// Clear removes all session fields. Safe to call with nothing stored.
func (s *SessionStore) Clear() {
	s.kv.Delete(KeyToken)
	s.kv.Delete(KeyUser)
	s.kv.Delete(KeyExpiresAt)
}

// HasValid reports whether a complete, unexpired session is stored.
// An expired record is cleared on the way out.
func (s *SessionStore) HasValid() bool {
	sess := s.Load()
	if sess == nil {
		return false
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		s.Clear()
		return false
	}
	return true
}

// VerifierStash holds the PKCE verifier for the pending login attempt.
// The verifier is single-use: Take removes it on read.
type VerifierStash struct {
	kv KV
}

func NewVerifierStash(kv KV) *VerifierStash {
	return &VerifierStash{kv: kv}
}

func (v *VerifierStash) Put(verifier string) error {
	return v.kv.Set(keyVerifier, verifier)
}

func (v *VerifierStash) Take() (string, bool) {
	val, ok, err := v.kv.Get(keyVerifier)
	if err != nil || !ok || val == "" {
		return "", false
	}
	v.kv.Delete(keyVerifier)
	return val, true
}

func (v *VerifierStash) Clear() {
	v.kv.Delete(keyVerifier)
}
