package client

import (
	"context"
	"sync"

	"github.com/markb/bodylog/internal/log"
)

// State is the session view exposed to callers.
type State struct {
	Authenticated bool
	Loading       bool
	User          *User
	Token         string
}

// Patch is a pending optimistic change layered over the authoritative
// state.
type Patch struct {
	Loading *bool
	Session *Session
	Clear   bool
}

// merge is the pure reducer producing the optimistic view from the
// authoritative state plus a patch.
func merge(authoritative State, p Patch) State {
	out := authoritative
	if p.Clear {
		out = State{}
	}
	if p.Session != nil {
		user := p.Session.User
		out.Authenticated = true
		out.User = &user
		out.Token = p.Session.Token
	}
	if p.Loading != nil {
		out.Loading = *p.Loading
	}
	return out
}

func sessionPatch(sess *Session) Patch {
	return Patch{Session: sess}
}

// Manager reconciles two views of the session: an authoritative state
// trusted only after server confirmation, and an optimistic state the
// UI can show immediately. The authoritative result, when it arrives,
// always wins over a stale optimistic value.
type Manager struct {
	mu    sync.Mutex
	store Store
	api   *API

	authoritative State
	optimistic    State

	// epoch is captured at call time and checked before applying any
	// asynchronous result, so a torn-down or superseded operation's
	// outcome is discarded instead of clobbering newer state.
	epoch uint64
}

func NewManager(store Store, api *API) *Manager {
	return &Manager{store: store, api: api}
}

// Snapshot returns the optimistic state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.optimistic
}

// Authoritative returns the server-confirmed state.
func (m *Manager) Authoritative() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authoritative
}

// Initialize loads the stored session, projects it into the
// optimistic state immediately so callers see "logged in" without
// waiting on the network, then revalidates against the server in the
// background. The returned state is the optimistic projection.
func (m *Manager) Initialize(ctx context.Context) State {
	sess := m.store.Load()

	m.mu.Lock()
	epoch := m.epoch
	if sess != nil {
		m.optimistic = merge(m.authoritative, sessionPatch(sess))
	}
	current := m.optimistic
	m.mu.Unlock()

	if sess != nil {
		go m.revalidate(ctx, epoch, sess)
	}
	return current
}

// revalidate confirms a stored session against the server. Success
// merges the fresher identity into both states and the store; any
// failure degrades to logged-out. Results arriving after cancellation
// or a newer operation are discarded.
func (m *Manager) revalidate(ctx context.Context, epoch uint64, sess *Session) {
	user, err := m.api.Me(ctx, sess.Token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() != nil || m.epoch != epoch {
		return
	}

	if err != nil {
		log.Debug("session revalidation failed", "code", CodeOf(err))
		m.store.Clear()
		m.authoritative = State{}
		m.optimistic = State{}
		return
	}

	fresh := *sess
	fresh.User.ID = user.ID
	fresh.User.Email = user.Email
	fresh.User.Name = user.Name
	if user.GoogleID != "" {
		fresh.User.GoogleID = user.GoogleID
	}

	if err := m.store.Save(&fresh); err != nil {
		log.Warn("failed to persist revalidated session", "error", err)
	}
	m.authoritative = merge(State{}, sessionPatch(&fresh))
	m.optimistic = m.authoritative
}

// Login exchanges an authorization code for a session. The loading
// flag is visible optimistically for the duration; on failure it is
// rolled back and the error propagated to the caller.
func (m *Manager) Login(ctx context.Context, code, codeVerifier, redirectURI string) (*Session, error) {
	loading := true
	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.optimistic = merge(m.authoritative, Patch{Loading: &loading})
	m.mu.Unlock()

	sess, err := m.api.ExchangeCode(ctx, code, codeVerifier, redirectURI)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		// Superseded by a newer operation; discard this result
		return nil, flowErr(CodeExchangeFailed, ctx.Err())
	}

	if err != nil {
		m.optimistic = m.authoritative
		return nil, err
	}

	if err := m.store.Save(sess); err != nil {
		// Storage trouble never blocks a completed login
		log.Warn("failed to persist session", "error", err)
	}
	m.authoritative = merge(State{}, sessionPatch(sess))
	m.optimistic = m.authoritative
	return sess, nil
}

// Logout clears both states and the store immediately, then notifies
// the server best-effort. The token is stateless, so a failed notify
// cannot undo the already-completed local logout.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.epoch++
	token := m.optimistic.Token
	if token == "" {
		token = m.authoritative.Token
	}
	m.authoritative = State{}
	m.optimistic = State{}
	m.mu.Unlock()

	m.store.Clear()

	// The local logout above is already complete; a failed notify
	// changes nothing, since a stateless token cannot be un-issued.
	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			log.Debug("logout notification failed", "code", CodeOf(err))
		}
	}
}
