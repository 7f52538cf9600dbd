package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calculab/calcu/pkg/domain"
)

// Manager owns the session lifecycle: at most one live session per process,
// observers notified on every transition (sign-in, sign-out, restore).
// Safe for concurrent use; bubbletea commands run on their own goroutines.
type Manager struct {
	provider *Provider
	file     *SessionFile
	logger   *slog.Logger

	mu      sync.Mutex
	current *domain.Session
	subs    map[int]func(*domain.Session)
	nextSub int
}

// NewManager creates a session manager. file may be nil to disable
// persistence across launches (used by tests).
func NewManager(provider *Provider, file *SessionFile, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		provider: provider,
		file:     file,
		logger:   logger,
		subs:     make(map[int]func(*domain.Session)),
	}
}

// Current returns the live session, or nil when anonymous.
func (m *Manager) Current() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe registers fn to be called on every session transition with the
// new session (nil on sign-out). The returned func removes the subscription
// and is safe to call more than once.
func (m *Manager) Subscribe(fn func(*domain.Session)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Restore loads a previously saved session and validates it against the
// provider. Every failure degrades to "no session": a stale or invalid
// saved session is logged and discarded, never surfaced.
func (m *Manager) Restore(ctx context.Context) {
	if m.file == nil {
		return
	}
	saved, err := m.file.Load()
	if err != nil || saved == nil {
		if err != nil {
			m.logger.Warn("session restore: unreadable session file", "error", err)
			m.file.Clear() //nolint:errcheck // best-effort cleanup
		}
		return
	}

	userID, email, err := m.provider.User(ctx, saved.AccessToken)
	if err != nil {
		m.logger.Warn("session restore: token rejected", "error", err)
		m.file.Clear() //nolint:errcheck // best-effort cleanup
		return
	}
	saved.UserID = userID
	saved.Email = email

	m.setSession(saved)
}

// SignUp registers a new user. The session stays unchanged: the provider
// may require email confirmation before the account can sign in.
func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	return m.provider.SignUp(ctx, email, password)
}

// SignIn authenticates and, on success, activates and persists the new
// session, notifying subscribers. On failure the session is unchanged.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	sess, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if m.file != nil {
		if err := m.file.Save(sess); err != nil {
			m.logger.Warn("sign in: could not persist session", "error", err)
		}
	}
	m.setSession(sess)
	return nil
}

// SignOut revokes the session on the provider and clears it locally.
// The local session and its saved copy are discarded even when the
// provider call fails; subscribers are notified with nil exactly once.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	sess := m.current
	m.mu.Unlock()
	if sess == nil {
		return nil
	}

	err := m.provider.SignOut(ctx, sess.AccessToken)
	if m.file != nil {
		m.file.Clear() //nolint:errcheck // best-effort cleanup
	}
	m.setSession(nil)
	return err
}

// setSession swaps the current session and notifies subscribers outside
// the lock, so a subscriber may call back into the manager.
func (m *Manager) setSession(sess *domain.Session) {
	m.mu.Lock()
	m.current = sess
	fns := make([]func(*domain.Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
