// Package session holds per-client authentication state in memory, keyed by
// an opaque session ID carried in a cookie. State written during one request
// is visible to the same client's next request; clients are isolated by
// construction because IDs are unguessable ULIDs.
package session

import (
	"sync"
	"time"

	"github.com/passgate/passgate/internal/passgate/domain"
	"github.com/passgate/passgate/pkg/clockx"
	"github.com/passgate/passgate/pkg/idx"
)

// DefaultIdleTimeout is how long a session survives without being touched.
const DefaultIdleTimeout = 30 * time.Minute

// Session is one client's authentication state. All state transitions for a
// session must run under its lock so that two requests from the same client
// can never interleave a check-then-transition sequence.
type Session struct {
	ID string

	mu    sync.Mutex
	State domain.SessionState
}

// Lock serializes state transitions for this session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the transition lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Manager owns the session map. It is safe for concurrent use across
// requests; the per-session lock is a separate concern handled by callers
// around state transitions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	lastSeen map[string]time.Time
	idleTTL  time.Duration
	clock    clockx.Clock
}

// NewManager creates a session manager. A non-positive idleTTL falls back to
// DefaultIdleTimeout; a nil clock falls back to the system clock.
func NewManager(idleTTL time.Duration, clock clockx.Clock) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTimeout
	}
	if clock == nil {
		clock = clockx.New()
	}

	return &Manager{
		sessions: make(map[string]*Session),
		lastSeen: make(map[string]time.Time),
		idleTTL:  idleTTL,
		clock:    clock,
	}
}

// Create registers a new anonymous session and returns it.
func (m *Manager) Create() *Session {
	sess := &Session{
		ID:    idx.New().String(),
		State: domain.NewSessionState(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sess.ID] = sess
	m.lastSeen[sess.ID] = m.clock.Now()
	return sess
}

// Get resumes a session by ID and refreshes its idle deadline. A session
// past its idle lifetime counts as gone and is dropped on the spot.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}

	now := m.clock.Now()
	if now.Sub(m.lastSeen[id]) > m.idleTTL {
		delete(m.sessions, id)
		delete(m.lastSeen, id)
		return nil, false
	}

	m.lastSeen[id] = now
	return sess, true
}

// Delete removes a session. Deleting a missing ID is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	delete(m.lastSeen, id)
}

// PruneIdle drops every session idle for longer than the idle lifetime and
// returns how many were removed. Called by housekeeping.
func (m *Manager) PruneIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, seen := range m.lastSeen {
		if now.Sub(seen) > m.idleTTL {
			delete(m.sessions, id)
			delete(m.lastSeen, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
