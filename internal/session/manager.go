package session

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chemvis/dashboard/internal/dashboard"
)

// DefaultMaxSessions limits concurrent browser sessions to bound memory.
const DefaultMaxSessions = 100

// DefaultKeepAliveWindow protects recently used sessions from cleanup.
const DefaultKeepAliveWindow = 5 * time.Minute

// Factory builds the dashboard controller of a new session.
type Factory func(id string) *dashboard.Controller

// Options configure a Manager. Zero values fall back to the defaults.
type Options struct {
	MaxSessions     int
	KeepAliveWindow time.Duration
}

// Manager holds one dashboard controller per browser session.
type Manager struct {
	sessions  map[string]*State
	mu        sync.RWMutex
	factory   Factory
	max       int
	keepAlive time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// State is a browser session and its dashboard.
type State struct {
	ID           string
	Controller   *dashboard.Controller
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewManager creates a session manager that builds controllers with factory.
func NewManager(factory Factory, opts Options, logger *slog.Logger) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.KeepAliveWindow <= 0 {
		opts.KeepAliveWindow = DefaultKeepAliveWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:  make(map[string]*State),
		factory:   factory,
		max:       opts.MaxSessions,
		keepAlive: opts.KeepAliveWindow,
		logger:    logger,
		now:       time.Now,
	}
}

// Create opens a new session, evicting the least recently used ones when
// the manager is at capacity.
func (m *Manager) Create() *State {
	m.cleanupOldSessionsIfNeeded()

	id := uuid.New().String()
	now := m.now()
	state := &State{
		ID:           id,
		Controller:   m.factory(id),
		CreatedAt:    now,
		LastAccessed: now,
	}

	m.mu.Lock()
	m.sessions[id] = state
	m.mu.Unlock()

	m.logger.Debug("session created", "session", shortID(id))
	return state
}

// Get returns a session and marks it as used.
func (m *Manager) Get(id string) (*State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	state.LastAccessed = m.now()
	return state, true
}

// Delete closes and removes a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	state, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	state.Controller.Close()
	return true
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// cleanupOldSessionsIfNeeded makes room for one more session.
func (m *Manager) cleanupOldSessionsIfNeeded() {
	m.mu.Lock()
	if len(m.sessions) < m.max {
		m.mu.Unlock()
		return
	}

	states := make([]*State, 0, len(m.sessions))
	for _, state := range m.sessions {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].LastAccessed.Before(states[j].LastAccessed)
	})

	toFree := len(m.sessions) - m.max + 1
	evicted := states[:toFree]
	for _, state := range evicted {
		delete(m.sessions, state.ID)
	}
	m.mu.Unlock()

	for _, state := range evicted {
		state.Controller.Close()
		m.logger.Info("evicted session at capacity", "session", shortID(state.ID))
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but
// keeps any session used within the keep-alive window. It returns the
// number of sessions removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := m.now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-m.keepAlive)

	m.mu.Lock()
	var expired []*State
	for id, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			expired = append(expired, state)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, state := range expired {
		state.Controller.Close()
		m.logger.Info("cleaned up idle session",
			"session", shortID(state.ID),
			"idle", now.Sub(state.LastAccessed).Round(time.Second).String())
	}
	return len(expired)
}

// Close removes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*State)
	m.mu.Unlock()

	for _, state := range sessions {
		state.Controller.Close()
	}
}

// shortID truncates an ID for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
