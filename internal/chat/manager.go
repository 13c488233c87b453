package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager is the exclusive owner of live sessions. The transport layer calls
// Create when a connection is accepted and Remove after the session has
// disconnected and its registry cleanup has completed. No other component
// holds strong references to sessions.
type Manager struct {
	registry *Registry
	provider GeocodeProvider
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[SessionID]*Session
}

func NewManager(registry *Registry, provider GeocodeProvider, notifier Notifier,
	geocodeTimeout time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		registry: registry,
		provider: provider,
		notifier: notifier,
		timeout:  geocodeTimeout,
		log:      log,
		sessions: make(map[SessionID]*Session),
	}
}

// Create allocates a session with a fresh unique id and tracks it.
func (m *Manager) Create() *Session {
	id := SessionID(uuid.NewString())
	sess := newSession(id, m.registry, m.provider, m.notifier, m.timeout, m.log)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	return sess
}

// Get looks up a session by id.
func (m *Manager) Get(id SessionID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove drops a session from the manager. Callers must have driven the
// session to Disconnected first so its room membership is already cleaned up.
func (m *Manager) Remove(id SessionID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
