package service

import (
	"sort"
	"sync"

	"github.com/rmoreas/warcycle/internal/config"
	"github.com/rmoreas/warcycle/internal/game"
	"github.com/rmoreas/warcycle/internal/storage"
)

// Manager tracks the sessions hosted by one server process.
type Manager struct {
	cfg  *config.Config
	repo storage.Repository

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty manager. repo may be nil to disable the audit
// trail.
func NewManager(cfg *config.Config, repo storage.Repository) *Manager {
	return &Manager{
		cfg:      cfg,
		repo:     repo,
		sessions: make(map[string]*Session),
	}
}

// Create builds and starts a new session.
func (m *Manager) Create(seed int64) (*Session, error) {
	s, err := NewSession("", m.cfg, m.repo, seed)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns the IDs of all hosted sessions, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Remove stops and forgets a session.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return game.NewValidationError("unknown session %q", id)
	}
	s.Stop()
	return nil
}

// StopAll shuts every session down, used at server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Stop()
		delete(m.sessions, id)
	}
}
