package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xtding233/techdraw/internal/catalog"
	"github.com/xtding233/techdraw/internal/config"
	"github.com/xtding233/techdraw/internal/projector"
)

var ErrUnknownSession = errors.New("session: unknown session")

// Manager owns every open session over one catalog and config.
type Manager struct {
	catalog *catalog.Catalog
	params  config.Params
	tables  *projector.Tables
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cat *catalog.Catalog, p config.Params, tables *projector.Tables, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		catalog:  cat,
		params:   p,
		tables:   tables,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open creates a new session.
func (m *Manager) Open() *Session {
	s := New(m.catalog, m.params, m.tables, m.logger)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("session opened", zap.String("session", s.ID))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return s, nil
}

// Each calls fn for every open session.
func (m *Manager) Each(fn func(*Session)) {
	m.mu.RLock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.RUnlock()
	for _, s := range list {
		fn(s)
	}
}

// CloseSession closes and forgets one session.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	s.Close()
	return nil
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	list := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range list {
		s.Close()
	}
}
