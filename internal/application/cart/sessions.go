package cart

import "sync"

// ManagerFactory builds a manager for a session on first use
type ManagerFactory func(sessionID string) *Manager

// Sessions is the registry of live cart managers, one per session.
// Managers are created lazily and kept for the process lifetime; the
// durable state lives in the session store, so losing the registry on
// restart only costs the in-memory cart snapshot.
type Sessions struct {
	mu       sync.RWMutex
	managers map[string]*Manager
	factory  ManagerFactory
}

// NewSessions creates a session registry
func NewSessions(factory ManagerFactory) *Sessions {
	return &Sessions{
		managers: make(map[string]*Manager),
		factory:  factory,
	}
}

// Get returns the manager for the session, creating it if needed
func (s *Sessions) Get(sessionID string) *Manager {
	s.mu.RLock()
	m, ok := s.managers[sessionID]
	s.mu.RUnlock()
	if ok {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.managers[sessionID]; ok {
		return m
	}
	m = s.factory(sessionID)
	s.managers[sessionID] = m
	return m
}

// Remove drops the manager for a session
func (s *Sessions) Remove(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.managers, sessionID)
}

// Len returns the number of live managers
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.managers)
}
