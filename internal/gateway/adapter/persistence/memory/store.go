package memory

import (
	"context"
	"sync"
	"time"

	"fitness-gateway/internal/gateway/domain/model"
	"fitness-gateway/internal/gateway/domain/repository"
)

// Store is an in-process SessionStore for development and tests. Expired
// sessions are dropped lazily on read.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewStore creates an empty in-memory session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]model.Session),
	}
}

// Save stores a copy of the session.
func (s *Store) Save(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

// Get returns the session for the ID, or ErrSessionNotFound when absent or
// past expiry.
func (s *Store) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return nil, repository.ErrSessionNotFound
	}

	copied := session
	return &copied, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of live entries (tests).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ repository.SessionStore = (*Store)(nil)
