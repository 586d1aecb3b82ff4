package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]domain.Session
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]map[string]domain.Session)}
}

// Save stores a copy of the session.
func (s *SessionStore) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.sessions[session.Owner]
	if !ok {
		owned = make(map[string]domain.Session)
		s.sessions[session.Owner] = owned
	}
	owned[session.ID] = copySession(*session)
	return nil
}

// Load returns a copy of the stored session.
func (s *SessionStore) Load(_ context.Context, owner, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[owner][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := copySession(session)
	return &c, nil
}

// List returns the owner's sessions, most recently updated first.
func (s *SessionStore) List(_ context.Context, owner string) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SessionSummary, 0, len(s.sessions[owner]))
	for _, session := range s.sessions[owner] {
		out = append(out, domain.SessionSummary{
			ID:        session.ID,
			Title:     session.DisplayTitle(),
			UpdatedAt: session.UpdatedAt,
			Messages:  len(session.Messages),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions[owner], id)
	return nil
}

func copySession(s domain.Session) domain.Session {
	s.Messages = append([]domain.Message(nil), s.Messages...)
	s.ApprovedFiles = append([]domain.ApprovedFile(nil), s.ApprovedFiles...)
	return s
}
