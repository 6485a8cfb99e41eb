package vault

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process vault for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]Session)}
}

func (s *InMemoryStore) Save(_ context.Context, session Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	// Most recent first.
	s.sessions[session.UserID] = append([]Session{session}, s.sessions[session.UserID]...)
	return session, nil
}

func (s *InMemoryStore) List(_ context.Context, userID string, filter Filter) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Session
	for _, session := range s.sessions[userID] {
		if filter.Type != "" && session.Type != filter.Type {
			continue
		}
		out = append(out, session)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := s.sessions[userID]
	for i, session := range arr {
		if session.ID == sessionID {
			s.sessions[userID] = append(arr[:i:i], arr[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) Close() error { return nil }
