package media

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore is a simple in-process blob store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string]Blob)}
}

func (s *InMemoryStore) Put(_ context.Context, blob Blob) error {
	if blob.Key == "" {
		return fmt.Errorf("media: empty key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := blob
	stored.Data = append([]byte(nil), blob.Data...)
	s.blobs[blob.Key] = stored
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, key string) (Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return blob, nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
