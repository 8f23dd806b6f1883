package session

import (
	"context"
	"sync"

	"appointment-client/internal/model"
)

// MemoryStore lives only as long as the process.
type MemoryStore struct {
	mu   sync.Mutex
	vals map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{vals: make(map[string][]byte)}
}

func (s *MemoryStore) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.vals[KeyToken]), nil
}

func (s *MemoryStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[KeyToken] = []byte(token)
	return nil
}

func (s *MemoryStore) User(_ context.Context) (*model.User, error) {
	s.mu.Lock()
	b := s.vals[KeyUser]
	s.mu.Unlock()
	return decodeUser(b)
}

func (s *MemoryStore) SetUser(_ context.Context, u *model.User) error {
	b, err := encodeUser(u)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[KeyUser] = b
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vals, KeyToken)
	delete(s.vals, KeyUser)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
