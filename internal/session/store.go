package session

import "sync"

// MemoryStore keeps the token in memory only. It is used when persistence is
// disabled and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// LoadToken returns the held token.
func (s *MemoryStore) LoadToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// SaveToken replaces the held token.
func (s *MemoryStore) SaveToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// ClearToken forgets the held token.
func (s *MemoryStore) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
