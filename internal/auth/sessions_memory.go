package auth

import (
	"context"
	"sync"
	"time"
)

// MemorySessions backs the gate when redis is not configured. Expired
// entries are dropped lazily on read.
type MemorySessions struct {
	mu sync.RWMutex
	m  map[string]memorySession
}

type memorySession struct {
	userID  string
	expires time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{m: make(map[string]memorySession)}
}

func (s *MemorySessions) Put(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[token] = memorySession{userID: userID, expires: time.Now().Add(ttl)}
	return nil
}

func (s *MemorySessions) Get(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	sess, ok := s.m[token]
	s.mu.RUnlock()
	if !ok {
		return "", nil
	}
	if time.Now().After(sess.expires) {
		s.mu.Lock()
		delete(s.m, token)
		s.mu.Unlock()
		return "", nil
	}
	return sess.userID, nil
}

func (s *MemorySessions) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, token)
	return nil
}
