package store

import (
	"context"
	"sync"
)

var _ CredentialStore = &MemoryStore{}

// MemoryStore keeps the credential in process memory. It satisfies the
// CredentialStore contract for tests and for sessions that should not
// survive a restart.
type MemoryStore struct {
	mu  sync.RWMutex
	rec *Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Read(_ context.Context) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *MemoryStore) Write(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec == nil {
		s.rec = nil
		return nil
	}
	cp := *rec
	s.rec = &cp
	return nil
}

func (s *MemoryStore) Erase(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec = nil
	return nil
}
