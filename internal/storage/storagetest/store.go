// Package storagetest provides an in-memory cursor store for tests.
package storagetest

import (
	"context"
	"sync"

	"mediarelay/internal/domain"
)

// CursorStore holds state in memory and counts saves.
type CursorStore struct {
	mu    sync.Mutex
	state domain.State
	saves int
}

// NewCursorStore returns a store seeded with cursor, or empty when cursor is nil.
func NewCursorStore(cursor *uint64) *CursorStore {
	return &CursorStore{state: domain.State{LastCheckedMessageID: cursor}}
}

func (s *CursorStore) Load(ctx context.Context) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *CursorStore) Save(ctx context.Context, state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *CursorStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *CursorStore) Close() error { return nil }
