package repository

import (
	"context"
	"sync"

	"github.com/LuSo58/billboards-evaluation/internal/domain/model"
)

// MemoryResultStore implements ResultStore in process memory.
type MemoryResultStore struct {
	mu         sync.RWMutex
	byID       map[string]model.MatchResult
	order      []string
	maxResults int
}

// NewMemoryResultStore creates an empty result store.
func NewMemoryResultStore(opts ...ResultOption) *MemoryResultStore {
	s := &MemoryResultStore{byID: make(map[string]model.MatchResult)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryResultStore) Save(_ context.Context, result model.MatchResult) error { //nolint:gocritic // stored by value
	result.Scores = result.Scores.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[result.MatchID]; !exists {
		s.order = append(s.order, result.MatchID)
	}
	s.byID[result.MatchID] = result
	s.evict()
	return nil
}

// evict drops the oldest results beyond maxResults. Must be called with s.mu held.
func (s *MemoryResultStore) evict() {
	if s.maxResults <= 0 {
		return
	}
	for len(s.byID) > s.maxResults && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}
}

func (s *MemoryResultStore) Get(_ context.Context, matchID string) (model.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.byID[matchID]
	if !ok {
		return model.MatchResult{}, ErrNotFound
	}
	result.Scores = result.Scores.Clone()
	return result, nil
}

func (s *MemoryResultStore) Delete(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[matchID]; !ok {
		return nil
	}
	delete(s.byID, matchID)
	for i, id := range s.order {
		if id == matchID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored results.
func (s *MemoryResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryResultStore) Close() error { return nil }
