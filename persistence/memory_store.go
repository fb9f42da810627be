package persistence

import (
	"context"
	"sync"

	"github.com/kulbirminhas-aiinitiative/maestro-platform-sub023/types"
)

// MemoryStore keeps everything in process memory. Intended for tests
// and single-run tooling; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	closed      bool
	results     map[string]types.ExecutionResult
	checkpoints map[string]types.Level2Result
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results:     make(map[string]types.ExecutionResult),
		checkpoints: make(map[string]types.Level2Result),
	}
}

// SaveResult implements Store.
func (s *MemoryStore) SaveResult(_ context.Context, result *types.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.results[result.ExecutionID] = *result
	return nil
}

// LoadResult implements Store.
func (s *MemoryStore) LoadResult(_ context.Context, executionID string) (*types.ExecutionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	result, ok := s.results[executionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &result, nil
}

// SaveCheckpoint implements Store.
func (s *MemoryStore) SaveCheckpoint(_ context.Context, result *types.Level2Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.checkpoints[result.TaskName] = *result
	return nil
}

// LoadCheckpoint implements Store.
func (s *MemoryStore) LoadCheckpoint(_ context.Context, taskName string) (*types.Level2Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	result, ok := s.checkpoints[taskName]
	if !ok {
		return nil, ErrNotFound
	}
	return &result, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.closed = true
	s.results = nil
	s.checkpoints = nil
	return nil
}
