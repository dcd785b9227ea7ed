package memory

import (
	"context"
	"sync"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// AllocationStore is an in-memory implementation of
// storage.AllocationStore.
type AllocationStore struct {
	mu      sync.RWMutex
	results []*domain.OptimizationResult
}

// NewAllocationStore creates a new in-memory allocation store.
func NewAllocationStore() *AllocationStore {
	return &AllocationStore{}
}

// Compile-time interface check.
var _ storage.AllocationStore = (*AllocationStore)(nil)

// Insert appends a new result.
func (s *AllocationStore) Insert(_ context.Context, result *domain.OptimizationResult) error {
	if result == nil || len(result.Assets) == 0 {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	resultCopy := *result
	resultCopy.CurrentWeights = result.CurrentWeights.Clone()
	resultCopy.TargetWeights = result.TargetWeights.Clone()
	s.results = append(s.results, &resultCopy)
	return nil
}

// GetLatest retrieves the most recent result for a strategy.
func (s *AllocationStore) GetLatest(_ context.Context, strategy domain.StrategyType) (*domain.OptimizationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].Strategy == strategy {
			resultCopy := *s.results[i]
			return &resultCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}
