package memory

import (
	"context"
	"sync"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// RebalancePlanStore is an in-memory implementation of
// storage.RebalancePlanStore.
type RebalancePlanStore struct {
	mu    sync.RWMutex
	plans []*domain.RebalancePlan
}

// NewRebalancePlanStore creates a new in-memory plan store.
func NewRebalancePlanStore() *RebalancePlanStore {
	return &RebalancePlanStore{}
}

// Compile-time interface check.
var _ storage.RebalancePlanStore = (*RebalancePlanStore)(nil)

// Insert appends a new plan.
func (s *RebalancePlanStore) Insert(_ context.Context, plan *domain.RebalancePlan) error {
	if plan == nil {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	planCopy := *plan
	planCopy.Trades = append([]domain.Trade(nil), plan.Trades...)
	s.plans = append(s.plans, &planCopy)
	return nil
}

// List retrieves the most recent plans, newest first.
func (s *RebalancePlanStore) List(_ context.Context, limit int) ([]*domain.RebalancePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.plans) {
		limit = len(s.plans)
	}
	result := make([]*domain.RebalancePlan, 0, limit)
	for i := len(s.plans) - 1; i >= 0 && len(result) < limit; i-- {
		planCopy := *s.plans[i]
		result = append(result, &planCopy)
	}
	return result, nil
}
