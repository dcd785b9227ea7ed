package memory

import (
	"context"
	"sync"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// SnapshotStore is an in-memory implementation of
// storage.SnapshotStore. Writes overwrite, last write wins.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.MarketSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]*domain.MarketSnapshot)}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Put stores or replaces the snapshot for its symbol.
func (s *SnapshotStore) Put(_ context.Context, snapshot *domain.MarketSnapshot) error {
	if snapshot == nil || snapshot.Symbol == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snapshot
	s.snapshots[snapshot.Symbol] = &snapCopy
	return nil
}

// Get retrieves the snapshot for a symbol.
func (s *SnapshotStore) Get(_ context.Context, symbol string) (*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[symbol]
	if !ok {
		return nil, storage.ErrNotFound
	}
	snapCopy := *snap
	return &snapCopy, nil
}
