package memory

import (
	"context"
	"sync"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// DefaultRetention is the number of points retained per symbol when no
// explicit window is configured.
const DefaultRetention = 365

// PriceHistoryStore is an in-memory implementation of
// storage.PriceHistoryStore with a bounded per-symbol window: series
// are append-only and the oldest points are evicted once the retention
// is exceeded.
type PriceHistoryStore struct {
	mu        sync.RWMutex
	retention int
	series    map[string][]*domain.PricePoint
}

// NewPriceHistoryStore creates a store retaining up to retention points
// per symbol. A non-positive retention selects the default.
func NewPriceHistoryStore(retention int) *PriceHistoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &PriceHistoryStore{
		retention: retention,
		series:    make(map[string][]*domain.PricePoint),
	}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// Append adds points in ascending time order per symbol. A timestamp at
// or before the symbol's latest retained point returns ErrDuplicateKey.
func (s *PriceHistoryStore) Append(_ context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating anything.
	lastTimes := make(map[string]int64, len(points))
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		last, ok := lastTimes[p.Symbol]
		if !ok {
			if existing := s.series[p.Symbol]; len(existing) > 0 {
				last = existing[len(existing)-1].Time
				ok = true
			}
		}
		if ok && p.Time <= last {
			return storage.ErrDuplicateKey
		}
		lastTimes[p.Symbol] = p.Time
	}

	for _, p := range points {
		pointCopy := *p
		s.series[p.Symbol] = append(s.series[p.Symbol], &pointCopy)
		if over := len(s.series[p.Symbol]) - s.retention; over > 0 {
			s.series[p.Symbol] = s.series[p.Symbol][over:]
		}
	}
	return nil
}

// GetBySymbol retrieves the retained series for a symbol, time ASC.
func (s *PriceHistoryStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.series[symbol]
	result := make([]*domain.PricePoint, 0, len(points))
	for _, p := range points {
		pointCopy := *p
		result = append(result, &pointCopy)
	}
	return result, nil
}

// GetByTimeRange retrieves points within [start, end] inclusive.
func (s *PriceHistoryStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PricePoint
	for _, p := range s.series[symbol] {
		if p.Time >= start && p.Time <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}
	return result, nil
}
