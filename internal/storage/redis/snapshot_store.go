// Package redis provides a Redis-backed snapshot store so multiple
// optimizer instances can share one market snapshot cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// DefaultRetention bounds how long an unrefreshed snapshot is kept in
// Redis. Staleness for reads is decided by the market data cache via
// LastUpdated comparison; this expiry is housekeeping only.
const DefaultRetention = 24 * time.Hour

// SnapshotStore implements storage.SnapshotStore on Redis. Writes are
// plain overwrites: concurrent refreshes of the same symbol converge to
// the same upstream truth, so last write wins.
type SnapshotStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewSnapshotStore creates a store on an existing client. A
// non-positive retention selects the default.
func NewSnapshotStore(client *redis.Client, retention time.Duration) *SnapshotStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &SnapshotStore{client: client, retention: retention}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// snapshotKey builds the cache key for a symbol.
func snapshotKey(symbol string) string {
	return "snapshot:" + symbol
}

// Put stores or replaces the snapshot for its symbol.
func (s *SnapshotStore) Put(ctx context.Context, snapshot *domain.MarketSnapshot) error {
	if snapshot == nil || snapshot.Symbol == "" {
		return storage.ErrInvalidInput
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(snapshot.Symbol), data, s.retention).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// Get retrieves the snapshot for a symbol.
func (s *SnapshotStore) Get(ctx context.Context, symbol string) (*domain.MarketSnapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	snapshot := &domain.MarketSnapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}
