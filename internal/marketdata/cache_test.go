package marketdata

import (
	"context"
	"testing"
	"time"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/marketdata/stub"
	"pollen-optimizer/internal/storage/memory"
)

func TestSnapshotCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	provider := stub.NewProvider()
	provider.SetSnapshot(&domain.MarketSnapshot{
		Symbol: "BTC", Price: 50000, LastUpdated: now,
	})

	cache := NewSnapshotCache(provider, memory.NewSnapshotStore(), 5*time.Minute, nil)
	cache.now = func() time.Time { return now }

	// First call misses and refreshes upstream.
	snap, err := cache.Get(ctx, "BTC")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Price != 50000 {
		t.Errorf("expected price 50000, got %f", snap.Price)
	}
	if provider.SnapshotCalls != 1 {
		t.Errorf("expected 1 upstream call, got %d", provider.SnapshotCalls)
	}

	// Second call within the TTL is served from cache.
	if _, err := cache.Get(ctx, "BTC"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if provider.SnapshotCalls != 1 {
		t.Errorf("expected no second upstream call, got %d", provider.SnapshotCalls)
	}
}

func TestSnapshotCache_RefreshesStaleEntry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := start

	provider := stub.NewProvider()
	provider.SetSnapshot(&domain.MarketSnapshot{
		Symbol: "BTC", Price: 50000, LastUpdated: start,
	})

	cache := NewSnapshotCache(provider, memory.NewSnapshotStore(), 5*time.Minute, nil)
	cache.now = func() time.Time { return now }

	if _, err := cache.Get(ctx, "BTC"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Advance past the TTL; the upstream price moved.
	now = start.Add(6 * time.Minute)
	provider.SetSnapshot(&domain.MarketSnapshot{
		Symbol: "BTC", Price: 51000, LastUpdated: now,
	})

	snap, err := cache.Get(ctx, "BTC")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Price != 51000 {
		t.Errorf("expected refreshed price 51000, got %f", snap.Price)
	}
	if provider.SnapshotCalls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", provider.SnapshotCalls)
	}
}

func TestSnapshotCache_ServesStaleOnRefreshFailure(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	now := start

	provider := stub.NewProvider()
	provider.SetSnapshot(&domain.MarketSnapshot{
		Symbol: "BTC", Price: 50000, LastUpdated: start,
	})

	store := memory.NewSnapshotStore()
	cache := NewSnapshotCache(provider, store, 5*time.Minute, nil)
	cache.now = func() time.Time { return now }

	if _, err := cache.Get(ctx, "BTC"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Stale entry plus a now-failing upstream: the stale value wins
	// over an error.
	now = start.Add(10 * time.Minute)
	failing := stub.NewProvider()
	cache.provider = failing

	snap, err := cache.Get(ctx, "BTC")
	if err != nil {
		t.Fatalf("expected stale snapshot, got error: %v", err)
	}
	if snap.Price != 50000 {
		t.Errorf("expected stale price 50000, got %f", snap.Price)
	}
}

func TestSnapshotCache_ErrorWithoutCachedEntry(t *testing.T) {
	cache := NewSnapshotCache(stub.NewProvider(), memory.NewSnapshotStore(), time.Minute, nil)

	if _, err := cache.Get(context.Background(), "UNKNOWN"); err == nil {
		t.Fatal("expected error for unknown symbol with empty cache")
	}
}

func TestSnapshotCache_GetAllSkipsFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	provider := stub.NewProvider()
	provider.SetSnapshot(&domain.MarketSnapshot{Symbol: "BTC", Price: 50000, LastUpdated: now})
	provider.SetSnapshot(&domain.MarketSnapshot{Symbol: "ETH", Price: 3000, LastUpdated: now})

	cache := NewSnapshotCache(provider, memory.NewSnapshotStore(), 5*time.Minute, nil)
	cache.now = func() time.Time { return now }

	got := cache.GetAll(ctx, []string{"BTC", "ETH", "MISSING"})
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if _, ok := got["MISSING"]; ok {
		t.Error("failing symbol must be skipped, not present")
	}
}

func TestStoreProvider_TrailingLookback(t *testing.T) {
	ctx := context.Background()
	store := memory.NewPriceHistoryStore(0)

	points := make([]*domain.PricePoint, 0, 10)
	for i := 0; i < 10; i++ {
		points = append(points, &domain.PricePoint{
			Symbol: "BTC", Time: int64(i), Close: 100 + float64(i),
		})
	}
	if err := store.Append(ctx, points); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	provider := NewStoreProvider(store, memory.NewSnapshotStore())
	got, err := provider.PriceSeries(ctx, "BTC", 3)
	if err != nil {
		t.Fatalf("PriceSeries failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 trailing points, got %d", len(got))
	}
	if got[0].Time != 7 || got[2].Time != 9 {
		t.Errorf("expected trailing times [7..9], got [%d..%d]", got[0].Time, got[2].Time)
	}
}
