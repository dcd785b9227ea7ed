package clickhouse

import (
	"context"
	"fmt"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using
// ClickHouse as the full OHLCV archive. Unlike the bounded in-memory
// store there is no retention eviction here; the archive keeps
// everything and callers bound their own lookback via GetByTimeRange.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// Append adds points. MergeTree does not enforce uniqueness at insert
// time, so duplicates are detected with explicit checks before the
// batch is sent.
func (s *PriceHistoryStore) Append(ctx context.Context, points []*domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	// Intra-batch duplicates.
	type key struct {
		symbol string
		time   int64
	}
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.Symbol, p.Time}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Duplicates against existing rows.
	for _, p := range points {
		exists, err := s.exists(ctx, p.Symbol, p.Time)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (symbol, time, open, high, low, close, volume)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, p := range points {
		if err := batch.Append(p.Symbol, p.Time, p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all points for a symbol, ordered by time ASC.
func (s *PriceHistoryStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.PricePoint, error) {
	query := `
		SELECT symbol, time, open, high, low, close, volume
		FROM price_history
		WHERE symbol = ?
		ORDER BY time ASC
	`
	return s.queryPoints(ctx, query, symbol)
}

// GetByTimeRange retrieves points within [start, end] inclusive.
func (s *PriceHistoryStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PricePoint, error) {
	query := `
		SELECT symbol, time, open, high, low, close, volume
		FROM price_history
		WHERE symbol = ? AND time >= ? AND time <= ?
		ORDER BY time ASC
	`
	return s.queryPoints(ctx, query, symbol, start, end)
}

// queryPoints runs a point-returning query and scans the rows.
func (s *PriceHistoryStore) queryPoints(ctx context.Context, query string, args ...any) ([]*domain.PricePoint, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var points []*domain.PricePoint
	for rows.Next() {
		p := &domain.PricePoint{}
		if err := rows.Scan(&p.Symbol, &p.Time, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history: %w", err)
	}
	return points, nil
}

// exists checks whether a (symbol, time) row is already stored.
func (s *PriceHistoryStore) exists(ctx context.Context, symbol string, time int64) (bool, error) {
	query := `SELECT count() FROM price_history WHERE symbol = ? AND time = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, symbol, time).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
