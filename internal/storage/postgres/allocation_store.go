package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// AllocationStore implements storage.AllocationStore using PostgreSQL.
type AllocationStore struct {
	pool *Pool
}

// NewAllocationStore creates a new AllocationStore.
func NewAllocationStore(pool *Pool) *AllocationStore {
	return &AllocationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AllocationStore = (*AllocationStore)(nil)

// Insert appends a new optimization result.
func (s *AllocationStore) Insert(ctx context.Context, result *domain.OptimizationResult) error {
	if result == nil || len(result.Assets) == 0 {
		return storage.ErrInvalidInput
	}

	assets, err := json.Marshal(result.Assets)
	if err != nil {
		return fmt.Errorf("marshal assets: %w", err)
	}
	currentWeights, err := json.Marshal(result.CurrentWeights)
	if err != nil {
		return fmt.Errorf("marshal current weights: %w", err)
	}
	targetWeights, err := json.Marshal(result.TargetWeights)
	if err != nil {
		return fmt.Errorf("marshal target weights: %w", err)
	}
	metrics, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query := `
		INSERT INTO allocations (
			strategy, assets, current_weights, target_weights,
			metrics, degraded, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		result.Strategy.String(), assets, currentWeights, targetWeights,
		metrics, result.Degraded, result.LastUpdated,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

// GetLatest retrieves the most recent result for a strategy.
func (s *AllocationStore) GetLatest(ctx context.Context, strategy domain.StrategyType) (*domain.OptimizationResult, error) {
	query := `
		SELECT strategy, assets, current_weights, target_weights,
		       metrics, degraded, last_updated
		FROM allocations
		WHERE strategy = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var (
		strategyName   string
		assets         []byte
		currentWeights []byte
		targetWeights  []byte
		metrics        []byte
		degraded       bool
		lastUpdated    time.Time
	)
	err := s.pool.QueryRow(ctx, query, strategy.String()).Scan(
		&strategyName, &assets, &currentWeights, &targetWeights,
		&metrics, &degraded, &lastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest allocation: %w", err)
	}

	result := &domain.OptimizationResult{
		Strategy:    strategy,
		Degraded:    degraded,
		LastUpdated: lastUpdated,
	}
	if err := json.Unmarshal(assets, &result.Assets); err != nil {
		return nil, fmt.Errorf("unmarshal assets: %w", err)
	}
	if err := json.Unmarshal(currentWeights, &result.CurrentWeights); err != nil {
		return nil, fmt.Errorf("unmarshal current weights: %w", err)
	}
	if err := json.Unmarshal(targetWeights, &result.TargetWeights); err != nil {
		return nil, fmt.Errorf("unmarshal target weights: %w", err)
	}
	if len(metrics) > 0 && string(metrics) != "null" {
		result.Metrics = &domain.PortfolioMetrics{}
		if err := json.Unmarshal(metrics, result.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	return result, nil
}
