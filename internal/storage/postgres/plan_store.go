package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/storage"
)

// RebalancePlanStore implements storage.RebalancePlanStore using
// PostgreSQL.
type RebalancePlanStore struct {
	pool *Pool
}

// NewRebalancePlanStore creates a new RebalancePlanStore.
func NewRebalancePlanStore(pool *Pool) *RebalancePlanStore {
	return &RebalancePlanStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RebalancePlanStore = (*RebalancePlanStore)(nil)

// Insert appends a new plan.
func (s *RebalancePlanStore) Insert(ctx context.Context, plan *domain.RebalancePlan) error {
	if plan == nil {
		return storage.ErrInvalidInput
	}

	trades, err := json.Marshal(plan.Trades)
	if err != nil {
		return fmt.Errorf("marshal trades: %w", err)
	}
	metrics, err := json.Marshal(plan.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query := `
		INSERT INTO rebalance_plans (
			trades, total_buy, total_sell, net_flow, turnover,
			transaction_cost, slippage, metrics, constraints_applied, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.pool.Exec(ctx, query,
		trades, plan.TotalBuy, plan.TotalSell, plan.NetFlow, plan.Turnover,
		plan.TransactionCost, plan.Slippage, metrics, plan.ConstraintsApplied, plan.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rebalance plan: %w", err)
	}
	return nil
}

// List retrieves the most recent plans, newest first.
func (s *RebalancePlanStore) List(ctx context.Context, limit int) ([]*domain.RebalancePlan, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT trades, total_buy, total_sell, net_flow, turnover,
		       transaction_cost, slippage, metrics, constraints_applied, generated_at
		FROM rebalance_plans
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query rebalance plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.RebalancePlan
	for rows.Next() {
		var (
			trades      []byte
			metrics     []byte
			generatedAt time.Time
		)
		plan := &domain.RebalancePlan{}
		err := rows.Scan(
			&trades, &plan.TotalBuy, &plan.TotalSell, &plan.NetFlow, &plan.Turnover,
			&plan.TransactionCost, &plan.Slippage, &metrics, &plan.ConstraintsApplied, &generatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rebalance plan: %w", err)
		}
		plan.GeneratedAt = generatedAt
		if err := json.Unmarshal(trades, &plan.Trades); err != nil {
			return nil, fmt.Errorf("unmarshal trades: %w", err)
		}
		if len(metrics) > 0 && string(metrics) != "null" {
			plan.Metrics = &domain.ImprovementMetrics{}
			if err := json.Unmarshal(metrics, plan.Metrics); err != nil {
				return nil, fmt.Errorf("unmarshal metrics: %w", err)
			}
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rebalance plans: %w", err)
	}
	return plans, nil
}
