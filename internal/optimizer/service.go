// Package optimizer provides the end-to-end optimization pipeline.
// It coordinates: market data → strategy → constraints → metrics →
// rebalance decision → plan.
package optimizer

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/marketdata"
	"pollen-optimizer/internal/metrics"
	"pollen-optimizer/internal/observability"
	"pollen-optimizer/internal/rebalance"
	"pollen-optimizer/internal/reporting"
	"pollen-optimizer/internal/stats"
	"pollen-optimizer/internal/storage"
	"pollen-optimizer/internal/strategy"
)

// Service coordinates one optimization cycle over a fixed universe.
type Service struct {
	provider  marketdata.Provider
	snapshots *marketdata.SnapshotCache
	stats     *stats.Engine
	calc      *metrics.Calculator
	planner   *rebalance.Planner

	constraints strategy.Constraints
	thresholds  rebalance.Thresholds
	minTrade    float64
	lookback    int

	allocationStore storage.AllocationStore
	planStore       storage.RebalancePlanStore

	logger *log.Logger
	now    func() time.Time
}

// Options for creating a Service.
type Options struct {
	// Required data sources
	Provider      marketdata.Provider
	SnapshotCache *marketdata.SnapshotCache

	// Computation components; nil selects package defaults.
	Stats      *stats.Engine
	Calculator *metrics.Calculator
	Planner    *rebalance.Planner

	// Tunables; zero values select package defaults.
	Constraints  strategy.Constraints
	Thresholds   rebalance.Thresholds
	MinTradeSize float64
	LookbackDays int

	// Optional persistence
	AllocationStore storage.AllocationStore
	PlanStore       storage.RebalancePlanStore

	Logger *log.Logger
}

// New creates a Service from options.
func New(opts Options) *Service {
	engine := opts.Stats
	if engine == nil {
		engine = stats.NewEngine(nil)
	}
	calc := opts.Calculator
	if calc == nil {
		calc = metrics.NewCalculator(engine, 0)
	}
	planner := opts.Planner
	if planner == nil {
		planner = rebalance.NewPlanner(rebalance.DefaultFeeModel(), opts.Logger)
	}
	constraints := opts.Constraints
	if constraints.MaxWeight == 0 {
		constraints = strategy.DefaultConstraints()
	}
	thresholds := opts.Thresholds
	if thresholds.MaxDeviation == 0 {
		thresholds = rebalance.DefaultThresholds()
	}
	minTrade := opts.MinTradeSize
	if minTrade == 0 {
		minTrade = rebalance.DefaultMinTradeSize
	}
	lookback := opts.LookbackDays
	if lookback == 0 {
		lookback = stats.DefaultCorrelationLookback
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[optimizer] ", log.LstdFlags)
	}

	return &Service{
		provider:        opts.Provider,
		snapshots:       opts.SnapshotCache,
		stats:           engine,
		calc:            calc,
		planner:         planner,
		constraints:     constraints,
		thresholds:      thresholds,
		minTrade:        minTrade,
		lookback:        lookback,
		allocationStore: opts.AllocationStore,
		planStore:       opts.PlanStore,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// OptimizePortfolio computes constrained target weights for the
// universe under the given strategy, persists the result if an
// allocation store is configured, and returns it.
func (s *Service) OptimizePortfolio(
	ctx context.Context,
	assets []string,
	currentWeights domain.Weights,
	strategyType domain.StrategyType,
) (*domain.OptimizationResult, error) {
	start := s.now()

	result, err := s.optimize(ctx, assets, currentWeights, strategyType)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordOptimization(strategyType.String(), status, s.now().Sub(start).Seconds())
	if err != nil {
		return nil, err
	}

	observability.DefaultMetrics.LastSuccessfulOptimization.Set(float64(s.now().Unix()))
	if s.allocationStore != nil {
		if err := s.allocationStore.Insert(ctx, result); err != nil {
			// Persistence is best effort; the result is still usable.
			s.logger.Printf("WARN: persist allocation: %v", err)
		}
	}
	return result, nil
}

func (s *Service) optimize(
	ctx context.Context,
	assets []string,
	currentWeights domain.Weights,
	strategyType domain.StrategyType,
) (*domain.OptimizationResult, error) {
	if len(assets) == 0 {
		return nil, strategy.ErrEmptyUniverse
	}

	series, err := s.loadSeries(ctx, assets)
	if err != nil {
		return nil, err
	}
	snapshots := s.loadSnapshots(ctx, assets)

	alloc, err := strategy.FromType(strategyType)
	if err != nil {
		return nil, err
	}

	raw, err := alloc.Allocate(&strategy.Input{
		Assets:    assets,
		Snapshots: snapshots,
		Series:    series,
		Stats:     s.stats,
	})
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", strategyType, err)
	}

	weights, constrained := s.constraints.Apply(raw.Weights)
	if constrained {
		s.logger.Printf("position bounds adjusted %s weights", strategyType)
	}

	return &domain.OptimizationResult{
		Assets:         assets,
		Strategy:       strategyType,
		CurrentWeights: currentWeights.Clone(),
		TargetWeights:  weights,
		Metrics:        s.calc.Compute(assets, weights, snapshots, series),
		Degraded:       raw.Degraded,
		LastUpdated:    s.now(),
	}, nil
}

// CheckRebalance evaluates whether the portfolio should move to the
// optimization result's target weights.
func (s *Service) CheckRebalance(result *domain.OptimizationResult) *domain.RebalanceCheck {
	portfolio := &domain.Portfolio{
		Assets:  result.Assets,
		Weights: result.CurrentWeights,
	}
	target := &domain.Allocation{
		Weights: result.TargetWeights,
		Metrics: result.Metrics,
	}
	return rebalance.NeedsRebalancing(portfolio, target, s.thresholds)
}

// PlanRebalance generates the trade plan from current to target
// weights and persists it if a plan store is configured.
func (s *Service) PlanRebalance(ctx context.Context, result *domain.OptimizationResult) *domain.RebalancePlan {
	portfolio := &domain.Portfolio{
		Assets:  result.Assets,
		Weights: result.CurrentWeights,
	}
	target := &domain.Allocation{
		Weights: result.TargetWeights,
		Metrics: result.Metrics,
	}
	plan := s.planner.GeneratePlan(portfolio, target, &rebalance.PlanConstraints{
		MinTradeSize: s.minTrade,
	})

	if s.planStore != nil {
		if err := s.planStore.Insert(ctx, plan); err != nil {
			s.logger.Printf("WARN: persist plan: %v", err)
		}
	}
	return plan
}

// Run executes a full cycle: optimize, decide, and plan when the
// decision says to rebalance. The report always carries the decision;
// the plan is present only when a rebalance is warranted.
func (s *Service) Run(
	ctx context.Context,
	assets []string,
	currentWeights domain.Weights,
	strategyType domain.StrategyType,
) (*reporting.Report, error) {
	result, err := s.OptimizePortfolio(ctx, assets, currentWeights, strategyType)
	if err != nil {
		return nil, err
	}

	check := s.CheckRebalance(result)
	report := &reporting.Report{
		GeneratedAt:    s.now(),
		Strategy:       strategyType.String(),
		Degraded:       result.Degraded,
		Assets:         result.Assets,
		CurrentWeights: result.CurrentWeights,
		TargetWeights:  result.TargetWeights,
		Metrics:        result.Metrics,
		Check:          check,
	}
	if check.NeedsRebalance {
		report.Plan = s.PlanRebalance(ctx, result)
	} else {
		s.logger.Printf("no rebalance needed (max deviation %.4f)", check.MaxDeviation)
	}
	return report, nil
}

// loadSeries fetches each asset's price series from the provider.
// Assets with no series at all are an error; statistics fall back on
// short series, not absent ones.
func (s *Service) loadSeries(ctx context.Context, assets []string) (map[string][]*domain.PricePoint, error) {
	series := make(map[string][]*domain.PricePoint, len(assets))
	for _, symbol := range assets {
		points, err := s.provider.PriceSeries(ctx, symbol, s.lookback)
		if err != nil {
			return nil, fmt.Errorf("load series for %s: %w", symbol, err)
		}
		series[symbol] = points
	}
	return series, nil
}

// loadSnapshots fetches snapshots through the cache when configured,
// falling back to the provider directly. Missing snapshots are left
// out; strategies handle the gaps.
func (s *Service) loadSnapshots(ctx context.Context, assets []string) map[string]*domain.MarketSnapshot {
	if s.snapshots != nil {
		return s.snapshots.GetAll(ctx, assets)
	}
	out := make(map[string]*domain.MarketSnapshot, len(assets))
	for _, symbol := range assets {
		snap, err := s.provider.Snapshot(ctx, symbol)
		if err != nil {
			s.logger.Printf("WARN: snapshot for %s: %v", symbol, err)
			continue
		}
		out[symbol] = snap
	}
	return out
}
