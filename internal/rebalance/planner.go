package rebalance

import (
	"log"
	"math"
	"os"
	"sort"
	"time"

	"pollen-optimizer/internal/domain"
	"pollen-optimizer/internal/observability"
	"pollen-optimizer/internal/strategy"
)

// Default plan parameters.
const (
	// DefaultMinTradeSize is the noise floor: weight diffs below 0.1%
	// are ignored.
	DefaultMinTradeSize = 0.001

	// DefaultBaseFeeRate is the per-trade fee applied to weight volume.
	DefaultBaseFeeRate = 0.001

	// DefaultBaseSlippageRate is the base slippage rate before size
	// scaling.
	DefaultBaseSlippageRate = 0.001

	// slippageSizePivot is the weight fraction above which a trade is
	// considered large; slippage scales up to double the base rate.
	slippageSizePivot = 0.1
)

// FeeModel holds the heuristic cost parameters. These are estimates,
// not live quotes.
type FeeModel struct {
	BaseFeeRate      float64
	BaseSlippageRate float64
}

// DefaultFeeModel returns the 0.1% fee and slippage rates.
func DefaultFeeModel() FeeModel {
	return FeeModel{
		BaseFeeRate:      DefaultBaseFeeRate,
		BaseSlippageRate: DefaultBaseSlippageRate,
	}
}

// PlanConstraints optionally tighten plan construction.
type PlanConstraints struct {
	MinTradeSize    float64 // overrides the default noise floor when > 0
	MaxPositionSize float64 // caps target weights when > 0
}

// Planner builds rebalance plans.
type Planner struct {
	fees   FeeModel
	logger *log.Logger
}

// NewPlanner creates a planner. A nil logger falls back to a stderr
// logger with the component prefix.
func NewPlanner(fees FeeModel, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.New(os.Stderr, "[rebalance] ", log.LstdFlags)
	}
	return &Planner{fees: fees, logger: logger}
}

// GeneratePlan compares current and target weights and emits the trade
// list with cost, slippage, turnover and improvement estimates. Trades
// are sorted by descending |diff| so the most consequential actions are
// executed first; equal diffs tie-break on symbol for determinism.
func (p *Planner) GeneratePlan(current *domain.Portfolio, target *domain.Allocation, constraints *PlanConstraints) *domain.RebalancePlan {
	minTrade := DefaultMinTradeSize
	targetWeights := target.Weights
	constraintsApplied := false

	if constraints != nil {
		if constraints.MinTradeSize > 0 {
			minTrade = constraints.MinTradeSize
		}
		if constraints.MaxPositionSize > 0 {
			bounds := strategy.Constraints{MinWeight: 0, MaxWeight: constraints.MaxPositionSize}
			targetWeights, constraintsApplied = bounds.Apply(targetWeights)
		}
	}

	plan := &domain.RebalancePlan{
		Turnover:           current.Weights.Turnover(targetWeights),
		ConstraintsApplied: constraintsApplied,
		GeneratedAt:        time.Now().UTC(),
	}

	for _, symbol := range unionSymbols(current.Weights, targetWeights) {
		diff := targetWeights[symbol] - current.Weights[symbol]
		if math.Abs(diff) < minTrade {
			continue
		}

		trade := domain.Trade{Symbol: symbol, Amount: math.Abs(diff)}
		if diff > 0 {
			trade.Action = domain.ActionBuy
			plan.TotalBuy += trade.Amount
		} else {
			trade.Action = domain.ActionSell
			plan.TotalSell += trade.Amount
		}
		plan.Trades = append(plan.Trades, trade)

		plan.TransactionCost += trade.Amount * p.fees.BaseFeeRate
		plan.Slippage += trade.Amount * p.fees.BaseSlippageRate * (1 + math.Min(1, trade.Amount/slippageSizePivot))
	}
	plan.NetFlow = plan.TotalBuy - plan.TotalSell

	sort.Slice(plan.Trades, func(i, j int) bool {
		if plan.Trades[i].Amount != plan.Trades[j].Amount {
			return plan.Trades[i].Amount > plan.Trades[j].Amount
		}
		return plan.Trades[i].Symbol < plan.Trades[j].Symbol
	})

	plan.Metrics = improvement(current.Metrics, target.Metrics)

	p.logger.Printf("plan: %d trades, turnover %.4f, cost %.6f, slippage %.6f",
		len(plan.Trades), plan.Turnover, plan.TransactionCost, plan.Slippage)
	observability.RecordPlanGenerated(len(plan.Trades), plan.Turnover)
	return plan
}

// improvement computes the expected deltas between current and target
// metrics. Missing metrics on either side yield a zero-valued result.
func improvement(current, target *domain.PortfolioMetrics) *domain.ImprovementMetrics {
	m := &domain.ImprovementMetrics{}
	if current == nil || target == nil {
		return m
	}
	m.ReturnImprovement = target.ExpectedReturn - current.ExpectedReturn
	m.RiskReduction = current.Volatility - target.Volatility
	m.SharpeImprovement = target.SharpeRatio - current.SharpeRatio
	m.IsImprovement = m.SharpeImprovement > 0
	return m
}

// unionSymbols returns the sorted union of symbols in both vectors.
func unionSymbols(a, b domain.Weights) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for s := range a {
		set[s] = struct{}{}
	}
	for s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
