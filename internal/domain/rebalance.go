package domain

import "time"

// TradeAction is the direction of a rebalancing trade.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// Trade is one rebalancing step. Amount is the absolute weight delta,
// not a notional quantity; sizing against capital is the executor's
// concern.
type Trade struct {
	Symbol string
	Action TradeAction
	Amount float64 // |target weight - current weight|
}

// ImprovementMetrics compares the target allocation against the
// current portfolio.
type ImprovementMetrics struct {
	ReturnImprovement float64 // target expected return - current
	RiskReduction     float64 // current volatility - target
	SharpeImprovement float64 // target Sharpe - current
	IsImprovement     bool    // SharpeImprovement > 0
}

// RebalancePlan is an executable trade list with heuristic cost
// estimates. Plans are computed fresh per request and never mutated.
type RebalancePlan struct {
	Trades             []Trade
	TotalBuy           float64
	TotalSell          float64
	NetFlow            float64 // TotalBuy - TotalSell, ~0 for weight-only rebalancing
	Turnover           float64
	TransactionCost    float64
	Slippage           float64
	Metrics            *ImprovementMetrics
	ConstraintsApplied bool
	GeneratedAt        time.Time
}

// RebalanceCheck is the outcome of a needs-rebalance query.
type RebalanceCheck struct {
	NeedsRebalance    bool
	MaxDeviation      float64
	SharpeImprovement float64
	CorrelationStable bool // placeholder check, always true for now
	Reasons           []string
}
