package rebalance

import (
	"math"
	"testing"

	"pollen-optimizer/internal/domain"
)

func TestGeneratePlan_BalancedTrades(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{
		Weights: domain.Weights{"BTC": 0.60, "ETH": 0.25, "USDC": 0.15},
	}
	target := &domain.Allocation{
		Weights: domain.Weights{"BTC": 0.40, "ETH": 0.35, "USDC": 0.25},
	}

	plan := planner.GeneratePlan(current, target, nil)

	if len(plan.Trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(plan.Trades))
	}

	// Largest trade first: SELL BTC 0.20.
	first := plan.Trades[0]
	if first.Symbol != "BTC" || first.Action != domain.ActionSell {
		t.Errorf("expected SELL BTC first, got %s %s", first.Action, first.Symbol)
	}
	if math.Abs(first.Amount-0.20) > 1e-9 {
		t.Errorf("expected BTC amount 0.20, got %f", first.Amount)
	}

	if math.Abs(plan.TotalBuy-0.20) > 1e-9 {
		t.Errorf("expected total buy 0.20, got %f", plan.TotalBuy)
	}
	if math.Abs(plan.TotalSell-0.20) > 1e-9 {
		t.Errorf("expected total sell 0.20, got %f", plan.TotalSell)
	}
	if math.Abs(plan.NetFlow) > 1e-9 {
		t.Errorf("expected zero net flow, got %f", plan.NetFlow)
	}
	if math.Abs(plan.Turnover-0.20) > 1e-9 {
		t.Errorf("expected turnover 0.20, got %f", plan.Turnover)
	}
}

func TestGeneratePlan_SkipsDustTrades(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{
		Weights: domain.Weights{"BTC": 0.5000, "ETH": 0.5000},
	}
	target := &domain.Allocation{
		Weights: domain.Weights{"BTC": 0.5005, "ETH": 0.4995},
	}

	plan := planner.GeneratePlan(current, target, nil)
	if len(plan.Trades) != 0 {
		t.Errorf("expected no trades below the noise floor, got %v", plan.Trades)
	}
	if plan.TransactionCost != 0 || plan.Slippage != 0 {
		t.Errorf("expected zero costs, got %f / %f", plan.TransactionCost, plan.Slippage)
	}
}

func TestGeneratePlan_CostAndSlippage(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{Weights: domain.Weights{"BTC": 1, "ETH": 0}}
	target := &domain.Allocation{Weights: domain.Weights{"BTC": 0.8, "ETH": 0.2}}

	plan := planner.GeneratePlan(current, target, nil)

	// Two 0.2 trades at 0.1% fee each.
	wantCost := 2 * 0.2 * DefaultBaseFeeRate
	if math.Abs(plan.TransactionCost-wantCost) > 1e-12 {
		t.Errorf("expected cost %g, got %g", wantCost, plan.TransactionCost)
	}

	// 0.2 is above the size pivot, so slippage doubles the base rate.
	wantSlippage := 2 * 0.2 * DefaultBaseSlippageRate * 2
	if math.Abs(plan.Slippage-wantSlippage) > 1e-12 {
		t.Errorf("expected slippage %g, got %g", wantSlippage, plan.Slippage)
	}
}

func TestGeneratePlan_SlippageScalesWithSize(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{Weights: domain.Weights{"BTC": 1, "ETH": 0}}
	target := &domain.Allocation{Weights: domain.Weights{"BTC": 0.95, "ETH": 0.05}}

	plan := planner.GeneratePlan(current, target, nil)

	// 0.05 is half the pivot: multiplier 1.5.
	wantSlippage := 2 * 0.05 * DefaultBaseSlippageRate * 1.5
	if math.Abs(plan.Slippage-wantSlippage) > 1e-12 {
		t.Errorf("expected slippage %g, got %g", wantSlippage, plan.Slippage)
	}
}

func TestGeneratePlan_MaxPositionConstraint(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{Weights: domain.Weights{"BTC": 0.5, "ETH": 0.5}}
	target := &domain.Allocation{Weights: domain.Weights{"BTC": 0.7, "ETH": 0.3}}

	plan := planner.GeneratePlan(current, target, &PlanConstraints{MaxPositionSize: 0.6})
	if !plan.ConstraintsApplied {
		t.Fatal("expected constraints applied")
	}

	for _, trade := range plan.Trades {
		if trade.Symbol == "BTC" && trade.Action == domain.ActionBuy {
			// Capped at 0.6, so the buy is 0.1 not 0.2.
			if math.Abs(trade.Amount-0.1) > 1e-9 {
				t.Errorf("expected capped BTC buy of 0.1, got %f", trade.Amount)
			}
		}
	}
}

func TestGeneratePlan_CustomMinTradeSize(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{Weights: domain.Weights{"BTC": 0.50, "ETH": 0.50}}
	target := &domain.Allocation{Weights: domain.Weights{"BTC": 0.52, "ETH": 0.48}}

	plan := planner.GeneratePlan(current, target, &PlanConstraints{MinTradeSize: 0.05})
	if len(plan.Trades) != 0 {
		t.Errorf("expected 2%% trades suppressed by 5%% floor, got %v", plan.Trades)
	}
}

func TestGeneratePlan_ImprovementMetrics(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{
		Weights: domain.Weights{"BTC": 1},
		Metrics: &domain.PortfolioMetrics{ExpectedReturn: 0.10, Volatility: 0.40, SharpeRatio: 0.20},
	}
	target := &domain.Allocation{
		Weights: domain.Weights{"BTC": 0.5, "ETH": 0.5},
		Metrics: &domain.PortfolioMetrics{ExpectedReturn: 0.12, Volatility: 0.30, SharpeRatio: 0.33},
	}

	plan := planner.GeneratePlan(current, target, nil)
	m := plan.Metrics
	if m == nil {
		t.Fatal("expected improvement metrics")
	}
	if math.Abs(m.ReturnImprovement-0.02) > 1e-9 {
		t.Errorf("expected return improvement 0.02, got %f", m.ReturnImprovement)
	}
	if math.Abs(m.RiskReduction-0.10) > 1e-9 {
		t.Errorf("expected risk reduction 0.10, got %f", m.RiskReduction)
	}
	if !m.IsImprovement {
		t.Error("expected IsImprovement true for a sharpe gain")
	}
}

func TestGeneratePlan_NilMetricsSafe(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	current := &domain.Portfolio{Weights: domain.Weights{"BTC": 1}}
	target := &domain.Allocation{Weights: domain.Weights{"BTC": 0.5, "ETH": 0.5}}

	plan := planner.GeneratePlan(current, target, nil)
	if plan.Metrics == nil {
		t.Fatal("expected zero-valued improvement metrics, not nil")
	}
	if plan.Metrics.IsImprovement {
		t.Error("expected IsImprovement false without metrics")
	}
}

func TestGeneratePlan_DeterministicOrdering(t *testing.T) {
	planner := NewPlanner(DefaultFeeModel(), nil)

	// Equal trade amounts tie-break on symbol.
	current := &domain.Portfolio{Weights: domain.Weights{"AAA": 0.3, "BBB": 0.3, "CCC": 0.4}}
	target := &domain.Allocation{Weights: domain.Weights{"AAA": 0.4, "BBB": 0.4, "CCC": 0.2}}

	for run := 0; run < 5; run++ {
		plan := planner.GeneratePlan(current, target, nil)
		if plan.Trades[0].Symbol != "CCC" {
			t.Fatalf("run %d: expected CCC first, got %s", run, plan.Trades[0].Symbol)
		}
		if plan.Trades[1].Symbol != "AAA" || plan.Trades[2].Symbol != "BBB" {
			t.Fatalf("run %d: expected AAA before BBB on tie, got %v", run, plan.Trades)
		}
	}
}
