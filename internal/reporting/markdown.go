package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Portfolio Optimization Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategy: %s | Assets: %d\n\n", r.Strategy, len(r.Assets)))
	if r.Degraded {
		sb.WriteString("**Degraded mode:** strategy fell back to risk parity.\n\n")
	}

	// Allocations
	sb.WriteString("## Allocations\n\n")
	rows := allocationRows(r)
	if len(rows) > 0 {
		sb.WriteString("| Asset | Current | Target | Delta |\n")
		sb.WriteString("|-------|---------|--------|-------|\n")
		for _, row := range rows {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %+.4f |\n",
				row.Symbol, row.CurrentWeight, row.TargetWeight, row.Delta))
		}
	} else {
		sb.WriteString("No allocations available.\n")
	}
	sb.WriteString("\n")

	// Portfolio Metrics
	sb.WriteString("## Portfolio Metrics\n\n")
	if r.Metrics != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Expected Return | %.4f |\n", r.Metrics.ExpectedReturn))
		sb.WriteString(fmt.Sprintf("| Volatility | %.4f |\n", r.Metrics.Volatility))
		sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", r.Metrics.SharpeRatio))
	} else {
		sb.WriteString("No portfolio metrics available.\n")
	}
	sb.WriteString("\n")

	// Rebalance Decision
	sb.WriteString("## Rebalance Decision\n\n")
	if r.Check != nil {
		decision := "HOLD"
		if r.Check.NeedsRebalance {
			decision = "REBALANCE"
		}
		sb.WriteString(fmt.Sprintf("Decision: **%s**\n\n", decision))
		sb.WriteString(fmt.Sprintf("Max deviation: %.4f | Sharpe improvement: %.4f\n\n",
			r.Check.MaxDeviation, r.Check.SharpeImprovement))
		if len(r.Check.Reasons) > 0 {
			for _, reason := range r.Check.Reasons {
				sb.WriteString(fmt.Sprintf("- %s\n", reason))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No rebalance check performed.\n\n")
	}

	// Rebalance Plan
	sb.WriteString("## Rebalance Plan\n\n")
	if r.Plan != nil && len(r.Plan.Trades) > 0 {
		sb.WriteString("| Asset | Action | Amount |\n")
		sb.WriteString("|-------|--------|--------|\n")
		for _, trade := range r.Plan.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f |\n",
				trade.Symbol, trade.Action, trade.Amount))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Turnover: %.4f | Fees: %.6f | Slippage: %.6f | Net flow: %+.6f\n\n",
			r.Plan.Turnover, r.Plan.TransactionCost, r.Plan.Slippage, r.Plan.NetFlow))
		if r.Plan.ConstraintsApplied {
			sb.WriteString("Position constraints were applied to target weights.\n\n")
		}
	} else {
		sb.WriteString("No trades planned.\n\n")
	}

	return sb.String()
}

// allocationRows merges current and target weights into sorted rows.
func allocationRows(r *Report) []AllocationRow {
	rows := make([]AllocationRow, 0, len(r.Assets))
	for _, symbol := range r.Assets {
		current := r.CurrentWeights[symbol]
		target := r.TargetWeights[symbol]
		rows = append(rows, AllocationRow{
			Symbol:        symbol,
			CurrentWeight: current,
			TargetWeight:  target,
			Delta:         target - current,
		})
	}
	return rows
}
