package reporting

import (
	"fmt"
	"strings"
)

// RenderAllocationsCSV renders allocation rows as CSV string.
func RenderAllocationsCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("symbol,current_weight,target_weight,delta\n")

	// Rows
	for _, row := range allocationRows(r) {
		sb.WriteString(fmt.Sprintf("%s,%.6f,%.6f,%.6f\n",
			row.Symbol, row.CurrentWeight, row.TargetWeight, row.Delta))
	}

	return sb.String()
}

// RenderTradesCSV renders planned trades as CSV string.
func RenderTradesCSV(r *Report) string {
	var sb strings.Builder

	sb.WriteString("symbol,action,amount\n")
	if r.Plan == nil {
		return sb.String()
	}
	for _, trade := range r.Plan.Trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f\n",
			trade.Symbol, trade.Action, trade.Amount))
	}

	return sb.String()
}
