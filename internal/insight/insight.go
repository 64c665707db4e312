// Package insight turns the numeric transaction summary into a short piece
// of advice prose. The numbers come from stats.Summarize; this package never
// recomputes them.
package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/avalon-py/new-avalonfi/internal/core"
)

// Generator produces a short prose insight from a numeric summary.
type Generator interface {
	Generate(ctx context.Context, summary core.Summary) (string, error)
}

// buildPrompt renders the summary into the advisor prompt. Only aggregate
// numbers are included; individual transactions never leave the service.
func buildPrompt(s core.Summary) string {
	var b strings.Builder
	b.WriteString("You are a financial advisor. Based on this user's transaction data, provide brief, actionable insights (3-4 sentences max):\n\n")
	b.WriteString("Transaction Summary:\n")
	fmt.Fprintf(&b, "- Total Income: Rp%d\n", s.TotalIncome.Cents)
	fmt.Fprintf(&b, "- Total Expenses: Rp%d\n", s.TotalExpense.Cents)
	fmt.Fprintf(&b, "- Net Balance: Rp%d\n", s.NetBalance.Cents)
	fmt.Fprintf(&b, "- Days of Data: %d\n\n", s.ObservedDaySpan)

	b.WriteString("Top Spending Categories:\n")
	for i, c := range s.TopCategories {
		fmt.Fprintf(&b, "%d. %s: Rp%d\n", i+1, c.Name, c.Value.Cents)
	}
	fmt.Fprintf(&b, "\nAverage Daily Spending: Rp%d\n\n", s.AvgDailyExpense.Cents)

	b.WriteString("Provide:\n")
	b.WriteString("1. One key observation\n")
	b.WriteString("2. One actionable recommendation\n")
	b.WriteString("3. One positive reinforcement\n\n")
	b.WriteString("Keep it conversational and encouraging.")
	return b.String()
}
