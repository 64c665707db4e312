package stats

import (
	"time"

	"github.com/avalon-py/new-avalonfi/internal/core"
)

// TopCategoryCount limits how many spending categories the summary carries.
const TopCategoryCount = 3

// Summarize reduces a transaction list to the numeric digest consumed by
// narrative generation. ObservedDaySpan is the ceiling of the distance
// between the oldest and newest transaction in days, floored to 1 so the
// daily average never divides by zero.
func Summarize(txs []core.Transaction) core.Summary {
	s := core.Summary{ObservedDaySpan: 1}

	var minDate, maxDate time.Time
	for _, tx := range txs {
		if tx.Type == core.Income {
			s.TotalIncome.Cents += safeCents(tx)
		} else {
			s.TotalExpense.Cents += safeCents(tx)
		}
		if minDate.IsZero() || tx.CreatedAt.Before(minDate) {
			minDate = tx.CreatedAt
		}
		if maxDate.IsZero() || tx.CreatedAt.After(maxDate) {
			maxDate = tx.CreatedAt
		}
	}
	s.NetBalance = s.TotalIncome.Sub(s.TotalExpense)

	if !minDate.IsZero() {
		span := maxDate.Sub(minDate)
		days := int(span / (24 * time.Hour))
		if span%(24*time.Hour) != 0 {
			days++
		}
		if days > s.ObservedDaySpan {
			s.ObservedDaySpan = days
		}
	}

	top := ByCategory(txs)
	if len(top) > TopCategoryCount {
		top = top[:TopCategoryCount]
	}
	s.TopCategories = top

	s.AvgDailyExpense = s.TotalExpense.DivInt(s.ObservedDaySpan)
	return s
}
