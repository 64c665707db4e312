// Package stats computes time-bucketed rollups and numeric summaries over
// already-fetched transaction lists. Every function is pure: inputs are
// never mutated, "now" is always an explicit parameter, and no function can
// fail; malformed rows are coerced instead of propagated.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/avalon-py/new-avalonfi/internal/core"
)

const (
	// DailyWindow is the trailing number of UTC calendar days covered by Daily.
	DailyWindow = 30
	// MonthlyWindow is the trailing number of calendar months covered by Monthly.
	MonthlyWindow = 12
)

// Daily buckets transactions into the trailing 30 UTC calendar days ending
// on now's UTC day, oldest first. Days without activity stay zero-filled.
// Bucketing truncates to UTC days, never local time, so users in different
// zones see the same boundaries.
func Daily(txs []core.Transaction, now time.Time) []core.DailyBucket {
	end := utcDay(now)

	byDay := make(map[string]*core.DailyBucket, len(txs))
	buckets := make([]core.DailyBucket, DailyWindow)
	for i := 0; i < DailyWindow; i++ {
		day := end.AddDate(0, 0, i-DailyWindow+1)
		buckets[i] = core.DailyBucket{Date: day.Format("2006-01-02")}
		byDay[buckets[i].Date] = &buckets[i]
	}

	for _, tx := range txs {
		b, ok := byDay[tx.Day().Format("2006-01-02")]
		if !ok {
			continue // outside the window
		}
		addTo(&b.Income, &b.Expense, tx)
	}
	return buckets
}

// Monthly buckets transactions into the trailing 12 calendar months
// including the current one, oldest first, zero-filled like Daily.
func Monthly(txs []core.Transaction, now time.Time) []core.MonthlyBucket {
	u := now.UTC()
	first := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)

	type ym struct{ y, m int }
	byMonth := make(map[ym]*core.MonthlyBucket, MonthlyWindow)
	buckets := make([]core.MonthlyBucket, MonthlyWindow)
	for i := 0; i < MonthlyWindow; i++ {
		month := first.AddDate(0, i-MonthlyWindow+1, 0)
		buckets[i] = core.MonthlyBucket{
			Label: monthLabel(month),
			Year:  month.Year(),
			Month: int(month.Month()),
		}
		byMonth[ym{month.Year(), int(month.Month())}] = &buckets[i]
	}

	for _, tx := range txs {
		d := tx.CreatedAt.UTC()
		b, ok := byMonth[ym{d.Year(), int(d.Month())}]
		if !ok {
			continue
		}
		addTo(&b.Income, &b.Expense, tx)
	}
	return buckets
}

// ByCategory sums expense transactions per canonical category, descending by
// value. Ties keep first-encounter order. Income rows are excluded entirely;
// the result is derived fresh on every call and never cached.
func ByCategory(txs []core.Transaction) []core.CategoryBucket {
	idx := make(map[string]int, 8)
	var buckets []core.CategoryBucket

	for _, tx := range txs {
		if tx.Type == core.Income {
			continue
		}
		i, ok := idx[tx.Category]
		if !ok {
			i = len(buckets)
			idx[tx.Category] = i
			buckets = append(buckets, core.CategoryBucket{Name: tx.Category})
		}
		buckets[i].Value.Cents += safeCents(tx)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Value.Cents > buckets[j].Value.Cents
	})
	return buckets
}

// addTo accumulates one transaction into an income/expense pair. Unknown
// types count as expense, matching the dashboard's historical behavior, and
// negative amounts are coerced to zero rather than corrupting the sums.
func addTo(income, expense *core.Money, tx core.Transaction) {
	if tx.Type == core.Income {
		income.Cents += safeCents(tx)
	} else {
		expense.Cents += safeCents(tx)
	}
}

func safeCents(tx core.Transaction) int64 {
	if tx.Amount.Cents < 0 {
		return 0
	}
	return tx.Amount.Cents
}

func utcDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func monthLabel(t time.Time) string {
	return fmt.Sprintf("%s '%02d", t.Format("Jan"), t.Year()%100)
}
