package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avalon-py/new-avalonfi/internal/core"
)

// highDailySpendCents is the daily average above which the fallback nudges
// the user about small recurring expenses.
const highDailySpendCents = 100_000

// TemplateGenerator is the offline fallback used when no model is
// configured or the model call fails. It never errors.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (TemplateGenerator) Generate(_ context.Context, s core.Summary) (string, error) {
	var b strings.Builder

	if s.NetBalance.Cents > 0 && s.TotalIncome.Cents > 0 {
		rate := float64(s.NetBalance.Cents) / float64(s.TotalIncome.Cents) * 100
		fmt.Fprintf(&b, "Great job! You're saving %.1f%% of your income. ", rate)
	} else {
		b.WriteString("You're currently spending more than you earn. ")
	}

	topName := "various categories"
	var topPercent float64
	if len(s.TopCategories) > 0 {
		topName = s.TopCategories[0].Name
		if s.TotalExpense.Cents > 0 {
			topPercent = float64(s.TopCategories[0].Value.Cents) / float64(s.TotalExpense.Cents) * 100
		}
	}
	fmt.Fprintf(&b, "Your biggest expense is %s, accounting for %.1f%% of total spending. ", topName, topPercent)

	if s.AvgDailyExpense.Cents > highDailySpendCents {
		fmt.Fprintf(&b, "Consider tracking small daily expenses - they add up to Rp%d per day. ", s.AvgDailyExpense.Cents)
	}

	b.WriteString("Keep monitoring your finances to stay on track!")
	return b.String(), nil
}

// WithFallback wraps a generator so that any failure falls back to the
// template text instead of surfacing an error to the user.
type WithFallback struct {
	Primary  Generator
	Fallback Generator // nil means the built-in template text
}

func (w WithFallback) Generate(ctx context.Context, s core.Summary) (string, error) {
	if w.Primary != nil {
		text, err := w.Primary.Generate(ctx, s)
		if err == nil {
			return text, nil
		}
		slog.ErrorContext(ctx, "Insight generation failed, using fallback", "error", err)
	}
	if w.Fallback == nil {
		return TemplateGenerator{}.Generate(ctx, s)
	}
	return w.Fallback.Generate(ctx, s)
}
