package core

// DailyBucket holds aggregated totals for a single UTC calendar day.
type DailyBucket struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// MonthlyBucket holds aggregated totals for a single calendar month.
type MonthlyBucket struct {
	Label   string `json:"month"` // e.g. Jan '25
	Year    int    `json:"year"`
	Month   int    `json:"-"` // 1-12
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// CategoryBucket is the summed expense amount for one canonical category.
type CategoryBucket struct {
	Name  string `json:"name"`
	Value Money  `json:"value"`
}

// Summary is the compact numeric digest fed to narrative generation. The
// core produces these numbers and nothing else; prose belongs to the caller.
type Summary struct {
	TotalIncome     Money            `json:"totalIncome"`
	TotalExpense    Money            `json:"totalExpense"`
	NetBalance      Money            `json:"netBalance"`
	TopCategories   []CategoryBucket `json:"topCategories"` // at most 3, descending by value
	AvgDailyExpense Money            `json:"avgDailyExpense"`
	ObservedDaySpan int              `json:"observedDaySpan"` // >= 1
}
