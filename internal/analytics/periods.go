package analytics

import (
	"time"

	"fintrack/internal/core"
)

// PeriodAggregate is one calendar month of the zero-filled series.
type PeriodAggregate struct {
	Period  string  `json:"period"`
	Label   string  `json:"label"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Savings float64 `json:"savings"`
}

// FillMonths returns exactly one aggregate per calendar month in r, ascending.
// Months missing from rows are reported with zero totals; rows outside r are
// ignored.
func FillMonths(r core.DateRange, rows []core.MonthAmount) []PeriodAggregate {
	byMonth := make(map[string]core.MonthAmount, len(rows))
	for _, row := range rows {
		byMonth[row.Month] = row
	}

	keys := r.MonthKeys()
	out := make([]PeriodAggregate, 0, len(keys))
	for _, key := range keys {
		p := PeriodAggregate{Period: key, Label: monthLabel(key)}
		if row, ok := byMonth[key]; ok {
			p.Income = core.Float(row.Income)
			p.Expense = core.Float(row.Expense)
		}
		p.Savings = p.Income - p.Expense
		out = append(out, p)
	}
	return out
}

func monthLabel(key string) string {
	t, err := time.Parse(core.MonthLayout, key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}

func expenseSeries(periods []PeriodAggregate) []float64 {
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = p.Expense
	}
	return out
}

func savingsSeries(periods []PeriodAggregate) []float64 {
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = p.Savings
	}
	return out
}

// AverageMonthlyExpense is the mean expense of the zero-filled months of r.
func AverageMonthlyExpense(r core.DateRange, rows []core.MonthAmount) float64 {
	return mean(expenseSeries(FillMonths(r, rows)))
}
