package analytics

import "fintrack/internal/core"

// Trend labels derived from the normalized slope.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"

	stableBandPercent = 5.0
)

type SpendingTrends struct {
	Months                []PeriodAggregate `json:"months"`
	TotalIncome           float64           `json:"total_income"`
	TotalExpense          float64           `json:"total_expense"`
	AverageMonthlyIncome  float64           `json:"average_monthly_income"`
	AverageMonthlyExpense float64           `json:"average_monthly_expense"`
	AverageMonthlySavings float64           `json:"average_monthly_savings"`
	Volatility            float64           `json:"volatility"`
	TrendDirection        float64           `json:"trend_direction"`
	Trend                 string            `json:"trend"`
	RSquared              float64           `json:"r_squared"`
	Range                 core.DateRange    `json:"range"`
}

// NormalizedSlope expresses the OLS slope of series as a percentage of its
// mean. It is 0 below two points or at zero mean.
func NormalizedSlope(series []float64) (trend, rSquared float64) {
	if len(series) < 2 {
		return 0, 0
	}
	avg := mean(series)
	slope, r2 := computeLinearRegression(series)
	if avg == 0 {
		return 0, r2
	}
	return slope / avg * 100, r2
}

// BuildTrends computes the zero-filled monthly series of r and its metrics.
func BuildTrends(r core.DateRange, rows []core.MonthAmount) SpendingTrends {
	months := FillMonths(r, rows)
	expenses := expenseSeries(months)

	var income, expense float64
	for _, m := range months {
		income += m.Income
		expense += m.Expense
	}

	t := SpendingTrends{
		Months:       months,
		TotalIncome:  round2(income),
		TotalExpense: round2(expense),
		Volatility:   round2(coefficientOfVariation(expenses)),
		Range:        r,
	}
	if n := float64(len(months)); n > 0 {
		t.AverageMonthlyIncome = round2(income / n)
		t.AverageMonthlyExpense = round2(expense / n)
		t.AverageMonthlySavings = round2((income - expense) / n)
	}

	trend, r2 := NormalizedSlope(expenses)
	t.TrendDirection = round2(trend)
	t.RSquared = round2(r2)
	switch {
	case trend > stableBandPercent:
		t.Trend = TrendIncreasing
	case trend < -stableBandPercent:
		t.Trend = TrendDecreasing
	default:
		t.Trend = TrendStable
	}
	return t
}
