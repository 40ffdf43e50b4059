package analytics

import (
	"fmt"
	"sort"

	"fintrack/internal/core"
)

type CategoryStatus string

const (
	StatusExcellent  CategoryStatus = "excellent"
	StatusGood       CategoryStatus = "good"
	StatusWarning    CategoryStatus = "warning"
	StatusOverBudget CategoryStatus = "over_budget"
)

// Recommendation is a rule table outcome: a stable id plus its rendered text.
type Recommendation struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// MonthValue is one point of a per-category monthly series.
type MonthValue struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

type CategoryMetric struct {
	CategoryID     int64          `json:"category_id"`
	Category       string         `json:"category"`
	Spent          float64        `json:"spent"`
	Budget         float64        `json:"budget"`
	Percentage     float64        `json:"percentage"`
	Count          int            `json:"transaction_count"`
	Average        float64        `json:"average_transaction"`
	Max            float64        `json:"max_transaction"`
	Min            float64        `json:"min_transaction"`
	MonthlyTrend   []MonthValue   `json:"monthly_trend"`
	TrendDirection float64        `json:"trend_direction"`
	Consistency    float64        `json:"consistency"`
	Efficiency     float64        `json:"efficiency"`
	Status         CategoryStatus `json:"status"`
	Recommendation Recommendation `json:"recommendation"`
}

type CategorySummary struct {
	TotalSpent        float64 `json:"total_spent"`
	TotalBudget       float64 `json:"total_budget"`
	OverallPercentage float64 `json:"overall_percentage"`
	OverBudgetCount   int     `json:"over_budget_count"`
	CategoryCount     int     `json:"category_count"`
}

type CategoryAnalysis struct {
	Categories []CategoryMetric `json:"categories"`
	Summary    CategorySummary  `json:"summary"`
	Range      core.DateRange   `json:"range"`
}

// Rows are evaluated in order; the first match wins.
var categoryRules = []struct {
	id      string
	matches func(CategoryMetric) bool
	message func(CategoryMetric) string
}{
	{
		id:      "budget_exceeded",
		matches: func(m CategoryMetric) bool { return m.Budget > 0 && m.Percentage > 100 },
		message: func(m CategoryMetric) string {
			return fmt.Sprintf("You have exceeded your %s budget by %.2f. Review recent purchases and cut back.", m.Category, m.Spent-m.Budget)
		},
	},
	{
		id:      "budget_approaching",
		matches: func(m CategoryMetric) bool { return m.Budget > 0 && m.Percentage > 80 },
		message: func(m CategoryMetric) string {
			return fmt.Sprintf("You have used %.0f%% of your %s budget. Slow down to stay within it.", m.Percentage, m.Category)
		},
	},
	{
		id:      "increasing_rapidly",
		matches: func(m CategoryMetric) bool { return m.TrendDirection > 20 },
		message: func(m CategoryMetric) string {
			return fmt.Sprintf("%s spending is up %.0f%% compared to earlier months.", m.Category, m.TrendDirection)
		},
	},
	{
		id:      "under_budget",
		matches: func(m CategoryMetric) bool { return m.Budget > 0 && m.Percentage < 50 },
		message: func(m CategoryMetric) string {
			return fmt.Sprintf("You are well under your %s budget. Consider moving the surplus to savings.", m.Category)
		},
	},
}

func recommendCategory(m CategoryMetric) Recommendation {
	for _, rule := range categoryRules {
		if rule.matches(m) {
			return Recommendation{ID: rule.id, Message: rule.message(m)}
		}
	}
	return Recommendation{ID: "normal", Message: fmt.Sprintf("%s spending is within normal range.", m.Category)}
}

func StatusFor(percentage float64) CategoryStatus {
	switch {
	case percentage <= 60:
		return StatusExcellent
	case percentage <= 80:
		return StatusGood
	case percentage <= 100:
		return StatusWarning
	default:
		return StatusOverBudget
	}
}

// Efficiency scores spend against budget; unbudgeted categories score 100.
func Efficiency(spent, budget float64) float64 {
	if budget == 0 {
		return 100
	}
	ratio := spent / budget
	switch {
	case ratio <= 0.8:
		return 90 + ratio*10
	case ratio <= 1.0:
		return 70 + (1-ratio)*20
	default:
		return clamp(70-(ratio-1)*70, 0, 70)
	}
}

// TrendDirection compares the average of the last three points with the
// first three, in percent. The two windows overlap on series shorter than six.
func TrendDirection(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	window := min(3, len(series))
	first := mean(series[:window])
	last := mean(series[len(series)-window:])
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

// Consistency is the coefficient of variation of the monthly series.
func Consistency(series []float64) float64 {
	return coefficientOfVariation(series)
}

// AnalyzeCategory derives the performance figures of one expense category.
// monthly must hold the category's months with spending in ascending order.
func AnalyzeCategory(stat core.CategoryStat, monthly []MonthValue) CategoryMetric {
	spent := core.Float(stat.Spent)
	budget := core.Float(stat.Budget)
	percentage := round2(percentOf(spent, budget, 0))

	series := make([]float64, len(monthly))
	for i, mv := range monthly {
		series[i] = mv.Amount
	}
	if monthly == nil {
		monthly = []MonthValue{}
	}

	m := CategoryMetric{
		CategoryID:     stat.CategoryID,
		Category:       stat.Name,
		Spent:          spent,
		Budget:         budget,
		Percentage:     percentage,
		Count:          stat.Count,
		Average:        round2(core.Float(stat.Average)),
		Max:            core.Float(stat.Max),
		Min:            core.Float(stat.Min),
		MonthlyTrend:   monthly,
		TrendDirection: round2(TrendDirection(series)),
		Consistency:    round2(Consistency(series)),
		Efficiency:     round2(Efficiency(spent, budget)),
		Status:         StatusFor(percentage),
	}
	m.Recommendation = recommendCategory(m)
	return m
}

// AnalyzeCategories builds the per-category report sorted by spend, largest
// first, ties broken by name.
func AnalyzeCategories(stats []core.CategoryStat, monthly []core.CategoryMonthAmount) CategoryAnalysis {
	byCategory := make(map[int64][]MonthValue)
	for _, row := range monthly {
		if !row.Amount.IsPositive() {
			continue
		}
		byCategory[row.CategoryID] = append(byCategory[row.CategoryID], MonthValue{
			Month:  row.Month,
			Amount: core.Float(row.Amount),
		})
	}

	out := CategoryAnalysis{Categories: make([]CategoryMetric, 0, len(stats))}
	for _, stat := range stats {
		series := byCategory[stat.CategoryID]
		sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })

		m := AnalyzeCategory(stat, series)
		out.Categories = append(out.Categories, m)

		out.Summary.TotalSpent += m.Spent
		out.Summary.TotalBudget += m.Budget
		if m.Status == StatusOverBudget {
			out.Summary.OverBudgetCount++
		}
	}

	sort.SliceStable(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if a.Spent != b.Spent {
			return a.Spent > b.Spent
		}
		return a.Category < b.Category
	})

	out.Summary.CategoryCount = len(out.Categories)
	out.Summary.TotalSpent = round2(out.Summary.TotalSpent)
	out.Summary.TotalBudget = round2(out.Summary.TotalBudget)
	out.Summary.OverallPercentage = round2(percentOf(out.Summary.TotalSpent, out.Summary.TotalBudget, 0))
	return out
}
