package analytics

import (
	"math"

	"fintrack/internal/core"
)

// Component ceilings. They sum to 100.
const (
	MaxSavingsScore   = 30.0
	MaxExpenseScore   = 25.0
	MaxBudgetScore    = 20.0
	MaxStabilityScore = 15.0
	MaxDebtScore      = 10.0

	// previous periods are scored on savings rate alone, capped here
	maxPreviousScore = 85.0
)

type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeFair      Grade = "fair"
	GradePoor      Grade = "poor"
)

// HealthInputs are the raw figures one health score is computed from.
type HealthInputs struct {
	Income  float64
	Expense float64

	BudgetedCategories int
	WithinBudget       int

	Balance                float64 // lifetime, at range end
	AverageMonthlyExpense6 float64 // trailing six months

	DebtPayments float64

	PreviousIncome  float64
	PreviousExpense float64
}

type HealthScoreComponents struct {
	Savings   float64 `json:"savings"`
	Expenses  float64 `json:"expenses"`
	Budget    float64 `json:"budget"`
	Stability float64 `json:"stability"`
	Debt      float64 `json:"debt"`
}

// Sum adds the clamped components.
func (c HealthScoreComponents) Sum() float64 {
	return c.Savings + c.Expenses + c.Budget + c.Stability + c.Debt
}

type HealthMetrics struct {
	SavingsRate     float64 `json:"savings_rate"`
	ExpenseRatio    float64 `json:"expense_ratio"`
	BudgetAdherence float64 `json:"budget_adherence"`
	StabilityMonths float64 `json:"stability_months"`
	DebtRatio       float64 `json:"debt_ratio"`
}

type HealthScore struct {
	Overall    int                   `json:"overall_score"`
	Previous   int                   `json:"previous_score"`
	Change     int                   `json:"change"`
	Grade      Grade                 `json:"grade"`
	Components HealthScoreComponents `json:"components"`
	Metrics    HealthMetrics         `json:"metrics"`
	Range      core.DateRange        `json:"range"`
}

func SavingsRate(income, expense float64) float64 {
	return percentOf(income-expense, income, 0)
}

func ExpenseRatio(income, expense float64) float64 {
	return percentOf(expense, income, 100)
}

// BudgetAdherence is the share of budgeted categories whose spend stayed
// within budget, or 100 when nothing is budgeted.
func BudgetAdherence(budgeted, within int) float64 {
	if budgeted == 0 {
		return 100
	}
	return float64(within) / float64(budgeted) * 100
}

// CountWithinBudget tallies expense categories with a positive budget.
func CountWithinBudget(stats []core.CategoryStat) (budgeted, within int) {
	for _, s := range stats {
		if !s.Budget.IsPositive() {
			continue
		}
		budgeted++
		if s.Spent.LessThanOrEqual(s.Budget) {
			within++
		}
	}
	return budgeted, within
}

// StabilityMonths is how many months of average spending the balance covers.
func StabilityMonths(balance, avgMonthlyExpense float64) float64 {
	if avgMonthlyExpense == 0 {
		return 0
	}
	return balance / avgMonthlyExpense
}

// DebtRatio is debt payments as a share of income. Without income any
// payment counts as fully indebted.
func DebtRatio(payments, income float64) float64 {
	if income == 0 {
		if payments > 0 {
			return 100
		}
		return 0
	}
	return payments / income * 100
}

func savingsScore(rate float64) float64 {
	return clamp(rate/20*MaxSavingsScore, 0, MaxSavingsScore)
}

func expenseScore(ratio float64) float64 {
	return clamp(MaxExpenseScore-(ratio-60)/40*MaxExpenseScore, 0, MaxExpenseScore)
}

func budgetScore(adherence float64) float64 {
	return clamp(adherence/100*MaxBudgetScore, 0, MaxBudgetScore)
}

func stabilityScore(months float64) float64 {
	return clamp(months/6*MaxStabilityScore, 0, MaxStabilityScore)
}

func debtScore(ratio float64) float64 {
	switch {
	case ratio <= 20:
		return MaxDebtScore
	case ratio >= 40:
		return 0
	default:
		return MaxDebtScore * (40 - ratio) / 20
	}
}

// PreviousPeriodScore is the savings-rate-only proxy used for the change
// indicator. It is not comparable component by component with the current
// score.
func PreviousPeriodScore(income, expense float64) int {
	rate := SavingsRate(income, expense)
	return int(math.Round(math.Min(math.Max(rate, 0)/20*maxPreviousScore, maxPreviousScore)))
}

func GradeFor(score int) Grade {
	switch {
	case score >= 80:
		return GradeExcellent
	case score >= 60:
		return GradeGood
	case score >= 40:
		return GradeFair
	default:
		return GradePoor
	}
}

// ComposeHealthScore weighs the five components into a 0-100 score and the
// change against the preceding period.
func ComposeHealthScore(in HealthInputs) HealthScore {
	m := HealthMetrics{
		SavingsRate:     SavingsRate(in.Income, in.Expense),
		ExpenseRatio:    ExpenseRatio(in.Income, in.Expense),
		BudgetAdherence: BudgetAdherence(in.BudgetedCategories, in.WithinBudget),
		StabilityMonths: StabilityMonths(in.Balance, in.AverageMonthlyExpense6),
		DebtRatio:       DebtRatio(in.DebtPayments, in.Income),
	}

	c := HealthScoreComponents{
		Savings:   savingsScore(m.SavingsRate),
		Expenses:  expenseScore(m.ExpenseRatio),
		Budget:    budgetScore(m.BudgetAdherence),
		Stability: stabilityScore(m.StabilityMonths),
		Debt:      debtScore(m.DebtRatio),
	}

	overall := int(math.Round(c.Sum()))
	previous := PreviousPeriodScore(in.PreviousIncome, in.PreviousExpense)

	return HealthScore{
		Overall:    overall,
		Previous:   previous,
		Change:     overall - previous,
		Grade:      GradeFor(overall),
		Components: c,
		Metrics: HealthMetrics{
			SavingsRate:     round2(m.SavingsRate),
			ExpenseRatio:    round2(m.ExpenseRatio),
			BudgetAdherence: round2(m.BudgetAdherence),
			StabilityMonths: round2(m.StabilityMonths),
			DebtRatio:       round2(m.DebtRatio),
		},
	}
}
