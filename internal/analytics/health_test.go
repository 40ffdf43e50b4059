package analytics

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
)

func TestSavingsScore(t *testing.T) {
	t.Run("forty percent savings caps the component", func(t *testing.T) {
		rate := SavingsRate(50000, 30000)
		assert.InDelta(t, 40.0, rate, 1e-9)
		assert.InDelta(t, 30.0, savingsScore(rate), 1e-9)
	})

	t.Run("negative savings floor at zero", func(t *testing.T) {
		assert.Equal(t, 0.0, savingsScore(SavingsRate(1000, 1500)))
	})

	t.Run("no income means zero rate", func(t *testing.T) {
		assert.Equal(t, 0.0, SavingsRate(0, 200))
	})
}

func TestExpenseScore(t *testing.T) {
	cases := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"low spending is capped", 30, 25},
		{"sixty percent is full score", 60, 25},
		{"eighty percent", 80, 12.5},
		{"hundred percent", 100, 0},
		{"overspending floors", 150, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, expenseScore(tc.ratio), 1e-9)
		})
	}
	assert.Equal(t, 100.0, ExpenseRatio(0, 10))
}

func TestBudgetAdherence(t *testing.T) {
	stats := []core.CategoryStat{
		{Name: "Food", Budget: decimal.NewFromInt(500), Spent: decimal.NewFromInt(400)},
		{Name: "Fun", Budget: decimal.NewFromInt(100), Spent: decimal.NewFromInt(150)},
		{Name: "Rent", Budget: decimal.NewFromInt(1000), Spent: decimal.NewFromInt(1000)},
		{Name: "Misc", Spent: decimal.NewFromInt(80)},
	}
	budgeted, within := CountWithinBudget(stats)
	assert.Equal(t, 3, budgeted)
	assert.Equal(t, 2, within)
	assert.InDelta(t, 66.67, round2(BudgetAdherence(budgeted, within)), 1e-9)
	assert.Equal(t, 100.0, BudgetAdherence(0, 0))
}

func TestStabilityAndDebt(t *testing.T) {
	assert.Equal(t, 0.0, StabilityMonths(10000, 0))
	assert.InDelta(t, 15.0, stabilityScore(StabilityMonths(60000, 5000)), 1e-9)
	assert.InDelta(t, 7.5, stabilityScore(3), 1e-9)
	assert.Equal(t, 0.0, stabilityScore(StabilityMonths(-500, 1000)))

	assert.Equal(t, 10.0, debtScore(DebtRatio(1000, 10000)))
	assert.InDelta(t, 5.0, debtScore(DebtRatio(3000, 10000)), 1e-9)
	assert.Equal(t, 0.0, debtScore(DebtRatio(4000, 10000)))
	assert.Equal(t, 0.0, debtScore(DebtRatio(100, 0)))
	assert.Equal(t, 10.0, debtScore(DebtRatio(0, 0)))
}

func TestComposeHealthScore(t *testing.T) {
	score := ComposeHealthScore(HealthInputs{
		Income:                 50000,
		Expense:                30000,
		BudgetedCategories:     2,
		WithinBudget:           1,
		Balance:                60000,
		AverageMonthlyExpense6: 5000,
		DebtPayments:           5000,
		PreviousIncome:         40000,
		PreviousExpense:        36000,
	})

	assert.InDelta(t, 30.0, score.Components.Savings, 1e-9)
	assert.InDelta(t, 25.0, score.Components.Expenses, 1e-9)
	assert.InDelta(t, 10.0, score.Components.Budget, 1e-9)
	assert.InDelta(t, 15.0, score.Components.Stability, 1e-9)
	assert.InDelta(t, 10.0, score.Components.Debt, 1e-9)
	assert.Equal(t, 90, score.Overall)
	assert.Equal(t, 43, score.Previous)
	assert.Equal(t, 47, score.Change)
	assert.Equal(t, GradeExcellent, score.Grade)
	assert.Equal(t, 40.0, score.Metrics.SavingsRate)
}

func TestComposeHealthScoreInvariant(t *testing.T) {
	incomes := []float64{0, 100, 2500, 50000}
	expenses := []float64{0, 80, 2600, 120000}
	balances := []float64{-5000, 0, 700, 1e6}
	debts := []float64{0, 15, 900, 30000}

	for _, income := range incomes {
		for _, expense := range expenses {
			for _, balance := range balances {
				for _, debt := range debts {
					score := ComposeHealthScore(HealthInputs{
						Income:                 income,
						Expense:                expense,
						BudgetedCategories:     3,
						WithinBudget:           1,
						Balance:                balance,
						AverageMonthlyExpense6: expense / 6,
						DebtPayments:           debt,
					})
					c := score.Components
					assert.True(t, c.Savings >= 0 && c.Savings <= MaxSavingsScore)
					assert.True(t, c.Expenses >= 0 && c.Expenses <= MaxExpenseScore)
					assert.True(t, c.Budget >= 0 && c.Budget <= MaxBudgetScore)
					assert.True(t, c.Stability >= 0 && c.Stability <= MaxStabilityScore)
					assert.True(t, c.Debt >= 0 && c.Debt <= MaxDebtScore)
					assert.Equal(t, int(math.Round(c.Sum())), score.Overall)
					assert.True(t, score.Overall >= 0 && score.Overall <= 100)
				}
			}
		}
	}
}

func TestPreviousPeriodScore(t *testing.T) {
	assert.Equal(t, 85, PreviousPeriodScore(1000, 0))
	assert.Equal(t, 43, PreviousPeriodScore(1000, 900))
	assert.Equal(t, 0, PreviousPeriodScore(1000, 2000))
	assert.Equal(t, 0, PreviousPeriodScore(0, 0))
}

func TestGradeFor(t *testing.T) {
	assert.Equal(t, GradeExcellent, GradeFor(80))
	assert.Equal(t, GradeGood, GradeFor(79))
	assert.Equal(t, GradeGood, GradeFor(60))
	assert.Equal(t, GradeFair, GradeFor(40))
	assert.Equal(t, GradePoor, GradeFor(39))
}
