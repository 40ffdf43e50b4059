package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// backends runs fn against every implementation with the same fixtures.
func backends(t *testing.T, fn func(t *testing.T, b Backend)) {
	t.Run("memory", func(t *testing.T) {
		b := NewMemoryStore()
		t.Cleanup(func() { b.Close() })
		fn(t, b)
	})
	t.Run("sqlite", func(t *testing.T) {
		b, err := NewSQLStore(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "fintrack.db"))
		require.NoError(t, err)
		t.Cleanup(func() { b.Close() })
		fn(t, b)
	})
}

type fixture struct {
	salary, groceries, loan, fun int64
}

func seed(t *testing.T, b Backend) fixture {
	t.Helper()
	ctx := context.Background()

	mustCategory := func(c core.Category) int64 {
		id, err := b.CreateCategory(ctx, c)
		require.NoError(t, err)
		return id
	}
	f := fixture{
		salary:    mustCategory(core.Category{UserID: 1, Name: "Salary", Type: core.Income}),
		groceries: mustCategory(core.Category{UserID: 1, Name: "Groceries", Type: core.Expense, BudgetLimit: dec("500")}),
		loan:      mustCategory(core.Category{UserID: 1, Name: "Car LOAN", Type: core.Expense}),
		fun:       mustCategory(core.Category{UserID: 1, Name: "Fun", Type: core.Expense, BudgetLimit: dec("100")}),
	}
	other := mustCategory(core.Category{UserID: 2, Name: "Groceries", Type: core.Expense})

	txs := []core.Transaction{
		{UserID: 1, CategoryID: f.salary, Amount: dec("3000"), Date: core.NewDate(2025, 1, 5)},
		{UserID: 1, CategoryID: f.salary, Amount: dec("3000"), Date: core.NewDate(2025, 2, 5)},
		{UserID: 1, CategoryID: f.groceries, Amount: dec("100.50"), Date: core.NewDate(2025, 1, 10)},
		{UserID: 1, CategoryID: f.groceries, Amount: dec("200"), Date: core.NewDate(2025, 2, 12)},
		{UserID: 1, CategoryID: f.loan, Amount: dec("400"), Date: core.NewDate(2025, 2, 1)},
		{UserID: 1, CategoryID: f.groceries, Amount: dec("50"), Date: core.NewDate(2024, 12, 31)},
		{UserID: 2, CategoryID: other, Amount: dec("999"), Date: core.NewDate(2025, 1, 10)},
	}
	for _, tx := range txs {
		_, err := b.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	_, err := b.CreateGoal(ctx, core.Goal{
		UserID:        1,
		Title:         "Emergency fund",
		TargetAmount:  dec("5000"),
		CurrentAmount: dec("1250.25"),
		TargetDate:    core.NewDate(2025, 12, 31),
		CreatedAt:     time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Priority:      core.PriorityHigh,
	})
	require.NoError(t, err)
	return f
}

var seedRange = struct{ from, to core.Date }{core.NewDate(2025, 1, 1), core.NewDate(2025, 2, 28)}

func TestReaderAggregates(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		f := seed(t, b)
		ctx := context.Background()
		from, to := seedRange.from, seedRange.to

		err := b.View(ctx, func(r Reader) error {
			totals, err := r.Totals(ctx, 1, from, to)
			require.NoError(t, err)
			assert.True(t, totals.Income.Equal(dec("6000")), totals.Income.String())
			assert.True(t, totals.Expense.Equal(dec("700.50")), totals.Expense.String())

			months, err := r.MonthlyTotals(ctx, 1, from, to)
			require.NoError(t, err)
			require.Len(t, months, 2)
			assert.Equal(t, "2025-01", months[0].Month)
			assert.True(t, months[0].Expense.Equal(dec("100.50")))
			assert.True(t, months[1].Expense.Equal(dec("600")))

			stats, err := r.CategoryStats(ctx, 1, from, to)
			require.NoError(t, err)
			require.Len(t, stats, 3)
			assert.Equal(t, []string{"Car LOAN", "Fun", "Groceries"}, []string{stats[0].Name, stats[1].Name, stats[2].Name})
			assert.Equal(t, 0, stats[1].Count)
			assert.True(t, stats[1].Spent.IsZero())
			assert.True(t, stats[1].Budget.Equal(dec("100")))
			g := stats[2]
			assert.Equal(t, f.groceries, g.CategoryID)
			assert.Equal(t, 2, g.Count)
			assert.True(t, g.Spent.Equal(dec("300.50")))
			assert.True(t, g.Average.Equal(dec("150.25")))
			assert.True(t, g.Max.Equal(dec("200")))
			assert.True(t, g.Min.Equal(dec("100.50")))

			monthly, err := r.CategoryMonthly(ctx, 1, from, to)
			require.NoError(t, err)
			assert.Len(t, monthly, 3)

			weekdays, err := r.WeekdayExpenses(ctx, 1, from, to)
			require.NoError(t, err)
			byDay := map[int]string{}
			for _, w := range weekdays {
				byDay[w.Weekday] = w.Amount.StringFixed(2)
			}
			assert.Equal(t, map[int]string{4: "200.00", 6: "100.50", 7: "400.00"}, byDay)

			balance, err := r.Balance(ctx, 1, to)
			require.NoError(t, err)
			assert.True(t, balance.Equal(dec("5249.50")), balance.String())

			debt, err := r.DebtPayments(ctx, 1, from, to, core.DebtKeywords)
			require.NoError(t, err)
			assert.True(t, debt.Equal(dec("400")), debt.String())

			goals, err := r.Goals(ctx, 1)
			require.NoError(t, err)
			require.Len(t, goals, 1)
			assert.Equal(t, "Emergency fund", goals[0].Title)
			assert.True(t, goals[0].CurrentAmount.Equal(dec("1250.25")))
			assert.Equal(t, "2025-12-31", goals[0].TargetDate.String())
			assert.Equal(t, core.GoalActive, goals[0].Status)
			assert.Equal(t, core.PriorityHigh, goals[0].Priority)
			assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), goals[0].CreatedAt)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestReaderEmptyUser(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		err := b.View(ctx, func(r Reader) error {
			totals, err := r.Totals(ctx, 42, seedRange.from, seedRange.to)
			require.NoError(t, err)
			assert.True(t, totals.Income.IsZero())

			months, err := r.MonthlyTotals(ctx, 42, seedRange.from, seedRange.to)
			require.NoError(t, err)
			assert.Empty(t, months)

			balance, err := r.Balance(ctx, 42, seedRange.to)
			require.NoError(t, err)
			assert.True(t, balance.IsZero())
			return nil
		})
		require.NoError(t, err)
	})
}

func TestRecurringWritePath(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		f := seed(t, b)
		ctx := context.Background()

		active, err := b.CreateRecurring(ctx, core.RecurringTransaction{
			UserID: 1, CategoryID: f.loan, Amount: dec("400"), Description: "Car loan",
			Every: core.Monthly, StartDate: core.NewDate(2025, 1, 1), Active: true,
		})
		require.NoError(t, err)
		_, err = b.CreateRecurring(ctx, core.RecurringTransaction{
			UserID: 1, CategoryID: f.fun, Amount: dec("10"), Description: "Ended",
			Every: core.Weekly, StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 6, 1), Active: true,
		})
		require.NoError(t, err)

		now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
		due, err := b.ActiveRecurring(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, active, due[0].ID)
		assert.True(t, due[0].LastExecution.IsZero())
		assert.True(t, due[0].EndDate.IsZero())
		assert.Equal(t, "2025-01-01", due[0].StartDate.String())

		require.NoError(t, b.MarkRecurringExecuted(ctx, active, now))
		due, err = b.ActiveRecurring(ctx, now)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, now, due[0].LastExecution)

		err = b.MarkRecurringExecuted(ctx, 9999, now)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateRejectsInvalid(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		ctx := context.Background()
		_, err := b.CreateCategory(ctx, core.Category{UserID: 1, Name: "", Type: core.Expense})
		assert.Error(t, err)
		_, err = b.CreateTransaction(ctx, core.Transaction{UserID: 1, CategoryID: 1, Amount: dec("-1"), Date: core.NewDate(2025, 1, 1)})
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
	})
}

func TestViewAfterCloseIsUnavailable(t *testing.T) {
	backends(t, func(t *testing.T, b Backend) {
		require.NoError(t, b.Close())
		err := b.View(context.Background(), func(Reader) error { return nil })
		assert.True(t, IsUnavailable(err), "got %v", err)
		assert.True(t, IsUnavailable(b.Ping(context.Background())))
	})
}

func TestRebind(t *testing.T) {
	pg, err := dialectFor(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y <= $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y <= ?"))

	lite, err := dialectFor(DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
	assert.Equal(t, "strftime('%Y-%m', t.date)", lite.month("t.date"))
	assert.Equal(t, "to_char(t.date, 'YYYY-MM')", pg.month("t.date"))

	_, err = dialectFor("oracle")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, src := range []any{want, "2025-03-04T05:06:07Z", []byte("2025-03-04 05:06:07"), "2025-03-04 06:06:07+01:00"} {
		got, err := parseTime(src)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "%v -> %v", src, got)
	}

	got, err := parseTime(nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseTime("not a time")
	assert.Error(t, err)
}
