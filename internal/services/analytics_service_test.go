package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

var (
	testNow   = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	testRange = core.DateRange{From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 2, 28)}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type seeded struct {
	store     *storage.MemoryStore
	groceries int64
	loan      int64
	fun       int64
}

func seedStore(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	s := seeded{store: storage.NewMemoryStore()}
	t.Cleanup(func() { s.store.Close() })

	category := func(name string, typ core.CategoryType, budget string) int64 {
		id, err := s.store.CreateCategory(ctx, core.Category{UserID: 1, Name: name, Type: typ, BudgetLimit: dec(budget)})
		require.NoError(t, err)
		return id
	}
	salary := category("Salary", core.Income, "0")
	s.groceries = category("Groceries", core.Expense, "500")
	s.loan = category("Car Loan", core.Expense, "0")
	s.fun = category("Fun", core.Expense, "100")

	for _, tx := range []core.Transaction{
		{UserID: 1, CategoryID: salary, Amount: dec("3000"), Date: core.NewDate(2025, 1, 5)},
		{UserID: 1, CategoryID: salary, Amount: dec("3000"), Date: core.NewDate(2025, 2, 5)},
		{UserID: 1, CategoryID: s.groceries, Amount: dec("100.50"), Date: core.NewDate(2025, 1, 10)},
		{UserID: 1, CategoryID: s.groceries, Amount: dec("200"), Date: core.NewDate(2025, 2, 12)},
		{UserID: 1, CategoryID: s.loan, Amount: dec("400"), Date: core.NewDate(2025, 2, 1)},
		{UserID: 1, CategoryID: s.groceries, Amount: dec("50"), Date: core.NewDate(2024, 12, 31)},
	} {
		_, err := s.store.CreateTransaction(ctx, tx)
		require.NoError(t, err)
	}

	_, err := s.store.CreateGoal(ctx, core.Goal{
		UserID:        1,
		Title:         "Emergency fund",
		TargetAmount:  dec("5000"),
		CurrentAmount: dec("1250.25"),
		TargetDate:    core.NewDate(2025, 12, 31),
		CreatedAt:     time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return s
}

func newService(store storage.Store) *AnalyticsService {
	return NewAnalyticsService(store).WithClock(func() time.Time { return testNow })
}

func request() core.Request {
	return core.Request{UserID: 1, Range: testRange}
}

func TestAnalyticsService_Health(t *testing.T) {
	s := seedStore(t)
	score, err := newService(s.store).Health(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, 100, score.Overall)
	assert.Equal(t, 0, score.Previous)
	assert.Equal(t, 100, score.Change)
	assert.Equal(t, analytics.GradeExcellent, score.Grade)
	assert.Equal(t, float64(analytics.MaxSavingsScore), score.Components.Savings)
	assert.Equal(t, float64(analytics.MaxDebtScore), score.Components.Debt)
	assert.InDelta(t, 88.33, score.Metrics.SavingsRate, 0.01)
	assert.InDelta(t, 6.67, score.Metrics.DebtRatio, 0.01)
	assert.Equal(t, 100.0, score.Metrics.BudgetAdherence)
	assert.Equal(t, testRange, score.Range)
}

func TestAnalyticsService_Categories(t *testing.T) {
	s := seedStore(t)
	analysis, err := newService(s.store).Categories(context.Background(), request())
	require.NoError(t, err)

	require.Len(t, analysis.Categories, 3)
	assert.Equal(t, "Car Loan", analysis.Categories[0].Category)
	assert.Equal(t, "Fun", analysis.Categories[2].Category)

	groceries := analysis.Categories[1]
	assert.Equal(t, s.groceries, groceries.CategoryID)
	assert.Equal(t, 60.1, groceries.Percentage)
	assert.Equal(t, analytics.StatusGood, groceries.Status)
	assert.Equal(t, 0.0, groceries.TrendDirection)
	assert.Equal(t, "normal", groceries.Recommendation.ID)
	assert.Len(t, groceries.MonthlyTrend, 2)
	assert.Equal(t, 700.5, analysis.Summary.TotalSpent)
	assert.Equal(t, testRange, analysis.Range)
}

func TestAnalyticsService_DistributionAndTrends(t *testing.T) {
	s := seedStore(t)
	svc := newService(s.store)
	ctx := context.Background()

	dist, err := svc.Distribution(ctx, request())
	require.NoError(t, err)
	assert.Equal(t, []string{"Car Loan", "Groceries"}, dist.Labels)
	assert.Equal(t, 700.5, dist.Total)
	assert.Equal(t, "Saturday", dist.PeakDay)
	assert.Equal(t, analytics.ConcentrationHigh, dist.Concentration.Level)

	trends, err := svc.Trends(ctx, request())
	require.NoError(t, err)
	require.Len(t, trends.Months, 2)
	assert.Equal(t, 600.0, trends.Months[1].Expense)
	assert.Equal(t, 6000.0, trends.TotalIncome)
	assert.Equal(t, analytics.TrendIncreasing, trends.Trend)
}

func TestAnalyticsService_Goals(t *testing.T) {
	s := seedStore(t)
	progress, err := newService(s.store).Goals(context.Background(), request())
	require.NoError(t, err)

	require.Len(t, progress.Goals, 1)
	assert.Equal(t, analytics.GoalOnTrack, progress.Goals[0].Status)
	assert.Equal(t, 1, progress.Summary.OnTrack)

	ids := make([]string, 0, len(progress.Recommendations))
	for _, r := range progress.Recommendations {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"declining_savings"}, ids)
}

func TestAnalyticsService_GoalsOnlyActive(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	for _, status := range []core.GoalStatus{core.GoalCompleted, core.GoalOverdue} {
		_, err := s.store.CreateGoal(ctx, core.Goal{
			UserID:        1,
			Title:         "Closed " + string(status),
			TargetAmount:  dec("1000"),
			CurrentAmount: dec("10"),
			TargetDate:    core.NewDate(2025, 2, 1),
			Status:        status,
			CreatedAt:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	progress, err := newService(s.store).Goals(ctx, request())
	require.NoError(t, err)

	require.Len(t, progress.Goals, 1)
	assert.Equal(t, "Emergency fund", progress.Goals[0].Title)
	assert.Equal(t, 0, progress.Summary.Overdue)
	assert.Equal(t, 0, progress.Summary.Behind)
	assert.Equal(t, 1, progress.Summary.Total)
	assert.Equal(t, 5000.0, progress.Summary.TotalTarget)
}

func TestAnalyticsService_RejectsInvalidRequest(t *testing.T) {
	s := seedStore(t)
	_, err := newService(s.store).Health(context.Background(), core.Request{Range: testRange})
	assert.ErrorIs(t, err, core.ErrInvalidUser)
}

func TestAnalyticsService_EmptyUser(t *testing.T) {
	s := seedStore(t)
	req := core.Request{UserID: 99, Range: testRange}
	d, err := newService(s.store).Dashboard(context.Background(), req)
	require.NoError(t, err)

	require.True(t, d.Health.OK())
	// no income: expense ratio 100, no budgets, no debt
	assert.Equal(t, 0.0, d.Health.Data.Components.Savings)
	assert.Equal(t, float64(analytics.MaxBudgetScore), d.Health.Data.Components.Budget)
	assert.Empty(t, d.Categories.Data.Categories)
	assert.Empty(t, d.Distribution.Data.Labels)
	assert.Len(t, d.Trends.Data.Months, 2)
	assert.Empty(t, d.Goals.Data.Goals)
}

// failingStore injects reader failures.
type failingStore struct {
	storage.Store
	viewErr  error
	goalsErr error
}

func (f failingStore) View(ctx context.Context, fn func(storage.Reader) error) error {
	if f.viewErr != nil {
		return f.viewErr
	}
	return f.Store.View(ctx, func(r storage.Reader) error {
		return fn(failingReader{Reader: r, goalsErr: f.goalsErr})
	})
}

type failingReader struct {
	storage.Reader
	goalsErr error
}

func (r failingReader) Goals(ctx context.Context, userID int64) ([]core.Goal, error) {
	if r.goalsErr != nil {
		return nil, r.goalsErr
	}
	return r.Reader.Goals(ctx, userID)
}

func TestAnalyticsService_DashboardIsolatesMetricFailures(t *testing.T) {
	s := seedStore(t)
	svc := newService(failingStore{Store: s.store, goalsErr: errors.New("goals table locked")})

	d, err := svc.Dashboard(context.Background(), request())
	require.NoError(t, err)

	assert.True(t, d.Health.OK())
	assert.True(t, d.Categories.OK())
	assert.True(t, d.Distribution.OK())
	assert.True(t, d.Trends.OK())
	assert.False(t, d.Goals.OK())
	assert.Equal(t, "goals unavailable", d.Goals.Err)
	assert.Equal(t, testNow, d.GeneratedAt)

	body, err := json.Marshal(d)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.JSONEq(t, `{"error":"goals unavailable"}`, string(decoded["goals"]))
	assert.Contains(t, string(decoded["health"]), `"overall_score":100`)
}

func TestAnalyticsService_DashboardAbortsWhenSnapshotFails(t *testing.T) {
	s := seedStore(t)
	svc := newService(failingStore{Store: s.store, viewErr: storage.ErrUnavailable})

	d, err := svc.Dashboard(context.Background(), request())
	assert.Nil(t, d)
	assert.True(t, storage.IsUnavailable(err))
}

func TestAnalyticsService_ClosedStore(t *testing.T) {
	s := seedStore(t)
	require.NoError(t, s.store.Close())

	_, err := newService(s.store).Trends(context.Background(), request())
	assert.True(t, storage.IsUnavailable(err))
}

func TestAnalyticsService_CategoryAlert(t *testing.T) {
	s := seedStore(t)
	svc := newService(s.store)
	ctx := context.Background()

	m, err := svc.CategoryAlert(ctx, 1, s.loan, core.NewDate(2025, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, 400.0, m.Spent)
	assert.Equal(t, 1, m.Count)

	m, err = svc.CategoryAlert(ctx, 1, s.groceries, core.NewDate(2025, 2, 20))
	require.NoError(t, err)
	assert.Equal(t, 200.0, m.Spent)
	assert.Equal(t, analytics.StatusExcellent, m.Status)

	_, err = svc.CategoryAlert(ctx, 1, 12345, core.NewDate(2025, 2, 20))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
