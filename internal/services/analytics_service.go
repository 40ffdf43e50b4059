package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Metric names as they appear in the dashboard and in logs.
const (
	MetricHealth       = "health"
	MetricCategories   = "categories"
	MetricDistribution = "distribution"
	MetricTrends       = "trends"
	MetricGoals        = "goals"
)

const stabilityWindowMonths = 6

// AnalyticsService computes every analytic of a request against a single
// store snapshot.
type AnalyticsService struct {
	store storage.Store
	now   func() time.Time
}

func NewAnalyticsService(store storage.Store) *AnalyticsService {
	return &AnalyticsService{store: store, now: time.Now}
}

// WithClock replaces the clock goal projections are measured against.
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

// view runs fn in one snapshot after validating req.
func (s *AnalyticsService) view(ctx context.Context, req core.Request, fn func(storage.Reader) error) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.store.View(ctx, fn)
}

func (s *AnalyticsService) Health(ctx context.Context, req core.Request) (*analytics.HealthScore, error) {
	var out *analytics.HealthScore
	err := s.view(ctx, req, func(r storage.Reader) (err error) {
		out, err = healthScore(ctx, r, req)
		return err
	})
	return out, err
}

func (s *AnalyticsService) Categories(ctx context.Context, req core.Request) (*analytics.CategoryAnalysis, error) {
	var out *analytics.CategoryAnalysis
	err := s.view(ctx, req, func(r storage.Reader) (err error) {
		out, err = categoryAnalysis(ctx, r, req)
		return err
	})
	return out, err
}

func (s *AnalyticsService) Distribution(ctx context.Context, req core.Request) (*analytics.Distribution, error) {
	var out *analytics.Distribution
	err := s.view(ctx, req, func(r storage.Reader) (err error) {
		out, err = expenseDistribution(ctx, r, req)
		return err
	})
	return out, err
}

func (s *AnalyticsService) Trends(ctx context.Context, req core.Request) (*analytics.SpendingTrends, error) {
	var out *analytics.SpendingTrends
	err := s.view(ctx, req, func(r storage.Reader) (err error) {
		out, err = spendingTrends(ctx, r, req)
		return err
	})
	return out, err
}

func (s *AnalyticsService) Goals(ctx context.Context, req core.Request) (*analytics.GoalProgress, error) {
	var out *analytics.GoalProgress
	err := s.view(ctx, req, func(r storage.Reader) (err error) {
		out, err = goalProgress(ctx, r, req, s.now())
		return err
	})
	return out, err
}

// MetricResult is one dashboard slot: the computed value or the reason it
// is missing.
type MetricResult[T any] struct {
	Data *T
	Err  string
}

// MarshalJSON renders the value itself, or {"error": "..."} on failure.
func (m MetricResult[T]) MarshalJSON() ([]byte, error) {
	if m.Err != "" || m.Data == nil {
		msg := m.Err
		if msg == "" {
			msg = "metric unavailable"
		}
		return json.Marshal(struct {
			Error string `json:"error"`
		}{msg})
	}
	return json.Marshal(m.Data)
}

func (m MetricResult[T]) OK() bool { return m.Err == "" && m.Data != nil }

type Dashboard struct {
	Health       MetricResult[analytics.HealthScore]      `json:"health"`
	Categories   MetricResult[analytics.CategoryAnalysis] `json:"categories"`
	Distribution MetricResult[analytics.Distribution]     `json:"distribution"`
	Trends       MetricResult[analytics.SpendingTrends]   `json:"trends"`
	Goals        MetricResult[analytics.GoalProgress]     `json:"goals"`
	Range        core.DateRange                           `json:"range"`
	GeneratedAt  time.Time                                `json:"generated_at"`
}

// Dashboard computes all five analytics in one snapshot. A failing metric
// leaves an error in its own slot; only a failed snapshot fails the call.
func (s *AnalyticsService) Dashboard(ctx context.Context, req core.Request) (*Dashboard, error) {
	now := s.now()
	out := &Dashboard{Range: req.Range, GeneratedAt: now.UTC()}

	err := s.view(ctx, req, func(r storage.Reader) error {
		var g errgroup.Group
		g.Go(slot(ctx, req, MetricHealth, &out.Health, func() (*analytics.HealthScore, error) {
			return healthScore(ctx, r, req)
		}))
		g.Go(slot(ctx, req, MetricCategories, &out.Categories, func() (*analytics.CategoryAnalysis, error) {
			return categoryAnalysis(ctx, r, req)
		}))
		g.Go(slot(ctx, req, MetricDistribution, &out.Distribution, func() (*analytics.Distribution, error) {
			return expenseDistribution(ctx, r, req)
		}))
		g.Go(slot(ctx, req, MetricTrends, &out.Trends, func() (*analytics.SpendingTrends, error) {
			return spendingTrends(ctx, r, req)
		}))
		g.Go(slot(ctx, req, MetricGoals, &out.Goals, func() (*analytics.GoalProgress, error) {
			return goalProgress(ctx, r, req, now)
		}))
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// slot adapts one metric for the errgroup: its failure or panic is stored
// in dst and never returned.
func slot[T any](ctx context.Context, req core.Request, metric string, dst *MetricResult[T], compute func() (*T, error)) func() error {
	return func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = nil
				dst.Data, dst.Err = nil, fmt.Sprintf("%s: internal error", metric)
				log.LogMetricFailure(ctx, req, metric, fmt.Errorf("panic: %v", p))
			}
		}()

		data, cerr := compute()
		if cerr != nil {
			dst.Err = fmt.Sprintf("%s unavailable", metric)
			log.LogMetricFailure(ctx, req, metric, cerr)
			return nil
		}
		dst.Data = data
		return nil
	}
}

// CategoryAlert analyzes one category over the calendar month containing
// day. It backs budget alerts.
func (s *AnalyticsService) CategoryAlert(ctx context.Context, userID, categoryID int64, day core.Date) (*analytics.CategoryMetric, error) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	req := core.Request{
		UserID: userID,
		Range: core.DateRange{
			From: core.Date{Time: first},
			To:   core.Date{Time: first.AddDate(0, 1, -1)},
		},
	}

	var out *analytics.CategoryMetric
	err := s.view(ctx, req, func(r storage.Reader) error {
		analysis, err := categoryAnalysis(ctx, r, req)
		if err != nil {
			return err
		}
		for i := range analysis.Categories {
			if analysis.Categories[i].CategoryID == categoryID {
				out = &analysis.Categories[i]
				return nil
			}
		}
		return fmt.Errorf("expense category %d: %w", categoryID, storage.ErrNotFound)
	})
	return out, err
}

func healthScore(ctx context.Context, r storage.Reader, req core.Request) (*analytics.HealthScore, error) {
	uid, from, to := req.UserID, req.Range.From, req.Range.To

	totals, err := r.Totals(ctx, uid, from, to)
	if err != nil {
		return nil, err
	}
	prev := req.Range.Previous()
	prevTotals, err := r.Totals(ctx, uid, prev.From, prev.To)
	if err != nil {
		return nil, err
	}
	stats, err := r.CategoryStats(ctx, uid, from, to)
	if err != nil {
		return nil, err
	}
	balance, err := r.Balance(ctx, uid, to)
	if err != nil {
		return nil, err
	}
	window := core.TrailingMonths(to.Time, stabilityWindowMonths)
	recent, err := r.MonthlyTotals(ctx, uid, window.From, window.To)
	if err != nil {
		return nil, err
	}
	debt, err := r.DebtPayments(ctx, uid, from, to, core.DebtKeywords)
	if err != nil {
		return nil, err
	}

	budgeted, within := analytics.CountWithinBudget(stats)
	score := analytics.ComposeHealthScore(analytics.HealthInputs{
		Income:                 core.Float(totals.Income),
		Expense:                core.Float(totals.Expense),
		BudgetedCategories:     budgeted,
		WithinBudget:           within,
		Balance:                core.Float(balance),
		AverageMonthlyExpense6: analytics.AverageMonthlyExpense(window, recent),
		DebtPayments:           core.Float(debt),
		PreviousIncome:         core.Float(prevTotals.Income),
		PreviousExpense:        core.Float(prevTotals.Expense),
	})
	score.Range = req.Range
	return &score, nil
}

func categoryAnalysis(ctx context.Context, r storage.Reader, req core.Request) (*analytics.CategoryAnalysis, error) {
	stats, err := r.CategoryStats(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return nil, err
	}
	monthly, err := r.CategoryMonthly(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return nil, err
	}
	out := analytics.AnalyzeCategories(stats, monthly)
	out.Range = req.Range
	return &out, nil
}

func expenseDistribution(ctx context.Context, r storage.Reader, req core.Request) (*analytics.Distribution, error) {
	stats, err := r.CategoryStats(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return nil, err
	}
	weekdays, err := r.WeekdayExpenses(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return nil, err
	}
	out := analytics.BuildDistribution(req.Range, stats, weekdays)
	return &out, nil
}

func spendingTrends(ctx context.Context, r storage.Reader, req core.Request) (*analytics.SpendingTrends, error) {
	months, err := r.MonthlyTotals(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return nil, err
	}
	out := analytics.BuildTrends(req.Range, months)
	return &out, nil
}

func goalProgress(ctx context.Context, r storage.Reader, req core.Request, now time.Time) (*analytics.GoalProgress, error) {
	goals, err := r.Goals(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	totals, err := r.Totals(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return nil, err
	}
	months, err := r.MonthlyTotals(ctx, req.UserID, req.Range.From, req.Range.To)
	if err != nil {
		return nil, err
	}
	out := analytics.AnalyzeGoals(activeGoals(goals), now, analytics.NewGoalContext(req.Range, totals, months))
	out.Range = req.Range
	return &out, nil
}

// activeGoals drops goals already closed as completed or overdue.
func activeGoals(goals []core.Goal) []core.Goal {
	out := make([]core.Goal, 0, len(goals))
	for _, g := range goals {
		if g.Status == core.GoalActive {
			out = append(out, g)
		}
	}
	return out
}
