package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlReader runs every aggregate inside the snapshot transaction it was
// created with. Amounts are summed as integer cents. Calls are serialized
// because a transaction owns a single connection.
type sqlReader struct {
	mu sync.Mutex
	q  queryer
	d  dialect
}

func (r *sqlReader) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.d.rebind(query), args...)
}

func (r *sqlReader) Totals(ctx context.Context, userID int64, from, to core.Date) (core.Totals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var income, expense int64
	err := r.q.QueryRowContext(ctx, r.d.rebind(`
		SELECT
			COALESCE(SUM(CASE WHEN c.type = 'income' THEN t.amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN c.type = 'expense' THEN t.amount_cents ELSE 0 END), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.date >= ? AND t.date <= ?`),
		userID, dateParam(from), dateParam(to)).Scan(&income, &expense)
	if err != nil {
		return core.Totals{}, fmt.Errorf("get totals: %w", err)
	}
	return core.Totals{Income: core.FromCents(income), Expense: core.FromCents(expense)}, nil
}

func (r *sqlReader) MonthlyTotals(ctx context.Context, userID int64, from, to core.Date) ([]core.MonthAmount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	month := r.d.month("t.date")
	rows, err := r.query(ctx, `
		SELECT `+month+` AS month,
			COALESCE(SUM(CASE WHEN c.type = 'income' THEN t.amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN c.type = 'expense' THEN t.amount_cents ELSE 0 END), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.date >= ? AND t.date <= ?
		GROUP BY `+month+`
		ORDER BY month`,
		userID, dateParam(from), dateParam(to))
	if err != nil {
		return nil, fmt.Errorf("get monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthAmount
	for rows.Next() {
		var (
			m               core.MonthAmount
			income, expense int64
		)
		if err := rows.Scan(&m.Month, &income, &expense); err != nil {
			return nil, fmt.Errorf("scan monthly totals: %w", err)
		}
		m.Income, m.Expense = core.FromCents(income), core.FromCents(expense)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *sqlReader) CategoryStats(ctx context.Context, userID int64, from, to core.Date) ([]core.CategoryStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.query(ctx, `
		SELECT c.id, c.name, c.budget_limit_cents,
			COUNT(t.id),
			COALESCE(SUM(t.amount_cents), 0),
			COALESCE(MAX(t.amount_cents), 0),
			COALESCE(MIN(t.amount_cents), 0)
		FROM categories c
		LEFT JOIN transactions t
			ON t.category_id = c.id AND t.user_id = c.user_id AND t.date >= ? AND t.date <= ?
		WHERE c.user_id = ? AND c.type = 'expense'
		GROUP BY c.id, c.name, c.budget_limit_cents
		ORDER BY c.name, c.id`,
		dateParam(from), dateParam(to), userID)
	if err != nil {
		return nil, fmt.Errorf("get category stats: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryStat
	for rows.Next() {
		var (
			s                   core.CategoryStat
			budget, sum, hi, lo int64
		)
		if err := rows.Scan(&s.CategoryID, &s.Name, &budget, &s.Count, &sum, &hi, &lo); err != nil {
			return nil, fmt.Errorf("scan category stats: %w", err)
		}
		s.Budget = core.FromCents(budget)
		s.Spent = core.FromCents(sum)
		s.Max = core.FromCents(hi)
		s.Min = core.FromCents(lo)
		s.Average = averageOf(s.Spent, s.Count)
		out = append(out, s)
	}
	return out, rows.Err()
}

func averageOf(sum decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(count))).Round(2)
}

func (r *sqlReader) CategoryMonthly(ctx context.Context, userID int64, from, to core.Date) ([]core.CategoryMonthAmount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	month := r.d.month("t.date")
	rows, err := r.query(ctx, `
		SELECT t.category_id, `+month+` AS month, COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND c.type = 'expense' AND t.date >= ? AND t.date <= ?
		GROUP BY t.category_id, `+month+`
		ORDER BY t.category_id, month`,
		userID, dateParam(from), dateParam(to))
	if err != nil {
		return nil, fmt.Errorf("get category monthly: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryMonthAmount
	for rows.Next() {
		var (
			m      core.CategoryMonthAmount
			amount int64
		)
		if err := rows.Scan(&m.CategoryID, &m.Month, &amount); err != nil {
			return nil, fmt.Errorf("scan category monthly: %w", err)
		}
		m.Amount = core.FromCents(amount)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *sqlReader) WeekdayExpenses(ctx context.Context, userID int64, from, to core.Date) ([]core.WeekdayAmount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	weekday := r.d.weekday("t.date")
	rows, err := r.query(ctx, `
		SELECT `+weekday+` AS weekday, COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND c.type = 'expense' AND t.date >= ? AND t.date <= ?
		GROUP BY `+weekday+`
		ORDER BY weekday`,
		userID, dateParam(from), dateParam(to))
	if err != nil {
		return nil, fmt.Errorf("get weekday expenses: %w", err)
	}
	defer rows.Close()

	var out []core.WeekdayAmount
	for rows.Next() {
		var (
			w      core.WeekdayAmount
			amount int64
		)
		if err := rows.Scan(&w.Weekday, &amount); err != nil {
			return nil, fmt.Errorf("scan weekday expenses: %w", err)
		}
		w.Amount = core.FromCents(amount)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *sqlReader) Balance(ctx context.Context, userID int64, asOf core.Date) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var balance int64
	err := r.q.QueryRowContext(ctx, r.d.rebind(`
		SELECT COALESCE(SUM(CASE WHEN c.type = 'income' THEN t.amount_cents ELSE -t.amount_cents END), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.date <= ?`),
		userID, dateParam(asOf)).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return core.FromCents(balance), nil
}

// DebtPayments folds category names in Go so matching is Unicode aware on
// every engine.
func (r *sqlReader) DebtPayments(ctx context.Context, userID int64, from, to core.Date, keywords []string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.query(ctx, `
		SELECT c.name, COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND c.type = 'expense' AND t.date >= ? AND t.date <= ?
		GROUP BY c.id, c.name`,
		userID, dateParam(from), dateParam(to))
	if err != nil {
		return decimal.Zero, fmt.Errorf("get debt payments: %w", err)
	}
	defer rows.Close()

	var total int64
	for rows.Next() {
		var (
			name   string
			amount int64
		)
		if err := rows.Scan(&name, &amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan debt payments: %w", err)
		}
		if core.ContainsAnyFold(name, keywords) {
			total += amount
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("get debt payments: %w", err)
	}
	return core.FromCents(total), nil
}

func (r *sqlReader) Goals(ctx context.Context, userID int64) ([]core.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.query(ctx, `
		SELECT id, user_id, title, target_cents, current_cents, target_date, status, priority, created_at
		FROM goals
		WHERE user_id = ?
		ORDER BY target_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("get goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g                     core.Goal
			target, current       int64
			status, priority      string
			targetDate, createdAt any
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &target, &current, &targetDate, &status, &priority, &createdAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.TargetAmount, g.CurrentAmount = core.FromCents(target), core.FromCents(current)
		g.Status, g.Priority = core.GoalStatus(status), core.GoalPriority(priority)
		if g.TargetDate, err = parseDate(targetDate); err != nil {
			return nil, fmt.Errorf("goal %d target date: %w", g.ID, err)
		}
		if g.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("goal %d created at: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
