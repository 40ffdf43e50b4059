// Package storage owns persistence: a read-snapshot accessor for analytics
// and the write path used by the recurring processor. SQL (SQLite or
// PostgreSQL) and in-memory implementations are provided.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var (
	// ErrUnavailable wraps failures to reach the store or open a snapshot.
	ErrUnavailable = errors.New("store unavailable")
	ErrNotFound    = errors.New("not found")
)

// Store hands out consistent read snapshots.
type Store interface {
	// View runs fn against one read snapshot. Every query fn issues sees the
	// same point in time.
	View(ctx context.Context, fn func(Reader) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Reader runs aggregate queries inside a snapshot. Date bounds are inclusive.
type Reader interface {
	Totals(ctx context.Context, userID int64, from, to core.Date) (core.Totals, error)
	// MonthlyTotals returns only months with activity, ascending.
	MonthlyTotals(ctx context.Context, userID int64, from, to core.Date) ([]core.MonthAmount, error)
	// CategoryStats reports every expense category of the user, spent or not.
	CategoryStats(ctx context.Context, userID int64, from, to core.Date) ([]core.CategoryStat, error)
	CategoryMonthly(ctx context.Context, userID int64, from, to core.Date) ([]core.CategoryMonthAmount, error)
	WeekdayExpenses(ctx context.Context, userID int64, from, to core.Date) ([]core.WeekdayAmount, error)
	// Balance is lifetime income minus expense up to and including asOf.
	Balance(ctx context.Context, userID int64, asOf core.Date) (decimal.Decimal, error)
	// DebtPayments sums expense categories whose name contains a keyword.
	DebtPayments(ctx context.Context, userID int64, from, to core.Date, keywords []string) (decimal.Decimal, error)
	Goals(ctx context.Context, userID int64) ([]core.Goal, error)
}

// RecurringStore is the write side the recurring processor needs.
type RecurringStore interface {
	ActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	MarkRecurringExecuted(ctx context.Context, id int64, at time.Time) error
}

// Writer seeds the store. It backs the recurring processor and tests.
type Writer interface {
	RecurringStore
	CreateCategory(ctx context.Context, c core.Category) (int64, error)
	CreateGoal(ctx context.Context, g core.Goal) (int64, error)
	CreateRecurring(ctx context.Context, re core.RecurringTransaction) (int64, error)
}

// Backend is a complete store implementation.
type Backend interface {
	Store
	Writer
}

var (
	_ Backend = (*SQLStore)(nil)
	_ Backend = (*MemoryStore)(nil)
)
