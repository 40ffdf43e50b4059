package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// SQLStore is the relational backend for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLStore opens the database, verifies it answers and applies pending
// migrations. For SQLite dsn is a file path.
func NewSQLStore(ctx context.Context, driverName, dsn string) (*SQLStore, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}

	if driverName == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driverName, err)
	}
	if driverName == DriverSQLite {
		// one writer at a time; readers share the file lock
		db.SetMaxOpenConns(4)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w: %w", ErrUnavailable, err)
	}

	if err := RunMigrations(driverName, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// View opens a read-only transaction and runs fn inside it.
func (s *SQLStore) View(ctx context.Context, fn func(Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &s.dialect.snapshot)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w: %w", ErrUnavailable, err)
	}
	defer tx.Rollback()

	if err := fn(&sqlReader{q: tx, d: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("end snapshot: %w", err)
	}
	return nil
}

func timeParam(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLStore) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx,
		`INSERT INTO categories (user_id, name, type, budget_limit_cents) VALUES (?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), core.ToCents(c.BudgetLimit))
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (s *SQLStore) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	source := t.Source
	if source == "" {
		source = core.SourceManual
	}
	id, err := s.insert(ctx,
		`INSERT INTO transactions (user_id, category_id, amount_cents, date, description, source, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.CategoryID, core.ToCents(t.Amount), dateParam(t.Date), t.Description, source, timeParam(createdAt))
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"user_id", t.UserID,
		"category_id", t.CategoryID,
		"amount_cents", core.ToCents(t.Amount),
		"date", t.Date.String())
	return id, nil
}

func (s *SQLStore) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	status, priority := g.Status, g.Priority
	if status == "" {
		status = core.GoalActive
	}
	if priority == "" {
		priority = core.PriorityMedium
	}
	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	id, err := s.insert(ctx,
		`INSERT INTO goals (user_id, title, target_cents, current_cents, target_date, status, priority, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Title, core.ToCents(g.TargetAmount), core.ToCents(g.CurrentAmount), dateParam(g.TargetDate),
		string(status), string(priority), timeParam(createdAt))
	if err != nil {
		return 0, fmt.Errorf("create goal: %w", err)
	}
	return id, nil
}

func (s *SQLStore) CreateRecurring(ctx context.Context, re core.RecurringTransaction) (int64, error) {
	if err := re.Validate(); err != nil {
		return 0, err
	}
	id, err := s.insert(ctx,
		`INSERT INTO recurring_transactions (user_id, category_id, amount_cents, description, frequency, start_date, end_date, last_execution_date, active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		re.UserID, re.CategoryID, core.ToCents(re.Amount), re.Description, string(re.Every),
		dateParam(re.StartDate), nullableDate(re.EndDate), timeParam(re.LastExecution), re.Active)
	if err != nil {
		return 0, fmt.Errorf("create recurring transaction: %w", err)
	}
	return id, nil
}

// ActiveRecurring returns templates that are active on now's calendar day.
func (s *SQLStore) ActiveRecurring(ctx context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	day := dateParam(core.DateOf(now))
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`
		SELECT id, user_id, category_id, amount_cents, description, frequency, start_date, end_date, last_execution_date, active
		FROM recurring_transactions
		WHERE active = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY id`), true, day, day)
	if err != nil {
		return nil, fmt.Errorf("get active recurring transactions: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		var (
			re                        core.RecurringTransaction
			amount                    int64
			every                     string
			start, end, lastExecution any
		)
		if err := rows.Scan(&re.ID, &re.UserID, &re.CategoryID, &amount, &re.Description, &every, &start, &end, &lastExecution, &re.Active); err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		re.Amount = core.FromCents(amount)
		re.Every = core.RepetitionTypes(every)
		if re.StartDate, err = parseDate(start); err != nil {
			return nil, fmt.Errorf("recurring %d start date: %w", re.ID, err)
		}
		if re.EndDate, err = parseDate(end); err != nil {
			return nil, fmt.Errorf("recurring %d end date: %w", re.ID, err)
		}
		if re.LastExecution, err = parseTime(lastExecution); err != nil {
			return nil, fmt.Errorf("recurring %d last execution: %w", re.ID, err)
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkRecurringExecuted(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE recurring_transactions SET last_execution_date = ? WHERE id = ?`), timeParam(at), id)
	if err != nil {
		return fmt.Errorf("update last execution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last execution: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recurring transaction %d: %w", id, ErrNotFound)
	}
	return nil
}

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
