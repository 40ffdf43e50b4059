package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// MemoryStore is a concurrency-safe in-memory backend. View holds the read
// lock for its whole duration, so fn must not write to the same store.
type MemoryStore struct {
	mu           sync.RWMutex
	nextID       int64
	categories   map[int64]core.Category
	transactions []core.Transaction
	goals        []core.Goal
	recurring    map[int64]core.RecurringTransaction
	closed       bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[int64]core.Category),
		recurring:  make(map[int64]core.RecurringTransaction),
	}
}

var errClosed = errors.New("memory store closed")

func unavailable() error {
	return fmt.Errorf("%w: %w", ErrUnavailable, errClosed)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return unavailable()
	}
	return nil
}

func (m *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("begin snapshot: %w: %w", ErrUnavailable, errClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(memoryReader{m})
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) CreateCategory(_ context.Context, c core.Category) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, unavailable()
	}
	c.ID = m.id()
	m.categories[c.ID] = c
	return c.ID, nil
}

func (m *MemoryStore) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, unavailable()
	}
	if _, ok := m.categories[t.CategoryID]; !ok {
		return 0, fmt.Errorf("category %d: %w", t.CategoryID, ErrNotFound)
	}
	t.ID = m.id()
	t.Date = core.DateOf(t.Date.Time)
	t.Amount = core.FromCents(core.ToCents(t.Amount))
	if t.Source == "" {
		t.Source = core.SourceManual
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.transactions = append(m.transactions, t)
	return t.ID, nil
}

func (m *MemoryStore) CreateGoal(_ context.Context, g core.Goal) (int64, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, unavailable()
	}
	g.ID = m.id()
	if g.Status == "" {
		g.Status = core.GoalActive
	}
	if g.Priority == "" {
		g.Priority = core.PriorityMedium
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	m.goals = append(m.goals, g)
	return g.ID, nil
}

func (m *MemoryStore) CreateRecurring(_ context.Context, re core.RecurringTransaction) (int64, error) {
	if err := re.Validate(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, unavailable()
	}
	re.ID = m.id()
	m.recurring[re.ID] = re
	return re.ID, nil
}

func (m *MemoryStore) ActiveRecurring(_ context.Context, now time.Time) ([]core.RecurringTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, unavailable()
	}
	var out []core.RecurringTransaction
	for _, re := range m.recurring {
		if re.ActiveOn(now) {
			out = append(out, re)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) MarkRecurringExecuted(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return unavailable()
	}
	re, ok := m.recurring[id]
	if !ok {
		return fmt.Errorf("recurring transaction %d: %w", id, ErrNotFound)
	}
	re.LastExecution = at.UTC()
	m.recurring[id] = re
	return nil
}

// memoryReader is only used while View holds the read lock.
type memoryReader struct {
	m *MemoryStore
}

// each visits the user's transactions dated within [from, to] together with
// their category.
func (r memoryReader) each(userID int64, from, to core.Date, fn func(core.Transaction, core.Category)) {
	for _, t := range r.m.transactions {
		if t.UserID != userID || t.Date.Before(from.Time) || t.Date.After(to.Time) {
			continue
		}
		c, ok := r.m.categories[t.CategoryID]
		if !ok {
			continue
		}
		fn(t, c)
	}
}

func (r memoryReader) Totals(_ context.Context, userID int64, from, to core.Date) (core.Totals, error) {
	var totals core.Totals
	r.each(userID, from, to, func(t core.Transaction, c core.Category) {
		if c.Type == core.Income {
			totals.Income = totals.Income.Add(t.Amount)
		} else {
			totals.Expense = totals.Expense.Add(t.Amount)
		}
	})
	return totals, nil
}

func (r memoryReader) MonthlyTotals(_ context.Context, userID int64, from, to core.Date) ([]core.MonthAmount, error) {
	byMonth := make(map[string]*core.MonthAmount)
	r.each(userID, from, to, func(t core.Transaction, c core.Category) {
		key := t.Date.Format(core.MonthLayout)
		row, ok := byMonth[key]
		if !ok {
			row = &core.MonthAmount{Month: key}
			byMonth[key] = row
		}
		if c.Type == core.Income {
			row.Income = row.Income.Add(t.Amount)
		} else {
			row.Expense = row.Expense.Add(t.Amount)
		}
	})

	out := make([]core.MonthAmount, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (r memoryReader) CategoryStats(_ context.Context, userID int64, from, to core.Date) ([]core.CategoryStat, error) {
	stats := make(map[int64]*core.CategoryStat)
	for _, c := range r.m.categories {
		if c.UserID != userID || c.Type != core.Expense {
			continue
		}
		stats[c.ID] = &core.CategoryStat{CategoryID: c.ID, Name: c.Name, Budget: c.BudgetLimit}
	}
	r.each(userID, from, to, func(t core.Transaction, c core.Category) {
		s, ok := stats[c.ID]
		if !ok {
			return
		}
		if s.Count == 0 || t.Amount.GreaterThan(s.Max) {
			s.Max = t.Amount
		}
		if s.Count == 0 || t.Amount.LessThan(s.Min) {
			s.Min = t.Amount
		}
		s.Count++
		s.Spent = s.Spent.Add(t.Amount)
	})

	out := make([]core.CategoryStat, 0, len(stats))
	for _, s := range stats {
		s.Average = averageOf(s.Spent, s.Count)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (r memoryReader) CategoryMonthly(_ context.Context, userID int64, from, to core.Date) ([]core.CategoryMonthAmount, error) {
	type key struct {
		category int64
		month    string
	}
	sums := make(map[key]decimal.Decimal)
	r.each(userID, from, to, func(t core.Transaction, c core.Category) {
		if c.Type != core.Expense {
			return
		}
		k := key{c.ID, t.Date.Format(core.MonthLayout)}
		sums[k] = sums[k].Add(t.Amount)
	})

	out := make([]core.CategoryMonthAmount, 0, len(sums))
	for k, amount := range sums {
		out = append(out, core.CategoryMonthAmount{CategoryID: k.category, Month: k.month, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CategoryID != out[j].CategoryID {
			return out[i].CategoryID < out[j].CategoryID
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (r memoryReader) WeekdayExpenses(_ context.Context, userID int64, from, to core.Date) ([]core.WeekdayAmount, error) {
	var sums [7]decimal.Decimal
	var seen [7]bool
	r.each(userID, from, to, func(t core.Transaction, c core.Category) {
		if c.Type != core.Expense {
			return
		}
		wd := int(t.Date.Weekday())
		sums[wd] = sums[wd].Add(t.Amount)
		seen[wd] = true
	})

	var out []core.WeekdayAmount
	for i := range sums {
		if seen[i] {
			out = append(out, core.WeekdayAmount{Weekday: i + 1, Amount: sums[i]})
		}
	}
	return out, nil
}

func (r memoryReader) Balance(_ context.Context, userID int64, asOf core.Date) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, t := range r.m.transactions {
		if t.UserID != userID || t.Date.After(asOf.Time) {
			continue
		}
		c, ok := r.m.categories[t.CategoryID]
		if !ok {
			continue
		}
		if c.Type == core.Income {
			balance = balance.Add(t.Amount)
		} else {
			balance = balance.Sub(t.Amount)
		}
	}
	return balance, nil
}

func (r memoryReader) DebtPayments(_ context.Context, userID int64, from, to core.Date, keywords []string) (decimal.Decimal, error) {
	total := decimal.Zero
	r.each(userID, from, to, func(t core.Transaction, c core.Category) {
		if c.Type == core.Expense && core.ContainsAnyFold(c.Name, keywords) {
			total = total.Add(t.Amount)
		}
	})
	return total, nil
}

func (r memoryReader) Goals(_ context.Context, userID int64) ([]core.Goal, error) {
	var out []core.Goal
	for _, g := range r.m.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TargetDate.Equal(out[j].TargetDate.Time) {
			return out[i].TargetDate.Before(out[j].TargetDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
