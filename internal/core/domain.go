package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "income"
	Expense CategoryType = "expense"
)

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalOverdue   GoalStatus = "overdue"
)

const (
	PriorityLow    GoalPriority = "low"
	PriorityMedium GoalPriority = "medium"
	PriorityHigh   GoalPriority = "high"
)

// Transaction sources.
const (
	SourceManual    = "manual"
	SourceRecurring = "recurring"
)

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

type (
	CategoryType    string
	GoalStatus      string
	GoalPriority    string
	RepetitionTypes string

	Transaction struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user_id"`
		CategoryID  int64           `json:"category_id"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Source      string          `json:"source"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Category struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"user_id"`
		Name        string          `json:"name"`
		Type        CategoryType    `json:"type"`
		BudgetLimit decimal.Decimal `json:"budget_limit"`
	}

	Goal struct {
		ID            int64           `json:"id"`
		UserID        int64           `json:"user_id"`
		Title         string          `json:"title"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		TargetDate    Date            `json:"target_date"`
		CreatedAt     time.Time       `json:"created_at"`
		Status        GoalStatus      `json:"status"`
		Priority      GoalPriority    `json:"priority"`
	}

	RecurringTransaction struct {
		ID            int64           `json:"id"`
		UserID        int64           `json:"user_id"`
		CategoryID    int64           `json:"category_id"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Every         RepetitionTypes `json:"frequency"`
		StartDate     Date            `json:"start_date"`
		EndDate       Date            `json:"end_date"`
		LastExecution time.Time       `json:"last_execution"`
		Active        bool            `json:"active"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidUser      = errors.New("invalid user id")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyTitle       = errors.New("empty goal title")
	ErrInvalidRange     = errors.New("invalid date range")
)

func (t CategoryType) IsValid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if t.UserID <= 0 {
		return ErrInvalidUser
	}
	if t.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if c.UserID <= 0 {
		return ErrInvalidUser
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidCategory
	}
	if !c.Type.IsValid() {
		return errors.New("invalid category type")
	}
	if c.BudgetLimit.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (g Goal) Validate() error {
	if g.UserID <= 0 {
		return ErrInvalidUser
	}
	if strings.TrimSpace(g.Title) == "" {
		return ErrEmptyTitle
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return g.TargetDate.Validate()
}

func (re RecurringTransaction) Validate() error {
	if re.UserID <= 0 {
		return ErrInvalidUser
	}
	if re.CategoryID <= 0 {
		return ErrInvalidCategory
	}
	if err := re.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return errors.New("invalid end date: " + err.Error())
		}
		if re.EndDate.Before(re.StartDate.Time) {
			return errors.New("end date must be after start date")
		}
	}

	switch re.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return errors.New("invalid repetition type")
	}

	if len(strings.TrimSpace(re.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(re.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !re.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ActiveOn reports whether the template should generate transactions on day.
func (re RecurringTransaction) ActiveOn(day time.Time) bool {
	if !re.Active {
		return false
	}
	d := Truncate(day)
	if d.Before(re.StartDate.Time) {
		return false
	}
	return re.EndDate.IsZero() || !d.After(re.EndDate.Time)
}
