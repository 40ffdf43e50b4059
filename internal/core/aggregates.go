package core

import "github.com/shopspring/decimal"

// Aggregate rows returned by the store. They carry only what a query
// produced; zero filling and derived figures are computed by analytics.
type (
	Totals struct {
		Income  decimal.Decimal
		Expense decimal.Decimal
	}

	// MonthAmount is one calendar month with activity.
	MonthAmount struct {
		Month   string // YYYY-MM
		Income  decimal.Decimal
		Expense decimal.Decimal
	}

	// CategoryStat summarizes the expense transactions of one category.
	// Categories without spending are still reported with zero figures.
	CategoryStat struct {
		CategoryID int64
		Name       string
		Budget     decimal.Decimal
		Spent      decimal.Decimal
		Count      int
		Average    decimal.Decimal
		Max        decimal.Decimal
		Min        decimal.Decimal
	}

	CategoryMonthAmount struct {
		CategoryID int64
		Month      string
		Amount     decimal.Decimal
	}

	// WeekdayAmount uses Sunday=1 through Saturday=7.
	WeekdayAmount struct {
		Weekday int
		Amount  decimal.Decimal
	}
)
