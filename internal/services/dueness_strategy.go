// Package services composes the store, the calculators and messaging into
// the operations the binaries expose.
package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DuenessChecker decides whether a recurring template must produce a
// transaction on now's calendar day. anchor is the template start date; its
// day (and month, for yearly templates) is the target the schedule follows.
type DuenessChecker interface {
	IsDue(lastExecution, now time.Time, anchor core.Date) bool
}

type DailyChecker struct{}

// IsDue is true once per calendar day.
func (DailyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	return core.Truncate(lastExecution).Before(core.Truncate(now))
}

type WeeklyChecker struct{}

// IsDue is true when seven or more calendar days separate now from the last run.
func (WeeklyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	days := core.Truncate(now).Sub(core.Truncate(lastExecution)).Hours() / 24
	return days >= 7
}

type MonthlyChecker struct{}

// IsDue is true in a month without a run once the anchor day is reached.
// Anchors past the end of a short month fall on its last day.
func (MonthlyChecker) IsDue(lastExecution, now time.Time, anchor core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if sameMonth(lastExecution, now) {
		return false
	}
	return now.Day() >= clampDay(now.Year(), now.Month(), anchor.Day())
}

type YearlyChecker struct{}

// IsDue is true in a year without a run once the anchor month and day are
// reached, with the same end-of-month clamping as MonthlyChecker.
func (YearlyChecker) IsDue(lastExecution, now time.Time, anchor core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() {
		return false
	}
	switch {
	case now.Month() < anchor.Month():
		return false
	case now.Month() > anchor.Month():
		return true
	default:
		return now.Day() >= clampDay(now.Year(), now.Month(), anchor.Day())
	}
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// clampDay limits day to the length of the given month.
func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

var duenessStrategies = map[core.RepetitionTypes]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetDuenessChecker returns the checker for a frequency.
func GetDuenessChecker(frequency core.RepetitionTypes) (DuenessChecker, error) {
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}

// IsDue reports whether re should run on now's day: the template must be
// active that day and its frequency's checker must agree.
func IsDue(re core.RecurringTransaction, now time.Time) (bool, error) {
	if !re.ActiveOn(now) {
		return false, nil
	}
	checker, err := GetDuenessChecker(re.Every)
	if err != nil {
		return false, err
	}
	return checker.IsDue(re.LastExecution, now, re.StartDate), nil
}
