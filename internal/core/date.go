package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// MonthLayout keys per-month aggregates.
const MonthLayout = "2006-01"

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t.
func DateOf(t time.Time) Date {
	return Date{Time: Truncate(t)}
}

// Truncate returns midnight UTC of the calendar day t falls on.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		*d = Date{Time: t}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// RangePreset names one of the selectable trailing windows.
type RangePreset string

const (
	Range3Months  RangePreset = "3_months"
	Range6Months  RangePreset = "6_months"
	Range12Months RangePreset = "12_months"
	Range2Years   RangePreset = "2_years"

	DefaultRange = Range12Months

	// MaxRangeYears bounds explicit ranges.
	MaxRangeYears = 10
)

var presetMonths = map[RangePreset]int{
	Range3Months:  3,
	Range6Months:  6,
	Range12Months: 12,
	Range2Years:   24,
}

// Months returns the window length, or 0 for an unknown preset.
func (p RangePreset) Months() int {
	return presetMonths[p]
}

func (p RangePreset) IsValid() bool {
	return p.Months() > 0
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	From Date `json:"start_date"`
	To   Date `json:"end_date"`
}

func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Days counts the days in the range, both endpoints included.
func (r DateRange) Days() int {
	if r.To.Before(r.From.Time) {
		return 0
	}
	return int(r.To.Sub(r.From.Time).Hours()/24) + 1
}

// MonthKeys lists every calendar month touched by the range in ascending order.
func (r DateRange) MonthKeys() []string {
	if r.To.Before(r.From.Time) {
		return nil
	}
	cur := time.Date(r.From.Year(), r.From.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(r.To.Year(), r.To.Month(), 1, 0, 0, 0, 0, time.UTC)
	var keys []string
	for !cur.After(end) {
		keys = append(keys, cur.Format(MonthLayout))
		cur = cur.AddDate(0, 1, 0)
	}
	return keys
}

// Previous returns the range of equal length that ends the day before r starts.
func (r DateRange) Previous() DateRange {
	days := r.Days()
	to := r.From.AddDate(0, 0, -1)
	from := to.AddDate(0, 0, -(days - 1))
	return DateRange{From: Date{Time: from}, To: Date{Time: to}}
}

// TrailingMonths returns a range of n calendar months ending on the day of now,
// the current month included.
func TrailingMonths(now time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	to := Truncate(now)
	from := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	return DateRange{From: Date{Time: from}, To: Date{Time: to}}
}

// ResolveRange turns request parameters into a range. Explicit dates win over a
// preset; anything invalid or longer than MaxRangeYears falls back to the
// default trailing window.
func ResolveRange(now time.Time, preset, start, end string) (DateRange, RangePreset) {
	if strings.TrimSpace(start) != "" && strings.TrimSpace(end) != "" {
		from, errFrom := ParseDate(start)
		to, errTo := ParseDate(end)
		r := DateRange{From: from, To: to}
		if errFrom == nil && errTo == nil && r.Validate() == nil &&
			!r.To.After(r.From.AddDate(MaxRangeYears, 0, 0)) {
			return r, ""
		}
	}

	p := RangePreset(strings.TrimSpace(preset))
	if !p.IsValid() {
		p = DefaultRange
	}
	return TrailingMonths(now, p.Months()), p
}

// Request is the inbound descriptor every analytics operation takes.
type Request struct {
	UserID int64
	Range  DateRange
	Preset RangePreset
}

func (r Request) Validate() error {
	if r.UserID <= 0 {
		return ErrInvalidUser
	}
	return r.Range.Validate()
}
