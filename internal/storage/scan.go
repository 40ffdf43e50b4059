package storage

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	core.DateLayout,
}

// parseTime accepts what either driver hands back for a date or timestamp
// column: a time.Time from lib/pq, text from SQLite, or NULL.
func parseTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case []byte:
		return parseTimeString(string(v))
	case string:
		return parseTimeString(v)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", src)
	}
}

func parseTimeString(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q", s)
}

func parseDate(src any) (core.Date, error) {
	t, err := parseTime(src)
	if err != nil || t.IsZero() {
		return core.Date{}, err
	}
	return core.DateOf(t), nil
}

// dateParam renders a date bound the way both engines compare it.
func dateParam(d core.Date) string {
	return d.Format(core.DateLayout)
}

// nullableDate stores a zero date as NULL.
func nullableDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return dateParam(d)
}
