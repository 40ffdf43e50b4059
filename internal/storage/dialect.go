package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect isolates the few SQL fragments that differ between engines.
type dialect struct {
	driver string
	// format strings taking a single date column
	monthExpr   string
	weekdayExpr string
	snapshot    sql.TxOptions
	numbered    bool
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driver:      DriverSQLite,
		monthExpr:   "strftime('%%Y-%%m', %s)",
		weekdayExpr: "CAST(strftime('%%w', %s) AS INTEGER) + 1",
		// BEGIN DEFERRED; the read lock is taken on first query and held to commit
		snapshot: sql.TxOptions{ReadOnly: true},
	},
	DriverPostgres: {
		driver:      DriverPostgres,
		monthExpr:   "to_char(%s, 'YYYY-MM')",
		weekdayExpr: "CAST(EXTRACT(DOW FROM %s) AS INTEGER) + 1",
		snapshot:    sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead},
		numbered:    true,
	},
}

func dialectFor(driver string) (dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
	return d, nil
}

func (d dialect) month(col string) string   { return fmt.Sprintf(d.monthExpr, col) }
func (d dialect) weekday(col string) string { return fmt.Sprintf(d.weekdayExpr, col) }

// rebind rewrites ? placeholders to $1, $2, ... for engines that need it.
// Queries in this package never carry a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
