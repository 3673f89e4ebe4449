package google

import (
	"fmt"
	"strconv"
	"strings"

	"smartledger/internal/core"
)

// Header is the first row written to a freshly created yearly sheet.
var Header = []any{"日期", "金額", "類別", "備註", "ID"}

// expenseRow lays an expense out as date | amount | category | note | id.
func expenseRow(e core.Expense) []any {
	return []any{
		e.Date,
		strconv.FormatFloat(e.Amount, 'f', -1, 64),
		string(e.Category),
		e.Note,
		e.ID,
	}
}

// parseIDs collects the numeric ids of an id column. Header rows and blank
// or non-numeric cells are skipped.
func parseIDs(values [][]interface{}) map[int64]bool {
	ids := make(map[int64]bool, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids[id] = true
	}
	return ids
}

// expenseYear returns the year of a YYYY-MM-DD date.
func expenseYear(date string) (int, error) {
	if len(date) < 4 {
		return 0, fmt.Errorf("invalid expense date %q", date)
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, fmt.Errorf("invalid expense date %q: %w", date, err)
	}
	return y, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
