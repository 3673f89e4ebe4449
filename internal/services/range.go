package services

import (
	"errors"
	"fmt"
	"time"

	"smartledger/internal/core"
)

var ErrInvalidRange = errors.New("invalid date range")

// Range is an inclusive date interval. The zero Range means all dates.
type Range struct {
	Start string
	End   string
}

func (r Range) IsZero() bool { return r.Start == "" && r.End == "" }

func (r Range) Validate() error {
	if r.IsZero() {
		return nil
	}
	if !core.ValidDate(r.Start) || !core.ValidDate(r.End) {
		return fmt.Errorf("%w: %q to %q", ErrInvalidRange, r.Start, r.End)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// MonthRange covers every day of month, given as YYYY-MM.
func MonthRange(month string) (Range, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return Range{}, fmt.Errorf("%w: month %q", ErrInvalidRange, month)
	}
	last := t.AddDate(0, 1, -1)
	return Range{Start: t.Format(core.DateLayout), End: last.Format(core.DateLayout)}, nil
}

// ExportFilename names a CSV download for r.
func ExportFilename(r Range) string {
	if r.IsZero() {
		return "expenses_all.csv"
	}
	return fmt.Sprintf("expenses_%s_%s.csv", r.Start, r.End)
}
