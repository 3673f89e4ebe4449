package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"smartledger/internal/core"
	ports "smartledger/internal/sheets"
)

// Sink records exported rows in memory, grouped by year. It stands in for
// the spreadsheet when none is configured.
type Sink struct {
	mu   sync.Mutex
	rows map[int][]core.Expense
}

var _ ports.RecordSink = (*Sink)(nil)

func New() *Sink {
	return &Sink{rows: make(map[int][]core.Expense)}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Sink) Append(_ context.Context, e core.Expense) (string, error) {
	year, err := yearOf(e.Date)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[year] = append(s.rows[year], e)
	return fmt.Sprintf("mem:%d:%d", year, len(s.rows[year])), nil
}

func (s *Sink) ExportedIDs(_ context.Context, year int) (map[int64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[int64]bool, len(s.rows[year]))
	for _, e := range s.rows[year] {
		ids[e.ID] = true
	}
	return ids, nil
}

// Rows returns a copy of the rows exported for year.
func (s *Sink) Rows(year int) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.rows[year]...)
}

func yearOf(date string) (int, error) {
	if len(date) < 4 {
		return 0, fmt.Errorf("invalid expense date %q", date)
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, fmt.Errorf("invalid expense date %q: %w", date, err)
	}
	return y, nil
}
