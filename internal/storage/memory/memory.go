package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"smartledger/internal/core"
	"smartledger/internal/storage"
)

type row struct {
	expense   core.Expense
	synced    bool
	syncError string
	attempts  int
}

// ModelOutput is an audited generator response.
type ModelOutput struct {
	ExpenseID int64
	Raw       string
	Corrected bool
}

// Store keeps expenses in process memory. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*row
	outputs []ModelOutput
	now     func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int64]*row), now: time.Now}
}

func (s *Store) Insert(_ context.Context, date string, amount float64, category core.Category, note string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.rows[s.nextID] = &row{expense: core.Expense{
		ID:        s.nextID,
		Date:      date,
		Amount:    amount,
		Category:  category,
		Note:      note,
		CreatedAt: s.now().UTC(),
	}}
	return s.nextID, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return core.Expense{}, storage.ErrNotFound
	}
	return r.expense, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Expense, error) {
	return s.filter(func(core.Expense) bool { return true }), nil
}

func (s *Store) ListBetween(_ context.Context, start, end string) ([]core.Expense, error) {
	return s.filter(inRange(start, end)), nil
}

func (s *Store) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.rows))
	s.rows = make(map[int64]*row)
	s.outputs = nil
	return n, nil
}

func (s *Store) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			delete(s.rows, id)
			n++
		}
	}
	s.pruneOutputs()
	return n, nil
}

func (s *Store) DeleteByRange(_ context.Context, start, end string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match := inRange(start, end)
	var n int64
	for id, r := range s.rows {
		if match(r.expense) {
			delete(s.rows, id)
			n++
		}
	}
	s.pruneOutputs()
	return n, nil
}

func (s *Store) SaveModelOutput(_ context.Context, expenseID int64, raw string, corrected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[expenseID]; !ok {
		return storage.ErrNotFound
	}
	s.outputs = append(s.outputs, ModelOutput{ExpenseID: expenseID, Raw: raw, Corrected: corrected})
	return nil
}

// ModelOutputs returns the audited responses for expenseID.
func (s *Store) ModelOutputs(expenseID int64) []ModelOutput {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ModelOutput
	for _, o := range s.outputs {
		if o.ExpenseID == expenseID {
			out = append(out, o)
		}
	}
	return out
}

func (s *Store) ListPendingSync(_ context.Context, limit int) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []*row
	for _, r := range s.rows {
		if !r.synced {
			pending = append(pending, r)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].attempts != pending[j].attempts {
			return pending[i].attempts < pending[j].attempts
		}
		return pending[i].expense.ID < pending[j].expense.ID
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]core.Expense, len(pending))
	for i, r := range pending {
		out[i] = r.expense
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.synced = true
	r.syncError = ""
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, id int64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.syncError = "unknown error"
	if cause != nil {
		r.syncError = cause.Error()
	}
	r.attempts++
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) filter(keep func(core.Expense) bool) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.rows))
	for _, r := range s.rows {
		if keep(r.expense) {
			out = append(out, r.expense)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// pruneOutputs drops audit rows of deleted expenses. Callers hold mu.
func (s *Store) pruneOutputs() {
	kept := s.outputs[:0]
	for _, o := range s.outputs {
		if _, ok := s.rows[o.ExpenseID]; ok {
			kept = append(kept, o)
		}
	}
	s.outputs = kept
}

func inRange(start, end string) func(core.Expense) bool {
	return func(e core.Expense) bool { return e.Date >= start && e.Date <= end }
}
