package storage

import (
	"context"
	"errors"

	"smartledger/internal/core"
)

var ErrNotFound = errors.New("expense not found")

// Store persists expenses. Date bounds are inclusive YYYY-MM-DD strings and
// listings are ordered by date then id, newest first.
type Store interface {
	Insert(ctx context.Context, date string, amount float64, category core.Category, note string) (int64, error)
	Get(ctx context.Context, id int64) (core.Expense, error)
	ListAll(ctx context.Context) ([]core.Expense, error)
	ListBetween(ctx context.Context, start, end string) ([]core.Expense, error)

	DeleteAll(ctx context.Context) (int64, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	DeleteByRange(ctx context.Context, start, end string) (int64, error)

	// SaveModelOutput keeps the generator text an expense was built from.
	SaveModelOutput(ctx context.Context, expenseID int64, raw string, corrected bool) error

	ListPendingSync(ctx context.Context, limit int) ([]core.Expense, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64, cause error) error

	Close() error
}
