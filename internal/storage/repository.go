package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"smartledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

func (r *SQLiteRepository) Insert(ctx context.Context, date string, amount float64, category core.Category, note string) (int64, error) {
	e, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Date:      date,
		Amount:    amount,
		Category:  string(category),
		Note:      note,
		CreatedAt: r.timestamp(),
	})
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"date", e.Date,
		"amount", e.Amount,
		"category", e.Category)

	return e.ID, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return toCore(e), nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return toCoreSlice(rows), nil
}

func (r *SQLiteRepository) ListBetween(ctx context.Context, start, end string) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesBetween(ctx, ListExpensesBetweenParams{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("list expenses between %s and %s: %w", start, end, err)
	}
	return toCoreSlice(rows), nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteAllExpenses(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all expenses: %w", err)
	}
	slog.WarnContext(ctx, "All expenses deleted", "count", n)
	return n, nil
}

// DeleteByIDs removes the given ids in one transaction. Unknown ids are ignored.
func (r *SQLiteRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	var total int64
	for _, id := range ids {
		n, err := q.DeleteExpense(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("delete expense %d: %w", id, err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Expenses deleted", "requested", len(ids), "deleted", total)
	return total, nil
}

func (r *SQLiteRepository) DeleteByRange(ctx context.Context, start, end string) (int64, error) {
	n, err := r.queries.DeleteExpensesBetween(ctx, ListExpensesBetweenParams{Start: start, End: end})
	if err != nil {
		return 0, fmt.Errorf("delete expenses between %s and %s: %w", start, end, err)
	}
	slog.InfoContext(ctx, "Expenses deleted by range", "start", start, "end", end, "deleted", n)
	return n, nil
}

func (r *SQLiteRepository) SaveModelOutput(ctx context.Context, expenseID int64, raw string, corrected bool) error {
	err := r.queries.CreateModelOutput(ctx, CreateModelOutputParams{
		ExpenseID: expenseID,
		Raw:       raw,
		Corrected: corrected,
		CreatedAt: r.timestamp(),
	})
	if err != nil {
		return fmt.Errorf("save model output for expense %d: %w", expenseID, err)
	}
	return nil
}

// ListPendingSync returns expenses that still need to be exported, fewest failed
// attempts first, then oldest.
func (r *SQLiteRepository) ListPendingSync(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.queries.GetPendingSyncExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	return toCoreSlice(rows), nil
}

// MarkSynced marks an expense as successfully synced
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	n, err := r.queries.MarkExpenseSynced(ctx, r.timestamp(), id)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// MarkSyncError records why the last sync attempt failed. The expense stays
// pending but moves behind rows with fewer failed attempts.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if err := r.queries.MarkExpenseSyncError(ctx, msg, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}

	slog.WarnContext(ctx, "Expense marked with sync error", "id", id, "error", msg)
	return nil
}

func toCore(e Expense) core.Expense {
	created, _ := time.Parse(time.RFC3339, e.CreatedAt)
	return core.Expense{
		ID:        e.ID,
		Date:      e.Date,
		Amount:    e.Amount,
		Category:  core.Category(e.Category),
		Note:      e.Note,
		CreatedAt: created,
	}
}

func toCoreSlice(rows []Expense) []core.Expense {
	out := make([]core.Expense, len(rows))
	for i, e := range rows {
		out[i] = toCore(e)
	}
	return out
}
