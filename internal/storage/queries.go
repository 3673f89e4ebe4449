package storage

import (
	"context"
	"database/sql"
)

// Expense is the expenses row as stored.
type Expense struct {
	ID        int64
	Date      string
	Amount    float64
	Category  string
	Note      string
	CreatedAt string
	SyncedAt  sql.NullString
	SyncError sql.NullString
}

const expenseColumns = `id, date, amount, category, note, created_at, synced_at, sync_error`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var e Expense
	err := row.Scan(
		&e.ID,
		&e.Date,
		&e.Amount,
		&e.Category,
		&e.Note,
		&e.CreatedAt,
		&e.SyncedAt,
		&e.SyncError,
	)
	return e, err
}

func (q *Queries) listExpenses(ctx context.Context, query string, args ...interface{}) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `INSERT INTO expenses (date, amount, category, note, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	Date      string
	Amount    float64
	Category  string
	Note      string
	CreatedAt string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.Date,
		arg.Amount,
		arg.Category,
		arg.Note,
		arg.CreatedAt,
	)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses
ORDER BY date DESC, id DESC`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	return q.listExpenses(ctx, listExpenses)
}

const listExpensesBetween = `SELECT ` + expenseColumns + ` FROM expenses
WHERE date BETWEEN ? AND ?
ORDER BY date DESC, id DESC`

type ListExpensesBetweenParams struct {
	Start string
	End   string
}

func (q *Queries) ListExpensesBetween(ctx context.Context, arg ListExpensesBetweenParams) ([]Expense, error) {
	return q.listExpenses(ctx, listExpensesBetween, arg.Start, arg.End)
}

const getPendingSyncExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE synced_at IS NULL
ORDER BY sync_attempts ASC, id ASC
LIMIT ?`

func (q *Queries) GetPendingSyncExpenses(ctx context.Context, limit int64) ([]Expense, error) {
	return q.listExpenses(ctx, getPendingSyncExpenses, limit)
}

const markExpenseSynced = `UPDATE expenses SET synced_at = ?, sync_error = NULL WHERE id = ?`

func (q *Queries) MarkExpenseSynced(ctx context.Context, syncedAt string, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExpenseSynced, syncedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markExpenseSyncError = `UPDATE expenses SET sync_error = ?, sync_attempts = sync_attempts + 1 WHERE id = ?`

func (q *Queries) MarkExpenseSyncError(ctx context.Context, msg string, id int64) error {
	_, err := q.db.ExecContext(ctx, markExpenseSyncError, msg, id)
	return err
}

const deleteAllExpenses = `DELETE FROM expenses`

func (q *Queries) DeleteAllExpenses(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAllExpenses)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpensesBetween = `DELETE FROM expenses WHERE date BETWEEN ? AND ?`

func (q *Queries) DeleteExpensesBetween(ctx context.Context, arg ListExpensesBetweenParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpensesBetween, arg.Start, arg.End)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createModelOutput = `INSERT INTO model_outputs (expense_id, raw, corrected, created_at)
VALUES (?, ?, ?, ?)`

type CreateModelOutputParams struct {
	ExpenseID int64
	Raw       string
	Corrected bool
	CreatedAt string
}

func (q *Queries) CreateModelOutput(ctx context.Context, arg CreateModelOutputParams) error {
	_, err := q.db.ExecContext(ctx, createModelOutput,
		arg.ExpenseID,
		arg.Raw,
		arg.Corrected,
		arg.CreatedAt,
	)
	return err
}
