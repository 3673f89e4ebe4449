package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"smartledger/internal/amqp"
	"smartledger/internal/core"
	"smartledger/internal/sheets"
	"smartledger/internal/storage"
)

// DefaultConcurrency bounds parallel sheet appends while draining a batch.
const DefaultConcurrency = 4

// SyncWorker exports stored expenses to the spreadsheet.
type SyncWorker struct {
	store       storage.Store
	sink        sheets.RecordSink
	batchSize   int
	concurrency int
}

func NewSyncWorker(store storage.Store, sink sheets.RecordSink, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:       store,
		sink:        sink,
		batchSize:   batchSize,
		concurrency: DefaultConcurrency,
	}
}

// HandleSyncMessage processes a single expense sync message from AMQP.
// Expenses deleted before the message arrived are acknowledged and skipped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	expense, err := w.store.Get(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Expense no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	exported, err := w.exportedIDs(ctx, expense.Date)
	if err != nil {
		return err
	}
	return w.syncExpense(ctx, expense, exported)
}

// ProcessPendingExpenses drains one batch of unsynced expenses. It is the
// backup path for lost AMQP messages and returns how many rows were synced.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) (int, error) {
	pending, err := w.store.ListPendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	exportedByYear := make(map[int]map[int64]bool)
	for _, e := range pending {
		year, err := yearOf(e.Date)
		if err != nil {
			return 0, err
		}
		if _, ok := exportedByYear[year]; ok {
			continue
		}
		ids, err := w.sink.ExportedIDs(ctx, year)
		if err != nil {
			return 0, fmt.Errorf("read exported ids for %d: %w", year, err)
		}
		exportedByYear[year] = ids
	}

	var synced, failed int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, e := range pending {
		g.Go(func() error {
			year, _ := yearOf(e.Date)
			if err := w.syncExpense(gctx, e, exportedByYear[year]); err != nil {
				slog.ErrorContext(gctx, "Failed to sync expense", "id", e.ID, "error", err)
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&synced, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(synced), err
	}

	slog.InfoContext(ctx, "Pending sync batch completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	if failed > 0 {
		return int(synced), fmt.Errorf("%d of %d expenses failed to sync", failed, len(pending))
	}
	return int(synced), nil
}

// Run drains pending expenses every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessPendingExpenses(ctx); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "Periodic sync incomplete", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *SyncWorker) exportedIDs(ctx context.Context, date string) (map[int64]bool, error) {
	year, err := yearOf(date)
	if err != nil {
		return nil, err
	}
	ids, err := w.sink.ExportedIDs(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("read exported ids for %d: %w", year, err)
	}
	return ids, nil
}

func (w *SyncWorker) syncExpense(ctx context.Context, e core.Expense, exported map[int64]bool) error {
	if exported[e.ID] {
		slog.InfoContext(ctx, "Expense already exported, marking synced", "id", e.ID)
		return w.store.MarkSynced(ctx, e.ID)
	}

	ref, err := w.sink.Append(ctx, e)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, e.ID, err); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", e.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	// The row exists now; a failed mark only causes a skipped re-append later.
	if err := w.store.MarkSynced(ctx, e.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", e.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced expense",
		"id", e.ID,
		"sheets_ref", ref,
		"date", e.Date,
		"amount", e.Amount,
		"category", e.Category)

	return nil
}

func yearOf(date string) (int, error) {
	t, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return 0, fmt.Errorf("invalid expense date %q: %w", date, err)
	}
	return t.Year(), nil
}
