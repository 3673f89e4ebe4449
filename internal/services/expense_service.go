package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"smartledger/internal/core"
	"smartledger/internal/extract"
	"smartledger/internal/storage"
)

var ErrEmptyText = errors.New("expense text is empty")

type (
	// Extractor turns a sentence into a record.
	Extractor interface {
		Extract(ctx context.Context, text string) (extract.Result, error)
	}

	// Publisher announces stored expenses to the sync pipeline.
	Publisher interface {
		PublishExpenseSync(ctx context.Context, id int64) error
	}

	// Recorded is a successfully stored extraction.
	Recorded struct {
		Expense core.Expense   `json:"expense"`
		Result  extract.Result `json:"result"`
	}
)

// IncompleteError reports an extraction that could not be stored because a
// required field is missing or invalid. Result carries what was extracted.
type IncompleteError struct {
	Result extract.Result
	Err    error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete extraction: %v", e.Err)
}

func (e *IncompleteError) Unwrap() error { return e.Err }

// ExpenseService orchestrates extraction, local storage and sync publishing.
type ExpenseService struct {
	extractor Extractor
	store     storage.Store
	publisher Publisher
}

// NewExpenseService wires the service. publisher may be nil, in which case
// stored expenses are only picked up by the periodic sync.
func NewExpenseService(extractor Extractor, store storage.Store, publisher Publisher) *ExpenseService {
	return &ExpenseService{
		extractor: extractor,
		store:     store,
		publisher: publisher,
	}
}

// Preview runs extraction without storing anything.
func (s *ExpenseService) Preview(ctx context.Context, text string) (extract.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return extract.Result{}, ErrEmptyText
	}
	res, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return extract.Result{}, fmt.Errorf("extract: %w", err)
	}
	return res, nil
}

// Record extracts text and stores the expense when the record is complete.
// Incomplete records are returned as *IncompleteError and nothing is stored.
func (s *ExpenseService) Record(ctx context.Context, text string) (Recorded, error) {
	res, err := s.Preview(ctx, text)
	if err != nil {
		return Recorded{}, err
	}
	if err := res.Record.Complete(); err != nil {
		slog.InfoContext(ctx, "Extraction incomplete, nothing stored",
			"reason", err,
			"calls", res.Calls)
		return Recorded{}, &IncompleteError{Result: res, Err: err}
	}

	rec := res.Record
	id, err := s.store.Insert(ctx, *rec.Date, *rec.Amount, *rec.Category, rec.Note)
	if err != nil {
		return Recorded{}, fmt.Errorf("save expense: %w", err)
	}

	if err := s.store.SaveModelOutput(ctx, id, res.Raw, res.Corrected); err != nil {
		slog.WarnContext(ctx, "Failed to save model output", "id", id, "error", err)
	}

	s.publishSyncMessage(ctx, id)

	expense, err := s.store.Get(ctx, id)
	if err != nil {
		return Recorded{}, fmt.Errorf("reload expense %d: %w", id, err)
	}
	return Recorded{Expense: expense, Result: res}, nil
}

// Add stores an already structured expense, bypassing extraction.
func (s *ExpenseService) Add(ctx context.Context, rec core.Record) (core.Expense, error) {
	if err := rec.Complete(); err != nil {
		return core.Expense{}, err
	}
	id, err := s.store.Insert(ctx, *rec.Date, *rec.Amount, *rec.Category, core.TruncateNote(rec.Note))
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publishSyncMessage(ctx, id)
	return s.store.Get(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context, r Range) ([]core.Expense, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.IsZero() {
		return s.store.ListAll(ctx)
	}
	return s.store.ListBetween(ctx, r.Start, r.End)
}

func (s *ExpenseService) Summary(ctx context.Context, r Range) (core.Summary, error) {
	expenses, err := s.List(ctx, r)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(expenses), nil
}

// Months lists the months that hold expenses, newest first.
func (s *ExpenseService) Months(ctx context.Context) ([]string, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return core.Months(all), nil
}

func (s *ExpenseService) Delete(ctx context.Context, ids []int64) (int64, error) {
	return s.store.DeleteByIDs(ctx, ids)
}

func (s *ExpenseService) DeleteRange(ctx context.Context, r Range) (int64, error) {
	if r.IsZero() {
		return 0, ErrInvalidRange
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}
	return s.store.DeleteByRange(ctx, r.Start, r.End)
}

func (s *ExpenseService) DeleteAll(ctx context.Context) (int64, error) {
	return s.store.DeleteAll(ctx)
}

func (s *ExpenseService) publishSyncMessage(ctx context.Context, id int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No sync publisher configured, expense left for periodic sync", "id", id)
		return
	}
	if err := s.publisher.PublishExpenseSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", id, "error", err)
	}
}

// Close closes storage.
func (s *ExpenseService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
