package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"smartledger/internal/core"
	"smartledger/internal/extract"
	"smartledger/internal/storage/memory"
)

type recordingPublisher struct {
	ids []int64
	err error
}

func (p *recordingPublisher) PublishExpenseSync(_ context.Context, id int64) error {
	p.ids = append(p.ids, id)
	return p.err
}

// newTestService builds a service around a generator that replies with the
// given responses in order, on reference date 2025-06-15.
func newTestService(t *testing.T, pub Publisher, responses ...string) (*ExpenseService, *memory.Store) {
	t.Helper()
	calls := 0
	gen := extract.GenerateFunc(func(context.Context, core.Conversation) (string, error) {
		if calls >= len(responses) {
			return "", errors.New("no more responses")
		}
		calls++
		return responses[calls-1], nil
	})
	clock := func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	ex := extract.New(gen, extract.WithClock(clock), extract.WithBuilder(&extract.Builder{}))

	store := memory.New()
	return NewExpenseService(ex, store, pub), store
}

func TestRecordStoresCompleteExpense(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store := newTestService(t, pub, `{"date":"2025-06-15","amount":200,"category":"交通","note":"搭計程車"}`)

	got, err := svc.Record(context.Background(), "今天花了200元搭計程車")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.Expense.ID == 0 || got.Expense.Amount != 200 || got.Expense.Category != core.CategoryTransport {
		t.Errorf("unexpected expense %+v", got.Expense)
	}
	if len(pub.ids) != 1 || pub.ids[0] != got.Expense.ID {
		t.Errorf("published ids = %v", pub.ids)
	}
	if outs := store.ModelOutputs(got.Expense.ID); len(outs) != 1 || outs[0].Corrected {
		t.Errorf("model outputs = %+v", outs)
	}
}

func TestRecordUsesCorrectedCategory(t *testing.T) {
	svc, store := newTestService(t, nil,
		`{"date":"2025-06-14","amount":120,"category":"食物","note":"午餐"}`,
		`{"date":"2025-06-14","amount":120,"category":"餐飲","note":"午餐"}`,
	)

	got, err := svc.Record(context.Background(), "昨天午餐 120")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.Expense.Category != core.CategoryDining || !got.Result.Corrected {
		t.Errorf("expense %+v corrected=%v", got.Expense, got.Result.Corrected)
	}
	outs := store.ModelOutputs(got.Expense.ID)
	if len(outs) != 1 || !outs[0].Corrected || !strings.Contains(outs[0].Raw, "餐飲") {
		t.Errorf("model outputs = %+v", outs)
	}
}

func TestRecordIncomplete(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store := newTestService(t, pub,
		`{"amount":65,"category":"其他"}`,
		`{"category":"雜項"}`,
	)

	_, err := svc.Record(context.Background(), "咖啡 65")
	var incomplete *IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteError, got %v", err)
	}
	if !errors.Is(err, core.ErrMissingDate) {
		t.Errorf("expected missing date first, got %v", incomplete.Err)
	}
	if incomplete.Result.Calls != 2 {
		t.Errorf("calls = %d", incomplete.Result.Calls)
	}

	all, _ := store.ListAll(context.Background())
	if len(all) != 0 || len(pub.ids) != 0 {
		t.Errorf("incomplete record must not be stored or published")
	}
}

func TestRecordPublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, pub, `{"date":"2025-06-15","amount":89,"category":"餐飲"}`)

	if _, err := svc.Record(context.Background(), "早餐 89"); err != nil {
		t.Fatalf("publish failure should not fail Record: %v", err)
	}
}

func TestRecordEmptyText(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Record(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestRecordGeneratorFailure(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Record(context.Background(), "咖啡 65")
	if err == nil {
		t.Fatal("expected error")
	}
	var incomplete *IncompleteError
	if errors.As(err, &incomplete) {
		t.Error("generator failure must not look like an incomplete record")
	}
}

func seedService(t *testing.T) (*ExpenseService, *memory.Store) {
	t.Helper()
	svc, store := newTestService(t, nil)
	ctx := context.Background()
	for _, e := range []core.Expense{
		{Date: "2025-05-31", Amount: 300, Category: core.CategoryLeisure, Note: "KTV"},
		{Date: "2025-06-01", Amount: 12000, Category: core.CategoryHousing, Note: "房租"},
		{Date: "2025-06-15", Amount: 200, Category: core.CategoryTransport, Note: "計程車, 夜間"},
		{Date: "2025-06-30", Amount: 843, Category: core.CategoryShopping, Note: `家樂福 "大採購"`},
	} {
		if _, err := store.Insert(ctx, e.Date, e.Amount, e.Category, e.Note); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return svc, store
}

func TestListAndSummaryByMonth(t *testing.T) {
	svc, _ := seedService(t)
	ctx := context.Background()

	june, err := MonthRange("2025-06")
	if err != nil {
		t.Fatalf("MonthRange: %v", err)
	}
	list, err := svc.List(ctx, june)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].Date != "2025-06-30" {
		t.Errorf("june list = %+v", list)
	}

	sum, err := svc.Summary(ctx, june)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total.String() != "13043" || sum.Count != 3 {
		t.Errorf("summary total=%s count=%d", sum.Total, sum.Count)
	}
	if sum.ByCategory[0].Category != core.CategoryHousing {
		t.Errorf("largest category = %s", sum.ByCategory[0].Category)
	}

	months, err := svc.Months(ctx)
	if err != nil {
		t.Fatalf("Months: %v", err)
	}
	if len(months) != 2 || months[0] != "2025-06" {
		t.Errorf("months = %v", months)
	}
}

func TestDeleteRange(t *testing.T) {
	svc, store := seedService(t)
	ctx := context.Background()

	if _, err := svc.DeleteRange(ctx, Range{Start: "2025-06-30", End: "2025-06-01"}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("reversed range: %v", err)
	}
	if _, err := svc.DeleteRange(ctx, Range{}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("empty range must not delete everything: %v", err)
	}

	n, err := svc.DeleteRange(ctx, Range{Start: "2025-06-01", End: "2025-06-15"})
	if err != nil || n != 2 {
		t.Fatalf("DeleteRange = %d, %v", n, err)
	}
	left, _ := store.ListAll(ctx)
	if len(left) != 2 {
		t.Errorf("left = %d", len(left))
	}
}

func TestExportCSV(t *testing.T) {
	svc, _ := seedService(t)
	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), &buf, Range{}); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\ufeffid,date,amount,category,note\n") {
		t.Fatalf("unexpected header: %q", out[:40])
	}
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(rows))
	}
	if rows[1][1] != "2025-06-30" || rows[1][4] != `家樂福 "大採購"` {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][2] != "200" || rows[2][4] != "計程車, 夜間" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		month      string
		start, end string
		wantErr    bool
	}{
		{"2025-06", "2025-06-01", "2025-06-30", false},
		{"2024-02", "2024-02-01", "2024-02-29", false},
		{"2025-12", "2025-12-01", "2025-12-31", false},
		{"2025-13", "", "", true},
		{"june", "", "", true},
	}
	for _, tt := range tests {
		r, err := MonthRange(tt.month)
		if (err != nil) != tt.wantErr {
			t.Errorf("MonthRange(%q) err = %v", tt.month, err)
			continue
		}
		if r.Start != tt.start || r.End != tt.end {
			t.Errorf("MonthRange(%q) = %+v", tt.month, r)
		}
	}
}

func TestExportFilename(t *testing.T) {
	if got := ExportFilename(Range{}); got != "expenses_all.csv" {
		t.Errorf("all = %q", got)
	}
	if got := ExportFilename(Range{Start: "2025-06-01", End: "2025-06-30"}); got != "expenses_2025-06-01_2025-06-30.csv" {
		t.Errorf("range = %q", got)
	}
}
