package memory

import (
	"context"
	"testing"

	"smartledger/internal/core"
)

func TestSinkAppendAndIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, e := range []core.Expense{
		{ID: 1, Date: "2024-12-31", Amount: 300, Category: core.CategoryLeisure},
		{ID: 2, Date: "2025-01-01", Amount: 65, Category: core.CategoryDining},
	} {
		if _, err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	ids, err := s.ExportedIDs(ctx, 2025)
	if err != nil {
		t.Fatalf("ExportedIDs: %v", err)
	}
	if len(ids) != 1 || !ids[2] {
		t.Errorf("2025 ids = %v", ids)
	}
	if got := len(s.Rows(2024)); got != 1 {
		t.Errorf("2024 rows = %d", got)
	}
}

func TestSinkRejectsBadDate(t *testing.T) {
	if _, err := New().Append(context.Background(), core.Expense{Date: "6/30"}); err == nil {
		t.Fatal("expected error")
	}
}
