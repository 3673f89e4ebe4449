package core

import "testing"

func TestSummarize(t *testing.T) {
	expenses := []Expense{
		{ID: 1, Date: "2025-06-30", Amount: 843, Category: CategoryShopping},
		{ID: 2, Date: "2025-06-15", Amount: 200, Category: CategoryTransport},
		{ID: 3, Date: "2025-06-14", Amount: 0.1, Category: CategoryDining},
		{ID: 4, Date: "2025-05-02", Amount: 0.2, Category: CategoryDining},
	}
	s := Summarize(expenses)
	if s.Count != 4 {
		t.Fatalf("expected count 4, got %d", s.Count)
	}
	if s.Total.String() != "1043.3" {
		t.Fatalf("expected total 1043.3, got %s", s.Total)
	}
	if len(s.ByCategory) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(s.ByCategory))
	}
	if s.ByCategory[0].Category != CategoryShopping {
		t.Fatalf("expected shopping first, got %s", s.ByCategory[0].Category)
	}
	last := s.ByCategory[2]
	if last.Category != CategoryDining || last.Total.String() != "0.3" || last.Count != 2 {
		t.Fatalf("unexpected dining total: %+v", last)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if !s.Total.IsZero() || s.Count != 0 || len(s.ByCategory) != 0 {
		t.Fatalf("expected empty summary, got %+v", s)
	}
}

func TestMonths(t *testing.T) {
	got := Months([]Expense{
		{Date: "2025-05-02"},
		{Date: "2025-06-30"},
		{Date: "2025-06-01"},
		{Date: "2024-12-31"},
	})
	want := []string{"2025-06", "2025-05", "2024-12"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
