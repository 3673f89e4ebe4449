package core

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func strPtr(s string) *string    { return &s }
func fPtr(f float64) *float64     { return &f }
func catPtr(c Category) *Category { return &c }

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in any
		ok bool
	}{
		{"餐飲", true},
		{"交通", true},
		{"購物", true},
		{"住房", true},
		{"娛樂", true},
		{"其他", false},
		{"食物", false},
		{" 餐飲", false},
		{"", false},
		{42, false},
		{nil, false},
	}
	for i, tc := range cases {
		_, ok := ParseCategory(tc.in)
		if ok != tc.ok {
			t.Fatalf("case %d (%v): expected ok=%v", i, tc.in, tc.ok)
		}
	}
	if len(Categories()) != 5 {
		t.Fatalf("expected 5 categories, got %d", len(Categories()))
	}
}

func TestRecordComplete(t *testing.T) {
	good := Record{
		Date:     strPtr("2025-06-15"),
		Amount:   fPtr(200),
		Category: catPtr(CategoryTransport),
	}
	if err := good.Complete(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		r   Record
		err error
	}{
		{Record{Amount: fPtr(1), Category: catPtr(CategoryDining)}, ErrMissingDate},
		{Record{Date: strPtr("2025-02-30"), Amount: fPtr(1), Category: catPtr(CategoryDining)}, ErrInvalidDate},
		{Record{Date: strPtr("2025-06-01"), Category: catPtr(CategoryDining)}, ErrMissingAmount},
		{Record{Date: strPtr("2025-06-01"), Amount: fPtr(0), Category: catPtr(CategoryDining)}, ErrInvalidAmount},
		{Record{Date: strPtr("2025-06-01"), Amount: fPtr(1)}, ErrMissingCategory},
		{Record{Date: strPtr("2025-06-01"), Amount: fPtr(1), Category: catPtr("其他")}, ErrMissingCategory},
	}
	for i, tc := range bads {
		if err := tc.r.Complete(); err != tc.err {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestTruncateNote(t *testing.T) {
	short := "咖啡"
	if got := TruncateNote(short); got != short {
		t.Fatalf("expected %q, got %q", short, got)
	}
	long := strings.Repeat("咖", MaxNoteRunes+10)
	if got := TruncateNote(long); utf8.RuneCountInString(got) != MaxNoteRunes {
		t.Fatalf("expected %d runes, got %d", MaxNoteRunes, utf8.RuneCountInString(got))
	}
}
