package http

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"

	"smartledger/internal/services"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		want    services.Range
		wantErr bool
	}{
		{"empty", url.Values{}, services.Range{}, false},
		{"month", url.Values{"month": {"2025-02"}}, services.Range{Start: "2025-02-01", End: "2025-02-28"}, false},
		{"month wins", url.Values{"month": {"2024-02"}, "start": {"2025-01-01"}}, services.Range{Start: "2024-02-01", End: "2024-02-29"}, false},
		{"custom", url.Values{"start": {"2025-06-01"}, "end": {"2025-06-15"}}, services.Range{Start: "2025-06-01", End: "2025-06-15"}, false},
		{"single day", url.Values{"end": {"2025-06-15"}}, services.Range{Start: "2025-06-15", End: "2025-06-15"}, false},
		{"reversed", url.Values{"start": {"2025-06-15"}, "end": {"2025-06-01"}}, services.Range{}, true},
		{"bad date", url.Values{"start": {"2025-13-01"}}, services.Range{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRange(tt.values)
			if tt.wantErr {
				if !errors.Is(err, services.ErrInvalidRange) {
					t.Fatalf("err = %v, want ErrInvalidRange", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("parseRange() = %+v, %v; want %+v", got, err, tt.want)
			}
		})
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3", "1, 2", ""})
	if err != nil {
		t.Fatalf("parseIDs() error = %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[2] != 2 {
		t.Errorf("parseIDs() = %v", ids)
	}
	for _, bad := range []string{"abc", "-1", "0"} {
		if _, err := parseIDs([]string{bad}); err == nil {
			t.Errorf("parseIDs(%q) accepted", bad)
		}
	}
}

func TestBarWidth(t *testing.T) {
	top := decimal.NewFromInt(1000)
	tests := []struct {
		part int64
		want int
	}{
		{1000, 100},
		{500, 50},
		{1, 2},
		{0, 0},
	}
	for _, tt := range tests {
		if got := barWidth(decimal.NewFromInt(tt.part), top); got != tt.want {
			t.Errorf("barWidth(%d) = %d, want %d", tt.part, got, tt.want)
		}
	}
	if got := barWidth(decimal.NewFromInt(5), decimal.Zero); got != 0 {
		t.Errorf("barWidth with zero top = %d", got)
	}
}

func TestFormatAmount(t *testing.T) {
	for in, want := range map[float64]string{843: "843", 12.5: "12.5", 0.1: "0.1"} {
		if got := formatAmount(in); got != want {
			t.Errorf("formatAmount(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.5:1234", "", "203.0.113.5"},
		{"untrusted proxy ignored", "203.0.113.5:1234", "198.51.100.7", "203.0.113.5"},
		{"trusted proxy", "10.0.0.2:80", "198.51.100.7, 10.0.0.2", "198.51.100.7"},
		{"trusted proxy bad header", "10.0.0.2:80", "not-an-ip", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
