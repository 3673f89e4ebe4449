package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"smartledger/internal/services"
)

// parseRange reads the expense filter from query or form values. month
// (YYYY-MM) wins over start/end; no parameters means every expense.
func parseRange(values url.Values) (services.Range, error) {
	if m := strings.TrimSpace(values.Get("month")); m != "" {
		return services.MonthRange(m)
	}
	r := services.Range{
		Start: strings.TrimSpace(values.Get("start")),
		End:   strings.TrimSpace(values.Get("end")),
	}
	switch {
	case r.Start == "" && r.End != "":
		r.Start = r.End
	case r.End == "" && r.Start != "":
		r.End = r.Start
	}
	if err := r.Validate(); err != nil {
		return services.Range{}, err
	}
	return r, nil
}

// rangeQuery encodes r back into query parameters for links and partials.
func rangeQuery(r services.Range) string {
	if r.IsZero() {
		return ""
	}
	v := url.Values{}
	v.Set("start", r.Start)
	v.Set("end", r.End)
	return v.Encode()
}

func rangeKey(r services.Range) string {
	if r.IsZero() {
		return "all"
	}
	return r.Start + "|" + r.End
}

// parseIDs accepts repeated id fields as well as a comma separated list.
func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, &badRequestError{msg: "invalid expense id " + strconv.Quote(part)}
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

// formatAmount renders an amount without trailing zeros, e.g. 843 or 12.5.
func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// barWidth scales part against top into a 0-100 percentage, keeping tiny
// non-zero values visible.
func barWidth(part, top decimal.Decimal) int {
	if !top.IsPositive() || !part.IsPositive() {
		return 0
	}
	w := int(part.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// isHTMX reports whether the request came from an htmx swap rather than a
// plain form submission.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
