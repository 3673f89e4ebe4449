package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"smartledger/internal/core"
)

// Fields is the best-effort object decoded from a generator response.
// A nil or empty map means no usable JSON object was found.
type Fields map[string]any

// ParseResponse locates the first JSON object in raw. Starting at the first
// '{', each later '}' is tried in turn and the first delimited substring that
// decodes as an object wins. Malformed output yields an empty map.
func ParseResponse(raw string) Fields {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return Fields{}
	}
	for end := start + 1; end < len(raw); end++ {
		if raw[end] != '}' {
			continue
		}
		if f, ok := decodeObject(raw[start : end+1]); ok {
			return f
		}
	}
	return Fields{}
}

func decodeObject(s string) (Fields, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var f map[string]any
	if err := dec.Decode(&f); err != nil || f == nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return Fields(f), true
}

// Date returns the model's date when it is a non-empty string.
func (f Fields) Date() (string, bool) {
	s, ok := f["date"].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Amount returns the cleaned amount or nil.
func (f Fields) Amount() *float64 {
	return CleanAmount(f["amount"])
}

// Category returns the category when it is an exact member of the set.
func (f Fields) Category() (core.Category, bool) {
	return core.ParseCategory(f["category"])
}

// Note returns the note, or "" when absent or null.
func (f Fields) Note() string {
	switch v := f["note"].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// JSON renders the fields as compact JSON for use as literal prompt context.
func (f Fields) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(f)); err != nil {
		return "{}"
	}
	return strings.TrimSpace(buf.String())
}

// CleanAmount strips everything but ASCII digits and decimal points from v,
// folds surplus decimal points into the first one ("12.34.56" -> 12.3456)
// and parses the result. Empty or unparseable input yields nil.
func CleanAmount(v any) *float64 {
	var s string
	switch x := v.(type) {
	case nil, bool:
		return nil
	case json.Number:
		// Out of float64 range is not an amount.
		f, err := x.Float64()
		if err != nil || math.IsInf(f, 0) {
			return nil
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return nil
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		s = x
	default:
		s = fmt.Sprint(x)
	}

	s = width.Narrow.String(s)
	var sb strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	num := sb.String()
	if num == "" {
		return nil
	}
	if strings.Count(num, ".") > 1 {
		head, rest, _ := strings.Cut(num, ".")
		num = head + "." + strings.ReplaceAll(rest, ".", "")
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return nil
	}
	return &f
}
