package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartledger/internal/core"
)

// scriptedGenerator replays canned responses and records every conversation.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     []core.Conversation
}

func (g *scriptedGenerator) Generate(_ context.Context, conv core.Conversation) (string, error) {
	i := len(g.calls)
	g.calls = append(g.calls, conv)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i >= len(g.responses) {
		return "", errors.New("unexpected call")
	}
	return g.responses[i], nil
}

func newTestExtractor(g Generator) *Extractor {
	return New(g, WithBuilder(&Builder{}))
}

func TestExtractTaxiToday(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"date":"2025-06-15","amount":200,"category":"交通","note":"搭計程車"}`,
	}}
	res, err := newTestExtractor(gen).ExtractAt(context.Background(), "今天花了200元搭計程車", day(2025, 6, 15))
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, 1, res.Calls)
	assert.False(t, res.Corrected)

	rec := res.Record
	require.NotNil(t, rec.Date)
	assert.Equal(t, "2025-06-15", *rec.Date)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, 200.0, *rec.Amount)
	require.NotNil(t, rec.Category)
	assert.Equal(t, core.CategoryTransport, *rec.Category)
	assert.Equal(t, "搭計程車", rec.Note)
	assert.NoError(t, rec.Complete())
}

func TestExtractFallsBackToHint(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"```json\n{\"amount\":\"843 元\",\"category\":\"購物\",\"note\":\"家樂福\"}\n```",
	}}
	res, err := newTestExtractor(gen).ExtractAt(context.Background(), "6/30 家樂福採購 843 元", day(2025, 3, 1))
	require.NoError(t, err)

	require.NotNil(t, res.Record.Date)
	assert.Equal(t, "2025-06-30", *res.Record.Date)
	assert.Equal(t, 843.0, *res.Record.Amount)
	assert.Equal(t, core.CategoryShopping, *res.Record.Category)
	assert.Equal(t, "2025-06-30", res.Hint)
}

func TestExtractCorrectsInvalidCategory(t *testing.T) {
	first := `{"date":"2025-06-14","amount":120,"category":"食物","note":"午餐"}`
	second := `{"date":"2025-06-14","amount":120,"category":"餐飲","note":"午餐"}`
	gen := &scriptedGenerator{responses: []string{first, second}}

	res, err := newTestExtractor(gen).ExtractAt(context.Background(), "昨天午餐 120", day(2025, 6, 15))
	require.NoError(t, err)

	require.Len(t, gen.calls, 2)
	assert.Equal(t, 2, res.Calls)
	assert.True(t, res.Corrected)
	assert.Equal(t, second, res.Raw)
	assert.Equal(t, core.CategoryDining, *res.Record.Category)

	retry := gen.calls[1]
	require.Len(t, retry, 2)
	assert.Equal(t, core.RoleSystem, retry[0].Role)
	assert.Equal(t, core.RoleUser, retry[1].Role)
	assert.Contains(t, retry[1].Content, "食物")
	assert.NotContains(t, retry[1].Content, "昨天午餐")
}

func TestExtractAdoptsCorrectedFields(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"amount":120,"category":"food","note":"午餐"}`,
		`{"amount":"150","category":"餐飲","note":"午餐加飲料"}`,
	}}
	res, err := newTestExtractor(gen).ExtractAt(context.Background(), "午餐 120", day(2025, 6, 15))
	require.NoError(t, err)

	assert.Equal(t, 150.0, *res.Record.Amount)
	assert.Equal(t, "午餐加飲料", res.Record.Note)
	assert.Nil(t, res.Record.Date)
}

func TestExtractRejectedCorrectionKeepsFirstParse(t *testing.T) {
	first := `{"date":"2025-06-15","amount":"1,250元","category":"其他","note":"請客"}`
	gen := &scriptedGenerator{responses: []string{first, `{"category":"雜項"}`}}

	res, err := newTestExtractor(gen).ExtractAt(context.Background(), "請客 1,250 元", day(2025, 6, 15))
	require.NoError(t, err)

	require.Len(t, gen.calls, 2, "correction must happen exactly once")
	assert.False(t, res.Corrected)
	assert.Equal(t, first, res.Raw)
	assert.Nil(t, res.Record.Category)
	assert.Equal(t, 1250.0, *res.Record.Amount)
	assert.Equal(t, "請客", res.Record.Note)
	assert.ErrorIs(t, res.Record.Complete(), core.ErrMissingCategory)
}

func TestExtractCorrectionFailureDegrades(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{`{"amount":65,"category":"咖啡"}`, ""},
		errs:      []error{nil, context.DeadlineExceeded},
	}
	res, err := newTestExtractor(gen).ExtractAt(context.Background(), "咖啡 65", day(2025, 6, 15))
	require.NoError(t, err)
	assert.Len(t, gen.calls, 2)
	assert.Nil(t, res.Record.Category)
	assert.Equal(t, 65.0, *res.Record.Amount)
}

func TestExtractFirstCallFailureIsReturned(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("model offline")}}
	_, err := newTestExtractor(gen).ExtractAt(context.Background(), "咖啡 65", day(2025, 6, 15))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
	assert.Len(t, gen.calls, 1)
}

func TestExtractMalformedOutputDegradesToNulls(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"我不確定", "還是不確定"}}
	res, err := newTestExtractor(gen).ExtractAt(context.Background(), "昨天 隨便買了東西", day(2025, 6, 15))
	require.NoError(t, err)

	rec := res.Record
	require.NotNil(t, rec.Date)
	assert.Equal(t, "2025-06-14", *rec.Date)
	assert.Nil(t, rec.Amount)
	assert.Nil(t, rec.Category)
	assert.Equal(t, "", rec.Note)
	assert.Equal(t, "{}", gen.calls[1][1].Content)
}

func TestExtractUsesClock(t *testing.T) {
	var seen core.Conversation
	gen := GenerateFunc(func(_ context.Context, conv core.Conversation) (string, error) {
		seen = conv
		return `{"amount":65,"category":"餐飲"}`, nil
	})
	clock := func() time.Time { return time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC) }

	res, err := New(gen, WithClock(clock), WithBuilder(&Builder{})).Extract(context.Background(), "昨天咖啡 65")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", *res.Record.Date)
	assert.Contains(t, seen[0].Content, "今天=2025-01-01")
}
