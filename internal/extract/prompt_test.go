package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartledger/internal/core"
)

func TestBuildWithoutExamples(t *testing.T) {
	b := &Builder{}
	conv, hint, ok := b.Build("今天花了200元搭計程車", day(2025, 6, 15))

	require.True(t, ok)
	assert.Equal(t, "2025-06-15", hint)
	require.Len(t, conv, 2)

	assert.Equal(t, core.RoleSystem, conv[0].Role)
	assert.Contains(t, conv[0].Content, "今天=2025-06-15")
	for _, c := range core.Categories() {
		assert.Contains(t, conv[0].Content, string(c))
	}
	for _, field := range []string{`"date"`, `"amount"`, `"category"`, `"note"`} {
		assert.Contains(t, conv[0].Content, field)
	}

	assert.Equal(t, core.RoleUser, conv[1].Role)
	assert.Equal(t, "今天花了200元搭計程車 [DATE:2025-06-15]", conv[1].Content)
}

func TestBuildWithoutHintLeavesTextAlone(t *testing.T) {
	conv, hint, ok := (&Builder{}).Build("買咖啡 65 元", day(2025, 6, 15))
	assert.False(t, ok)
	assert.Empty(t, hint)
	assert.Equal(t, "買咖啡 65 元", conv[len(conv)-1].Content)
}

func TestBuildSubstitutesExamplePlaceholders(t *testing.T) {
	conv, _, _ := NewBuilder().Build("6/30 家樂福採購 843 元", day(2025, 6, 18))

	require.Len(t, conv, 2+2*len(DefaultExamples))
	for i, ex := range conv[1 : len(conv)-1] {
		want := core.RoleUser
		if i%2 == 1 {
			want = core.RoleAssistant
		}
		assert.Equal(t, want, ex.Role)
		assert.False(t, strings.Contains(ex.Content, "{YESTERDAY}") ||
			strings.Contains(ex.Content, "{LAST_FRIDAY}") ||
			strings.Contains(ex.Content, "{THIS_MONTH_FIRST}") ||
			strings.Contains(ex.Content, "{THIS_YEAR}"), "unsubstituted placeholder in %q", ex.Content)
	}

	assert.Contains(t, conv[1].Content, "[DATE:2025-06-17]")
	assert.Contains(t, conv[2].Content, `"date":"2025-06-17"`)
	assert.Contains(t, conv[4].Content, `"date":"2025-06-13"`)
	assert.Contains(t, conv[6].Content, `"date":"2025-06-01"`)
	assert.Contains(t, conv[7].Content, "[DATE:2025-03-08]")
	assert.Contains(t, conv[8].Content, `"date":"2025-03-08"`)
	assert.Equal(t, "6/30 家樂福採購 843 元 [DATE:2025-06-30]", conv[len(conv)-1].Content)
}

func TestCorrectionConversation(t *testing.T) {
	conv := CorrectionConversation(`{"category":"食物","amount":120}`)
	require.Len(t, conv, 2)
	assert.Equal(t, core.RoleSystem, conv[0].Role)
	assert.Contains(t, conv[0].Content, "餐飲")
	assert.Equal(t, core.RoleUser, conv[1].Role)
	assert.Equal(t, `{"category":"食物","amount":120}`, conv[1].Content)
}
