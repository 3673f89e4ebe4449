package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestResolveDate(t *testing.T) {
	sunday := day(2025, 6, 15)
	wednesday := day(2025, 6, 18)

	tests := []struct {
		name  string
		text  string
		today time.Time
		want  string
		ok    bool
	}{
		{"absolute dash", "2025-09-10 在全聯買早餐 89 元", sunday, "2025-09-10", true},
		{"absolute slash leap day", "2024/2/29 看電影", sunday, "2024-02-29", true},
		{"month day slash", "6/30 家樂福採購 843 元", sunday, "2025-06-30", true},
		{"month day dash", "買書 3-5 花 300", sunday, "2025-03-05", true},
		{"month day cjk", "3月5日 看牙醫 500 元", sunday, "2025-03-05", true},
		{"month day cjk hao", "12月24號 聖誕大餐", sunday, "2025-12-24", true},
		{"full width digits", "６/３０ 晚餐", sunday, "2025-06-30", true},
		{"impossible month day falls through", "2/30 今天吃拉麵", sunday, "2025-06-15", true},
		{"explicit beats relative", "昨天 6/30 補記", sunday, "2025-06-30", true},
		{"today", "今天花了200元搭計程車", sunday, "2025-06-15", true},
		{"yesterday", "昨天在超商買咖啡 65 元", sunday, "2025-06-14", true},
		{"day before yesterday", "前天停車 60", day(2025, 3, 1), "2025-02-27", true},
		{"this month", "這個月房租 12000 元已繳", sunday, "2025-06-01", true},
		{"this month short", "本月網路費 599", sunday, "2025-06-01", true},
		{"japan mooncake is not this month", "日本月餅禮盒 800", sunday, "", false},
		{"evening moonlight is not last month", "晚上月光咖啡 120", sunday, "", false},
		{"later month word still matches", "日本月餅 本月團購 800", sunday, "2025-06-01", true},
		{"last month year rollover", "上個月水電 1800", day(2025, 1, 20), "2024-12-01", true},
		{"next month year rollover", "下月管理費 2000", day(2025, 12, 5), "2026-01-01", true},
		{"next week monday from wednesday", "下週一 高鐵 1490", wednesday, "2025-06-23", true},
		{"last friday", "上週五請客吃晚餐 1,250 元", wednesday, "2025-06-13", true},
		{"this sunday", "這週日 KTV", wednesday, "2025-06-22", true},
		{"digit weekday", "本週7 電影", wednesday, "2025-06-22", true},
		{"libai alias", "上禮拜天 吃火鍋", wednesday, "2025-06-15", true},
		{"reference is sunday", "這週一 捷運", sunday, "2025-06-09", true},
		{"no date", "買咖啡 65 元", sunday, "", false},
		{"thousands separator is not a date", "1,250 元", sunday, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDate(tt.text, tt.today)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDateRelativeDaysForAllReferenceDates(t *testing.T) {
	start := day(2023, 12, 1)
	for i := 0; i < 800; i++ {
		ref := start.AddDate(0, 0, i)

		got, ok := ResolveDate("今天", ref)
		require.True(t, ok)
		require.Equal(t, ref.Format("2006-01-02"), got)

		got, ok = ResolveDate("昨天", ref)
		require.True(t, ok)
		require.Equal(t, ref.AddDate(0, 0, -1).Format("2006-01-02"), got)
	}

	got, _ := ResolveDate("昨天", day(2025, 1, 1))
	assert.Equal(t, "2024-12-31", got)
}

func TestResolveDateIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	got, ok := ResolveDate("下週一", late)
	require.True(t, ok)
	assert.Equal(t, "2025-06-16", got)
}
