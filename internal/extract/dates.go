package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/width"

	"smartledger/internal/core"
)

var (
	absoluteDateRe = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	monthDayRe     = regexp.MustCompile(`(?:^|[^\d/.\-])(\d{1,2})[/-](\d{1,2})(?:[^\d/\-]|$)`)
	monthDayCJKRe  = regexp.MustCompile(`(\d{1,2})\s*月\s*(\d{1,2})\s*[日號号]`)
	relMonthRe     = regexp.MustCompile(`(上|這|本|下)個?月`)
	relWeekRe      = regexp.MustCompile(`(上|這|本|下)\s*(?:週|周|禮拜|星期)\s*([一二三四五六日天1-7])`)
)

var relativeDays = []struct {
	word   string
	offset int
}{
	{"今天", 0},
	{"昨天", -1},
	{"前天", -2},
}

// Words in which the period prefix or 月 belongs to a neighbouring character,
// such as 日本 and 晚上 before it or 月餅 after it.
var (
	periodCompoundBefore = map[string]string{"上": "晚早樓馬線網", "下": "樓鄉底私", "本": "日資成基"}
	monthCompoundAfter   = "餅光球亮台"
)

var periodOffset = map[string]int{"上": -1, "這": 0, "本": 0, "下": 1}

var weekdayIndex = map[string]int{
	"一": 0, "二": 1, "三": 2, "四": 3, "五": 4, "六": 5, "日": 6, "天": 6,
	"1": 0, "2": 1, "3": 2, "4": 3, "5": 4, "6": 5, "7": 6,
}

// ResolveDate derives an ISO date from text relative to today. The second
// return value is false when no rule matched; callers must treat that as
// unknown rather than today.
func ResolveDate(text string, today time.Time) (string, bool) {
	text = width.Narrow.String(text)
	today = truncateDay(today)

	for _, resolve := range []func(string, time.Time) (time.Time, bool){
		resolveAbsolute,
		resolveMonthDay,
		resolveRelativeDay,
		resolveRelativeMonth,
		resolveRelativeWeek,
	} {
		if d, ok := resolve(text, today); ok {
			return d.Format(core.DateLayout), true
		}
	}
	return "", false
}

func resolveAbsolute(text string, _ time.Time) (time.Time, bool) {
	for _, m := range absoluteDateRe.FindAllStringSubmatch(text, -1) {
		if d, ok := calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), time.UTC); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func resolveMonthDay(text string, today time.Time) (time.Time, bool) {
	for _, re := range []*regexp.Regexp{monthDayRe, monthDayCJKRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if d, ok := calendarDate(today.Year(), atoi(m[1]), atoi(m[2]), today.Location()); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func resolveRelativeDay(text string, today time.Time) (time.Time, bool) {
	for _, rd := range relativeDays {
		if strings.Contains(text, rd.word) {
			return today.AddDate(0, 0, rd.offset), true
		}
	}
	return time.Time{}, false
}

func resolveRelativeMonth(text string, today time.Time) (time.Time, bool) {
	for _, loc := range relMonthRe.FindAllStringSubmatchIndex(text, -1) {
		period := text[loc[2]:loc[3]]
		before, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
		after, _ := utf8.DecodeRuneInString(text[loc[1]:])
		if strings.ContainsRune(periodCompoundBefore[period], before) || strings.ContainsRune(monthCompoundAfter, after) {
			continue
		}
		first := time.Date(today.Year(), today.Month()+time.Month(periodOffset[period]), 1, 0, 0, 0, 0, today.Location())
		return first, true
	}
	return time.Time{}, false
}

func resolveRelativeWeek(text string, today time.Time) (time.Time, bool) {
	m := relWeekRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	idx, ok := weekdayIndex[m[2]]
	if !ok {
		return time.Time{}, false
	}
	monday := today.AddDate(0, 0, -mondayOffset(today)+7*periodOffset[m[1]])
	return monday.AddDate(0, 0, idx), true
}

// mondayOffset is the number of days since the most recent Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
