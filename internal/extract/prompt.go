package extract

import (
	"fmt"
	"strings"
	"time"

	"smartledger/internal/core"
)

// Example is a few-shot demonstration turn. Input and Output may contain
// relative-date placeholders such as {TODAY} or {YESTERDAY}; they are
// substituted from the reference date when the conversation is built.
type Example struct {
	Input  string
	Output string
}

// DefaultExamples mirrors the sentences the extractor is usually fed.
var DefaultExamples = []Example{
	{
		Input:  "昨天在超商買咖啡 65 元 [DATE:{YESTERDAY}]",
		Output: `{"date":"{YESTERDAY}","amount":65,"category":"餐飲","note":"超商咖啡"}`,
	},
	{
		Input:  "上週五加油 1,050 元 [DATE:{LAST_FRIDAY}]",
		Output: `{"date":"{LAST_FRIDAY}","amount":1050,"category":"交通","note":"加油"}`,
	},
	{
		Input:  "這個月房租 12000 元已繳 [DATE:{THIS_MONTH_FIRST}]",
		Output: `{"date":"{THIS_MONTH_FIRST}","amount":12000,"category":"住房","note":"房租"}`,
	},
	{
		Input:  "3/8 在全聯買衛生紙 420 元 [DATE:{THIS_YEAR}-03-08]",
		Output: `{"date":"{THIS_YEAR}-03-08","amount":420,"category":"購物","note":"全聯衛生紙"}`,
	},
}

var categoryCues = map[core.Category]string{
	core.CategoryDining:    "吃、喝、餐廳、早餐、午餐、晚餐、咖啡、飲料、請客、外送",
	core.CategoryTransport: "計程車、捷運、公車、高鐵、火車、加油、停車、通勤",
	core.CategoryShopping:  "超市、家樂福、全聯、日用品、衣服、網購、3C",
	core.CategoryHousing:   "房租、水電、瓦斯、管理費、網路費、房貸",
	core.CategoryLeisure:   "電影、遊戲、KTV、旅遊、演唱會、串流訂閱",
}

// Builder assembles the conversation sent to the generator.
type Builder struct {
	Examples []Example
}

// NewBuilder returns a builder using the default few-shot examples.
func NewBuilder() *Builder {
	return &Builder{Examples: DefaultExamples}
}

// Build returns the conversation for text and the date hint resolved from it.
// ok is false when no hint could be derived.
func (b *Builder) Build(text string, today time.Time) (conv core.Conversation, hint string, ok bool) {
	todayStr := today.Format(core.DateLayout)
	hint, ok = ResolveDate(text, today)

	conv = append(conv, core.Message{Role: core.RoleSystem, Content: SystemPrompt(todayStr)})

	if len(b.Examples) > 0 {
		r := placeholderReplacer(today)
		for _, ex := range b.Examples {
			conv = append(conv,
				core.Message{Role: core.RoleUser, Content: r.Replace(ex.Input)},
				core.Message{Role: core.RoleAssistant, Content: r.Replace(ex.Output)},
			)
		}
	}

	conv = append(conv, core.Message{Role: core.RoleUser, Content: annotate(text, hint, ok)})
	return conv, hint, ok
}

// SystemPrompt is the extraction instruction with today's date fixed in it.
func SystemPrompt(today string) string {
	var sb strings.Builder
	sb.WriteString("你是記帳抽取助手。只輸出一個 JSON 物件（不可有多餘文字、不可使用 Markdown）。\n")
	sb.WriteString("若輸入包含 [DATE:YYYY-MM-DD]，請直接使用此日期，不要重新推算。\n")
	fmt.Fprintf(&sb, "今天=%s。相對日期（今天/昨天/上週五/這個月）一律以此換算。\n", today)
	sb.WriteString("欄位：\n")
	sb.WriteString("- date: 字串，ISO 8601（YYYY-MM-DD）；無法判斷時為 null。\n")
	sb.WriteString("- amount: 數字（整數或小數），不含單位、貨幣符號或千分位。\n")
	fmt.Fprintf(&sb, "- category: 只能是 {%s} 其中之一，不可自創類別。\n", joinCategories("、"))
	sb.WriteString("- note: 字串，<=20字，可為空字串。\n")
	sb.WriteString("類別規則：\n")
	for _, c := range core.Categories() {
		fmt.Fprintf(&sb, "- %s: %s\n", c, categoryCues[c])
	}
	sb.WriteString("輸出格式：\n")
	fmt.Fprintf(&sb, `{"date":"YYYY-MM-DD","amount":數字,"category":"%s","note":"..."}`, joinCategories("|"))
	return sb.String()
}

// CorrectionConversation asks the generator to replace an invalid category
// in a previously parsed object. It carries no part of the original prompt.
func CorrectionConversation(previous string) core.Conversation {
	system := fmt.Sprintf(
		"上一個 JSON 的 category 不合法。請把 category 改成 {%s} 其中之一，其他欄位保持不變，只輸出修正後的 JSON。",
		joinCategories("、"))
	return core.Conversation{
		{Role: core.RoleSystem, Content: system},
		{Role: core.RoleUser, Content: previous},
	}
}

// DateMarker formats the inline hint appended to the user text.
func DateMarker(hint string) string {
	return "[DATE:" + hint + "]"
}

func annotate(text, hint string, ok bool) string {
	if !ok {
		return text
	}
	return text + " " + DateMarker(hint)
}

func placeholderReplacer(today time.Time) *strings.Replacer {
	today = truncateDay(today)
	lastFriday := today.AddDate(0, 0, -mondayOffset(today)-7+4)
	return strings.NewReplacer(
		"{TODAY}", today.Format(core.DateLayout),
		"{YESTERDAY}", today.AddDate(0, 0, -1).Format(core.DateLayout),
		"{DAY_BEFORE_YESTERDAY}", today.AddDate(0, 0, -2).Format(core.DateLayout),
		"{LAST_FRIDAY}", lastFriday.Format(core.DateLayout),
		"{THIS_MONTH_FIRST}", time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).Format(core.DateLayout),
		"{THIS_YEAR}", fmt.Sprintf("%04d", today.Year()),
	)
}

func joinCategories(sep string) string {
	names := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, sep)
}
