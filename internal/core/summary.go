package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

type (
	CategoryTotal struct {
		Category Category
		Total    decimal.Decimal
		Count    int
	}

	Summary struct {
		Total      decimal.Decimal
		Count      int
		ByCategory []CategoryTotal
	}
)

// Summarize totals expenses per category. Amounts are summed as decimals so
// float noise from individual rows never leaks into the totals.
func Summarize(expenses []Expense) Summary {
	totals := make(map[Category]*CategoryTotal)
	sum := Summary{Total: decimal.Zero}
	for _, e := range expenses {
		amt := decimal.NewFromFloat(e.Amount)
		sum.Total = sum.Total.Add(amt)
		sum.Count++
		ct, ok := totals[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category, Total: decimal.Zero}
			totals[e.Category] = ct
		}
		ct.Total = ct.Total.Add(amt)
		ct.Count++
	}
	for _, ct := range totals {
		sum.ByCategory = append(sum.ByCategory, *ct)
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		if c := sum.ByCategory[i].Total.Cmp(sum.ByCategory[j].Total); c != 0 {
			return c > 0
		}
		return sum.ByCategory[i].Category < sum.ByCategory[j].Category
	})
	return sum
}

// Months lists the distinct YYYY-MM prefixes of the expense dates, newest first.
func Months(expenses []Expense) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range expenses {
		if len(e.Date) < 7 {
			continue
		}
		m := e.Date[:7]
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
