package http

import (
	"github.com/shopspring/decimal"

	"smartledger/internal/core"
	"smartledger/internal/services"
)

type (
	filterView struct {
		Month string
		Start string
		End   string
		// Query re-encodes the active filter for partial reloads.
		Query      string
		Label      string
		ExportURL  string
		SummaryURL string
		TableURL   string
	}

	summaryRow struct {
		Category string
		Amount   string
		Count    int
		Width    int
	}

	summaryView struct {
		Filter filterView
		Total  string
		Count  int
		Top    string
		Rows   []summaryRow
	}

	expenseRow struct {
		ID       int64
		Date     string
		Amount   string
		Category string
		Note     string
	}

	expensesView struct {
		Filter filterView
		Items  []expenseRow
	}

	pageView struct {
		Today      string
		Categories []core.Category
		Months     []string
		Filter     filterView
		Summary    summaryView
		Expenses   expensesView
	}

	// resultView is the fragment shown after submitting a sentence.
	resultView struct {
		OK        bool
		Message   string
		Date      string
		Amount    string
		Category  string
		Note      string
		Calls     int
		Corrected bool
	}
)

func newFilterView(month string, r services.Range) filterView {
	f := filterView{Month: month, Start: r.Start, End: r.End, Label: "全部"}
	switch {
	case month != "":
		f.Query = "month=" + month
		f.Label = month
	case !r.IsZero():
		f.Query = rangeQuery(r)
		f.Label = r.Start + " ~ " + r.End
	}
	suffix := ""
	if f.Query != "" {
		suffix = "?" + f.Query
	}
	f.ExportURL = "/export.csv" + suffix
	f.SummaryURL = "/ui/summary" + suffix
	f.TableURL = "/ui/expenses" + suffix
	return f
}

func newSummaryView(f filterView, sum core.Summary) summaryView {
	v := summaryView{Filter: f, Total: sum.Total.String(), Count: sum.Count}
	top := decimal.Zero
	for _, ct := range sum.ByCategory {
		if ct.Total.GreaterThan(top) {
			top = ct.Total
			v.Top = string(ct.Category)
		}
	}
	for _, ct := range sum.ByCategory {
		v.Rows = append(v.Rows, summaryRow{
			Category: string(ct.Category),
			Amount:   ct.Total.String(),
			Count:    ct.Count,
			Width:    barWidth(ct.Total, top),
		})
	}
	return v
}

func newExpensesView(f filterView, expenses []core.Expense) expensesView {
	v := expensesView{Filter: f}
	for _, e := range expenses {
		v.Items = append(v.Items, expenseRow{
			ID:       e.ID,
			Date:     e.Date,
			Amount:   formatAmount(e.Amount),
			Category: string(e.Category),
			Note:     e.Note,
		})
	}
	return v
}

func newResultView(rec core.Record, calls int, corrected bool) resultView {
	v := resultView{Note: rec.Note, Calls: calls, Corrected: corrected}
	if rec.Date != nil {
		v.Date = *rec.Date
	}
	if rec.Amount != nil {
		v.Amount = formatAmount(*rec.Amount)
	}
	if rec.Category != nil {
		v.Category = string(*rec.Category)
	}
	return v
}
