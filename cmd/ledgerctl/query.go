package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"smartledger/internal/core"
	"smartledger/internal/services"
)

var (
	qMonth string
	qFrom  string
	qTo    string
	qOut   string
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)

	for _, c := range []*cobra.Command{listCmd, summaryCmd, exportCmd} {
		c.Flags().StringVar(&qMonth, "month", "", "Month to show (YYYY-MM)")
		c.Flags().StringVar(&qFrom, "from", "", "First date, inclusive (YYYY-MM-DD)")
		c.Flags().StringVar(&qTo, "to", "", "Last date, inclusive (YYYY-MM-DD)")
		c.MarkFlagsMutuallyExclusive("month", "from")
		c.MarkFlagsMutuallyExclusive("month", "to")
	}
	exportCmd.Flags().StringVarP(&qOut, "out", "o", "", "Output file (default: expenses_<range>.csv, - for stdout)")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses, newest first",
	Long: `List stored expenses, optionally filtered by month or date range.

Examples:
  ledgerctl list
  ledgerctl list --month 2025-06
  ledgerctl list --from 2025-06-01 --to 2025-06-15`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show totals per category",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export expenses as CSV",
	Long: `Export expenses as UTF-8 CSV (with byte order mark) with the columns
id,date,amount,category,note.

Examples:
  ledgerctl export --month 2025-06
  ledgerctl export --out - | head`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// rangeFromFlags builds the filter; no flags selects every expense and a
// single bound selects that one day.
func rangeFromFlags(month, from, to string) (services.Range, error) {
	if month != "" {
		return services.MonthRange(month)
	}
	r := services.Range{Start: from, End: to}
	if r.Start == "" {
		r.Start = r.End
	}
	if r.End == "" {
		r.End = r.Start
	}
	return r, r.Validate()
}

func runList(cmd *cobra.Command, _ []string) error {
	rng, err := rangeFromFlags(qMonth, qFrom, qTo)
	if err != nil {
		return err
	}
	svc, closeFn, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	expenses, err := svc.List(cmd.Context(), rng)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outputJSON {
		if expenses == nil {
			expenses = []core.Expense{}
		}
		return writeJSON(out, expenses)
	}
	printExpenses(out, expenses)
	return nil
}

func printExpenses(w io.Writer, expenses []core.Expense) {
	if len(expenses) == 0 {
		fmt.Fprintln(w, "no expenses")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCATEGORY\tNOTE")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Date, formatAmount(e.Amount), e.Category, e.Note)
	}
	tw.Flush()
}

func runSummary(cmd *cobra.Command, _ []string) error {
	rng, err := rangeFromFlags(qMonth, qFrom, qTo)
	if err != nil {
		return err
	}
	svc, closeFn, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	sum, err := svc.Summary(cmd.Context(), rng)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, sum)
	}
	printSummary(out, sum)
	return nil
}

func printSummary(w io.Writer, sum core.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL\tCOUNT")
	for _, ct := range sum.ByCategory {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", ct.Category, ct.Total.String(), ct.Count)
	}
	fmt.Fprintf(tw, "合計\t%s\t%d\n", sum.Total.String(), sum.Count)
	tw.Flush()
}

func runExport(cmd *cobra.Command, _ []string) error {
	rng, err := rangeFromFlags(qMonth, qFrom, qTo)
	if err != nil {
		return err
	}
	svc, closeFn, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	path := qOut
	if path == "" {
		path = services.ExportFilename(rng)
	}
	if path == "-" {
		return svc.ExportCSV(cmd.Context(), cmd.OutOrStdout(), rng)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := svc.ExportCSV(cmd.Context(), f, rng); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	return nil
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}
