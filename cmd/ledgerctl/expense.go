package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"smartledger/internal/core"
	"smartledger/internal/services"
)

var (
	addDate     string
	addAmount   float64
	addCategory string
)

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addDate, "date", "", "Date of a manual entry (YYYY-MM-DD, default today)")
	addCmd.Flags().Float64Var(&addAmount, "amount", 0, "Amount of a manual entry; skips extraction")
	addCmd.Flags().StringVar(&addCategory, "category", "", "Category of a manual entry")
	addCmd.MarkFlagsRequiredTogether("amount", "category")
}

var extractCmd = &cobra.Command{
	Use:   "extract TEXT",
	Short: "Show what would be recorded for a sentence",
	Long: `Run the extraction pipeline on a sentence and print the record and the raw
model output without storing anything.

Examples:
  ledgerctl extract "今天花了200元搭計程車"
  ledgerctl extract --json "上週五 晚餐 350"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

var addCmd = &cobra.Command{
	Use:   "add TEXT",
	Short: "Extract and store an expense",
	Long: `Extract an expense from a sentence and store it.

With --amount and --category the sentence is skipped and the remaining
arguments become the note.

Examples:
  ledgerctl add "昨天午餐 120"
  ledgerctl add --amount 65 --category 餐飲 --date 2025-06-14 咖啡`,
	Args: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("amount") {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runAdd,
}

func runExtract(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := newService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.Preview(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, res)
	}
	printRecord(out, res.Record)
	fmt.Fprintf(out, "calls:     %d\n", res.Calls)
	if res.Corrected {
		fmt.Fprintln(out, "corrected: yes")
	}
	fmt.Fprintf(out, "raw:       %s\n", res.Raw)
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("amount") {
		return runAddManual(cmd, args)
	}
	svc, closeFn, err := newService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := svc.Record(cmd.Context(), strings.Join(args, " "))
	var incomplete *services.IncompleteError
	if errors.As(err, &incomplete) {
		printRecord(cmd.ErrOrStderr(), incomplete.Result.Record)
		return fmt.Errorf("解析失敗，請再試一次: %w", incomplete.Err)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, rec)
	}
	printRecorded(out, rec.Expense)
	return nil
}

func runAddManual(cmd *cobra.Command, args []string) error {
	category, ok := core.ParseCategory(addCategory)
	if !ok {
		return fmt.Errorf("unknown category %q (want one of %v)", addCategory, core.Categories())
	}
	date := addDate
	if date == "" {
		date = time.Now().Format(core.DateLayout)
	}
	amount := addAmount
	rec := core.Record{Date: &date, Amount: &amount, Category: &category, Note: strings.Join(args, " ")}

	svc, closeFn, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := svc.Add(cmd.Context(), rec)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), e)
	}
	printRecorded(cmd.OutOrStdout(), e)
	return nil
}

func printRecorded(w io.Writer, e core.Expense) {
	fmt.Fprintf(w, "recorded #%d: %s %s %s %s\n", e.ID, e.Date, formatAmount(e.Amount), e.Category, e.Note)
}

func printRecord(w io.Writer, rec core.Record) {
	fmt.Fprintf(w, "date:      %s\n", orDash(rec.Date))
	amount := "-"
	if rec.Amount != nil {
		amount = formatAmount(*rec.Amount)
	}
	fmt.Fprintf(w, "amount:    %s\n", amount)
	category := "-"
	if rec.Category != nil {
		category = string(*rec.Category)
	}
	fmt.Fprintf(w, "category:  %s\n", category)
	fmt.Fprintf(w, "note:      %s\n", rec.Note)
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
