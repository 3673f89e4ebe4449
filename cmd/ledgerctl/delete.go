package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	delAll  bool
	delIDs  string
	delFrom string
	delTo   string
)

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&delAll, "all", false, "Delete every expense")
	deleteCmd.Flags().StringVar(&delIDs, "ids", "", "Comma separated expense ids")
	deleteCmd.Flags().StringVar(&delFrom, "from", "", "First date to delete, inclusive (YYYY-MM-DD)")
	deleteCmd.Flags().StringVar(&delTo, "to", "", "Last date to delete, inclusive (YYYY-MM-DD)")
	deleteCmd.MarkFlagsMutuallyExclusive("all", "ids", "from")
	deleteCmd.MarkFlagsMutuallyExclusive("all", "ids", "to")
	deleteCmd.MarkFlagsRequiredTogether("from", "to")
	deleteCmd.MarkFlagsOneRequired("all", "ids", "from")
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete expenses by id, date range or all",
	Long: `Delete expenses.

Examples:
  ledgerctl delete --ids 3,7
  ledgerctl delete --from 2025-06-01 --to 2025-06-30
  ledgerctl delete --all`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, _ []string) error {
	var ids []int64
	if delIDs != "" {
		parsed, err := parseIDList(delIDs)
		if err != nil {
			return err
		}
		ids = parsed
	}

	svc, closeFn, err := newService(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	var n int64
	switch {
	case delAll:
		n, err = svc.DeleteAll(ctx)
	case ids != nil:
		n, err = svc.Delete(ctx, ids)
	default:
		rng, rerr := rangeFromFlags("", delFrom, delTo)
		if rerr != nil {
			return rerr
		}
		n, err = svc.DeleteRange(ctx, rng)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expense(s)\n", n)
	return nil
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid expense id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no expense ids given")
	}
	return ids, nil
}
