package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// utf8BOM makes spreadsheet applications detect UTF-8.
const utf8BOM = "\ufeff"

// ExportCSV writes the expenses in r as CSV with a UTF-8 byte order mark.
func (s *ExpenseService) ExportCSV(ctx context.Context, w io.Writer, r Range) error {
	expenses, err := s.List(ctx, r)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "date", "amount", "category", "note"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range expenses {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date,
			strconv.FormatFloat(e.Amount, 'f', -1, 64),
			string(e.Category),
			e.Note,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
