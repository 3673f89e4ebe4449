package sheets

import (
	"context"

	"smartledger/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordWriter exports one stored expense as a spreadsheet row.
	RecordWriter interface {
		Append(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// RecordIndex reports which expense ids a yearly sheet already holds, so
	// redelivered sync messages do not produce duplicate rows.
	RecordIndex interface {
		ExportedIDs(ctx context.Context, year int) (map[int64]bool, error)
	}

	RecordSink interface {
		RecordWriter
		RecordIndex
	}
)
