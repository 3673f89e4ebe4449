// Package storagetest holds behaviour checks shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartledger/internal/core"
	"smartledger/internal/storage"
)

// Run exercises newStore against the storage.Store contract. newStore must
// return an empty store; Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"insert and get", testInsertGet},
		{"list ordering", testListOrdering},
		{"list between inclusive", testListBetween},
		{"delete by ids", testDeleteByIDs},
		{"delete by range", testDeleteByRange},
		{"delete all", testDeleteAll},
		{"model output", testModelOutput},
		{"pending sync", testPendingSync},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

type seed struct {
	date     string
	amount   float64
	category core.Category
	note     string
}

func insertAll(t *testing.T, s storage.Store, rows ...seed) []int64 {
	t.Helper()
	ids := make([]int64, len(rows))
	for i, r := range rows {
		id, err := s.Insert(context.Background(), r.date, r.amount, r.category, r.note)
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func dates(expenses []core.Expense) []string {
	out := make([]string, len(expenses))
	for i, e := range expenses {
		out[i] = e.Date
	}
	return out
}

func testInsertGet(t *testing.T, s storage.Store) {
	ctx := context.Background()
	ids := insertAll(t, s, seed{"2025-06-15", 200, core.CategoryTransport, "搭計程車"})

	e, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], e.ID)
	assert.Equal(t, "2025-06-15", e.Date)
	assert.Equal(t, 200.0, e.Amount)
	assert.Equal(t, core.CategoryTransport, e.Category)
	assert.Equal(t, "搭計程車", e.Note)
	assert.False(t, e.CreatedAt.IsZero())

	_, err = s.Get(ctx, ids[0]+100)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func testListOrdering(t *testing.T, s storage.Store) {
	ids := insertAll(t, s,
		seed{"2025-06-01", 12000, core.CategoryHousing, "房租"},
		seed{"2025-06-15", 200, core.CategoryTransport, ""},
		seed{"2025-06-15", 65, core.CategoryDining, "咖啡"},
		seed{"2025-05-31", 300, core.CategoryLeisure, ""},
	)

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"2025-06-15", "2025-06-15", "2025-06-01", "2025-05-31"}, dates(all))
	assert.Equal(t, ids[2], all[0].ID, "same date orders by id descending")
	assert.Equal(t, ids[1], all[1].ID)
}

func testListBetween(t *testing.T, s storage.Store) {
	insertAll(t, s,
		seed{"2025-05-31", 1, core.CategoryDining, ""},
		seed{"2025-06-01", 2, core.CategoryDining, ""},
		seed{"2025-06-30", 3, core.CategoryDining, ""},
		seed{"2025-07-01", 4, core.CategoryDining, ""},
	)

	got, err := s.ListBetween(context.Background(), "2025-06-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-30", "2025-06-01"}, dates(got))

	got, err = s.ListBetween(context.Background(), "2024-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testDeleteByIDs(t *testing.T, s storage.Store) {
	ctx := context.Background()
	ids := insertAll(t, s,
		seed{"2025-06-01", 1, core.CategoryDining, ""},
		seed{"2025-06-02", 2, core.CategoryDining, ""},
		seed{"2025-06-03", 3, core.CategoryDining, ""},
	)

	n, err := s.DeleteByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.DeleteByIDs(ctx, []int64{ids[0], ids[2], ids[2] + 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, ids[1], left[0].ID)
}

func testDeleteByRange(t *testing.T, s storage.Store) {
	ctx := context.Background()
	insertAll(t, s,
		seed{"2025-05-31", 1, core.CategoryDining, ""},
		seed{"2025-06-01", 2, core.CategoryDining, ""},
		seed{"2025-06-30", 3, core.CategoryDining, ""},
	)

	n, err := s.DeleteByRange(ctx, "2025-06-01", "2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-05-31"}, dates(left))
}

func testDeleteAll(t *testing.T, s storage.Store) {
	ctx := context.Background()
	insertAll(t, s,
		seed{"2025-06-01", 1, core.CategoryDining, ""},
		seed{"2025-06-02", 2, core.CategoryShopping, ""},
	)

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func testModelOutput(t *testing.T, s storage.Store) {
	ids := insertAll(t, s, seed{"2025-06-14", 120, core.CategoryDining, "午餐"})
	require.NoError(t, s.SaveModelOutput(context.Background(), ids[0], `{"category":"餐飲"}`, true))
}

func testPendingSync(t *testing.T, s storage.Store) {
	ctx := context.Background()
	ids := insertAll(t, s,
		seed{"2025-06-03", 1, core.CategoryDining, ""},
		seed{"2025-06-01", 2, core.CategoryDining, ""},
		seed{"2025-06-02", 3, core.CategoryDining, ""},
	)

	pending, err := s.ListPendingSync(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID, "pending rows come oldest id first")
	assert.Equal(t, ids[1], pending[1].ID)

	require.NoError(t, s.MarkSyncError(ctx, ids[0], errors.New("quota exceeded")))
	require.NoError(t, s.MarkSynced(ctx, ids[1]))

	pending, err = s.ListPendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[2], pending[0].ID, "failed rows queue behind untried ones")
	assert.Equal(t, ids[0], pending[1].ID)

	require.NoError(t, s.MarkSyncError(ctx, ids[2], errors.New("quota exceeded")))
	require.NoError(t, s.MarkSyncError(ctx, ids[2], errors.New("quota exceeded")))
	pending, err = s.ListPendingSync(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[0], pending[0].ID, "fewest failed attempts first")

	assert.ErrorIs(t, s.MarkSynced(ctx, ids[2]+1000), storage.ErrNotFound)
}
