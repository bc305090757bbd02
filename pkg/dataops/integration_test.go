// SPDX-License-Identifier: Apache-2.0

package dataops_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tuskerhq/tusker-core/pkg/dataops"
	"github.com/tuskerhq/tusker-core/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func createWidgetsTable(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(ctx, "CREATE TABLE widgets (id serial primary key, name text not null, price numeric)")
	require.NoError(t, err)
}

func TestBulkInsertReportsRowsAffected(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		createWidgetsTable(t, ctx, pool)
		ops := dataops.NewOperations()

		rows, err := ops.BulkInsert(ctx, pool, dataops.BulkInsertRequest{
			Schema: "public",
			Table:  "widgets",
			Rows: []map[string]any{
				{"name": "bolt", "price": 1.5},
				{"name": "nut", "price": 0.5},
				{"name": "washer", "price": 0.1},
			},
		})
		require.NoError(t, err)
		require.EqualValues(t, 3, rows)

		var count int64
		require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
		require.EqualValues(t, 3, count)
	})
}

func TestFetchPaginatedReportsTotalCountAndPages(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		createWidgetsTable(t, ctx, pool)
		ops := dataops.NewOperations()

		_, err := ops.BulkInsert(ctx, pool, dataops.BulkInsertRequest{
			Schema: "public",
			Table:  "widgets",
			Rows: []map[string]any{
				{"name": "bolt", "price": 1.5},
				{"name": "nut", "price": 0.5},
				{"name": "washer", "price": 0.1},
				{"name": "screw", "price": 0.2},
				{"name": "rivet", "price": 0.3},
			},
		})
		require.NoError(t, err)

		pageSize := int64(2)
		page1, err := ops.FetchPaginated(ctx, pool, "public", "widgets", 1, &pageSize, nil, nil, nil)
		require.NoError(t, err)
		require.EqualValues(t, 5, page1.TotalCount)
		require.EqualValues(t, 3, page1.TotalPages)
		require.Len(t, page1.Rows, 2)

		page3, err := ops.FetchPaginated(ctx, pool, "public", "widgets", 3, &pageSize, nil, nil, nil)
		require.NoError(t, err)
		require.Len(t, page3.Rows, 1, "the last page only has the remainder")
	})
}
