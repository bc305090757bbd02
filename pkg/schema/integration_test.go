// SPDX-License-Identifier: Apache-2.0

package schema_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tuskerhq/tusker-core/pkg/schema"
	"github.com/tuskerhq/tusker-core/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestGetTablesAndColumnsReflectTheCatalog(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		_, err := pool.Exec(ctx, `
			CREATE TABLE parts (
				id serial primary key,
				sku text not null unique,
				quantity integer not null default 0
			)
		`)
		require.NoError(t, err)

		in := schema.NewIntrospector()

		tables, err := in.GetTables(ctx, pool, "public")
		require.NoError(t, err)
		require.Len(t, tables, 1)
		require.Equal(t, "parts", tables[0].Name)

		columns, err := in.GetColumns(ctx, pool, "public", "parts")
		require.NoError(t, err)
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = c.Name
		}
		require.ElementsMatch(t, []string{"id", "sku", "quantity"}, names)
	})
}

func TestGetRowCountMatchesActualRows(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		_, err := pool.Exec(ctx, "CREATE TABLE counters (id serial primary key)")
		require.NoError(t, err)
		_, err = pool.Exec(ctx, "INSERT INTO counters DEFAULT VALUES; INSERT INTO counters DEFAULT VALUES")
		require.NoError(t, err)

		in := schema.NewIntrospector()
		count, err := in.GetRowCount(ctx, pool, "public", "counters")
		require.NoError(t, err)
		require.EqualValues(t, 2, count)
	})
}
