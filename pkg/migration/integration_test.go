// SPDX-License-Identifier: Apache-2.0

package migration_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tuskerhq/tusker-core/pkg/migration"
	"github.com/tuskerhq/tusker-core/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

func TestExecuteCommitsWhenEveryStatementSucceeds(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		e := migration.NewExecutor()

		result, err := e.Execute(ctx, pool, migration.Request{
			Statements: []string{
				"CREATE TABLE widgets (id serial primary key, name text)",
				"INSERT INTO widgets (name) VALUES ('a'), ('b')",
			},
		})
		require.NoError(t, err)
		require.True(t, result.Ok)
		require.True(t, result.Committed)
		require.False(t, result.DryRun)
		require.Equal(t, 5000, result.LockTimeoutMs)
		require.Equal(t, 30000, result.StatementTimeoutMs)
		require.Len(t, result.Statements, 2)
		require.True(t, result.Statements[0].Ok)
		require.True(t, result.Statements[1].Ok)
		require.NotNil(t, result.Statements[1].RowsAffected)
		require.EqualValues(t, 2, *result.Statements[1].RowsAffected)

		var count int64
		require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
		require.EqualValues(t, 2, count)
	})
}

func TestExecuteStopsAtFirstFailureAndRollsBack(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		e := migration.NewExecutor()

		result, err := e.Execute(ctx, pool, migration.Request{
			Statements: []string{
				"CREATE TABLE gadgets (id serial primary key)",
				"INSERT INTO nonexistent_table (id) VALUES (1)",
				"CREATE TABLE never_reached (id serial primary key)",
			},
		})
		require.NoError(t, err)
		require.False(t, result.Ok)
		require.False(t, result.Committed)
		require.Len(t, result.Statements, 2)
		require.True(t, result.Statements[0].Ok)
		require.False(t, result.Statements[1].Ok)
		require.NotNil(t, result.Statements[1].Error)
		require.NotEmpty(t, result.Statements[1].Error.Message)

		var exists bool
		err = pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'gadgets')").Scan(&exists)
		require.NoError(t, err)
		require.False(t, exists, "the whole batch must roll back, including the statement that succeeded")
	})
}

func TestExecuteDryRunLeavesNoTrace(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		e := migration.NewExecutor()

		before := schemaSnapshot(t, ctx, pool)

		result, err := e.Execute(ctx, pool, migration.Request{
			DryRun: true,
			Statements: []string{
				"CREATE TABLE dry_run_table (id serial primary key)",
				"ALTER TABLE dry_run_table ADD COLUMN name text",
			},
		})
		require.NoError(t, err)
		require.True(t, result.Ok)
		require.False(t, result.Committed)
		require.True(t, result.DryRun)
		require.Len(t, result.Statements, 2)
		require.True(t, result.Statements[0].Ok)
		require.True(t, result.Statements[1].Ok, "the ALTER TABLE must see the preceding CREATE TABLE's effect even though neither is committed")

		after := schemaSnapshot(t, ctx, pool)
		require.Equal(t, before, after, "a dry run must be byte-for-byte a no-op")
	})
}

func TestExecuteDryRunAccumulatesAcrossAFailure(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(pool *pgxpool.Pool, _ string) {
		ctx := context.Background()
		e := migration.NewExecutor()

		result, err := e.Execute(ctx, pool, migration.Request{
			DryRun: true,
			Statements: []string{
				"CREATE TABLE accum_table (id serial primary key)",
				"SELECT * FROM nonexistent_in_dry_run",
				"ALTER TABLE accum_table ADD COLUMN name text",
			},
		})
		require.NoError(t, err)
		require.False(t, result.Ok, "Ok is the AND of every statement")
		require.False(t, result.Committed)
		require.Len(t, result.Statements, 3)
		require.True(t, result.Statements[0].Ok)
		require.False(t, result.Statements[1].Ok)
		require.True(t, result.Statements[2].Ok, "the failed statement's savepoint rollback must not undo the first statement's effect")
	})
}

func schemaSnapshot(t *testing.T, ctx context.Context, pool *pgxpool.Pool) []string {
	t.Helper()
	rows, err := pool.Query(ctx, "SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	return names
}
