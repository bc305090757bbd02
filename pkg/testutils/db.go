// SPDX-License-Identifier: Apache-2.0

// Package testutils provides the shared Postgres test-container harness for
// tusker-core's integration tests, adapted from the teacher's SharedTestMain
// to hand out *pgxpool.Pool values instead of *sql.DB ones.
package testutils

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPostgresVersion = "16.4"

// tConnStr holds the connection string to the test container created in
// SharedTestMain.
var tConnStr string

// SharedTestMain starts a postgres container shared by every test in a
// package. Each test then connects to it and creates its own database, so
// tests stay isolated without paying for a container per test. Packages call
// it from their TestMain. When TUSKER_TEST_POSTGRES_URL is set, that server
// is used and no container is started; when the container cannot be
// started, the process exits with status 0 without running any test.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	if external := os.Getenv("TUSKER_TEST_POSTGRES_URL"); external != "" {
		tConnStr = external
		os.Exit(m.Run())
	}

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(30 * time.Second)

	pgVersion := os.Getenv("POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+pgVersion),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		log.Printf("skipping: failed to start postgres container: %v", err)
		os.Exit(0)
	}

	tConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %v", err)
	}

	os.Exit(exitCode)
}

// WithPool creates a fresh database in the shared container, opens a pool
// to it, and hands both to fn, cleaning up the pool when the test ends.
func WithPool(t *testing.T, fn func(pool *pgxpool.Pool, connStr string)) {
	t.Helper()
	ctx := context.Background()

	pool, connStr := setupTestDatabase(t, ctx)
	fn(pool, connStr)
}

func setupTestDatabase(t *testing.T, ctx context.Context) (*pgxpool.Pool, string) {
	t.Helper()

	adminPool, err := pgxpool.New(ctx, tConnStr)
	if err != nil {
		t.Fatalf("failed to connect to test container: %v", err)
	}
	t.Cleanup(adminPool.Close)

	dbName := randomDBName()
	if _, err := adminPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	u, err := url.Parse(tConnStr)
	if err != nil {
		t.Fatalf("failed to parse test container connection string: %v", err)
	}
	u.Path = "/" + dbName
	connStr := u.String()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool, connStr
}
