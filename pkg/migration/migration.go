// SPDX-License-Identifier: Apache-2.0

// Package migration executes a batch of DDL/DML statements against a single
// pinned connection, either committing the whole batch or, in dry-run mode,
// running each statement under its own savepoint (rolled back only when that
// statement fails) so later statements still see earlier effects, then
// rolling back the whole transaction so nothing persists.
package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuskerhq/tusker-core/internal/dberr"
)

const (
	lockNotAvailableSQLState = "55P03"
	maxBackoffDuration       = 1 * time.Minute
	backoffInterval          = 1 * time.Second

	defaultLockTimeoutMs      = 5000
	defaultStatementTimeoutMs = 30000

	// idleInTransactionSessionTimeoutMs is not caller-configurable: every
	// migration session gets the same guard against a stalled transaction.
	idleInTransactionSessionTimeoutMs = 60000

	applicationName = "tusker-core"
)

// Request describes one migration run: the statements to execute and the
// session-local timeouts/dry-run flag governing how they execute. A zero
// LockTimeoutMs/StatementTimeoutMs means "use the default", not "disabled".
type Request struct {
	Statements         []string `json:"statements"`
	DryRun             bool     `json:"dry_run"`
	LockTimeoutMs      int      `json:"lock_timeout_ms,omitempty"`
	StatementTimeoutMs int      `json:"statement_timeout_ms,omitempty"`
}

// StatementError is the structured failure detail for one statement,
// carrying whatever PostgreSQL reported beyond a bare message.
type StatementError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// StatementResult reports the outcome of executing one statement.
type StatementResult struct {
	SQL          string          `json:"sql"`
	Ok           bool            `json:"ok"`
	DurationMs   float64         `json:"duration_ms"`
	RowsAffected *int64          `json:"rows_affected,omitempty"`
	Error        *StatementError `json:"error,omitempty"`
}

// Result is the outcome of an entire migration run.
type Result struct {
	Ok                 bool              `json:"ok"`
	DryRun             bool              `json:"dry_run"`
	Committed          bool              `json:"committed"`
	DurationMs         float64           `json:"duration_ms"`
	Statements         []StatementResult `json:"statements"`
	LockTimeoutMs      int               `json:"lock_timeout_ms"`
	StatementTimeoutMs int               `json:"statement_timeout_ms"`
}

// Executor runs migration requests. It carries no state of its own.
type Executor struct{}

// NewExecutor constructs an Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs req.Statements against a single connection pinned for the
// whole batch. On a real run, every statement runs in one transaction that
// commits only if every statement succeeds. On a dry run, each statement
// runs inside its own savepoint which is rolled back only on failure, so
// statement N+1 still observes statement N's effects, and nothing survives
// past the outer transaction's rollback at the end.
//
// A migration-level error (Go's error return) represents either an empty
// statement list or an infrastructure failure — acquiring a connection,
// starting the transaction, or the savepoint bookkeeping around a dry run. An individual
// statement failing, a setup statement failing, or the final commit failing
// are all expected outcomes: they are captured into Result instead, with
// Ok set to false.
func (e *Executor) Execute(ctx context.Context, pool *pgxpool.Pool, req Request) (*Result, error) {
	if len(req.Statements) == 0 {
		return nil, dberr.InvalidQuery("no statements provided for migration")
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, dberr.Database(err, "failed to acquire a connection for migration")
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, dberr.Database(err, "failed to start migration transaction")
	}

	lockTimeoutMs := req.LockTimeoutMs
	if lockTimeoutMs <= 0 {
		lockTimeoutMs = defaultLockTimeoutMs
	}
	statementTimeoutMs := req.StatementTimeoutMs
	if statementTimeoutMs <= 0 {
		statementTimeoutMs = defaultStatementTimeoutMs
	}

	result := &Result{
		DryRun:             req.DryRun,
		LockTimeoutMs:      lockTimeoutMs,
		StatementTimeoutMs: statementTimeoutMs,
	}
	start := time.Now()
	defer func() { result.DurationMs = elapsedMs(start) }()

	if failure := applySessionSettings(ctx, tx, lockTimeoutMs, statementTimeoutMs); failure != nil {
		_ = tx.Rollback(ctx)
		result.Statements = []StatementResult{*failure}
		result.Ok = false
		result.Committed = false
		return result, nil
	}

	if req.DryRun {
		return executeDryRun(ctx, tx, req.Statements, result)
	}
	return executeApply(ctx, tx, req.Statements, result)
}

// applySessionSettings sets the session-local guards every migration runs
// under. It returns a non-nil StatementResult describing the first setting
// that failed to apply; nothing is applied after that point.
func applySessionSettings(ctx context.Context, tx pgx.Tx, lockTimeoutMs, statementTimeoutMs int) *StatementResult {
	settings := []string{
		fmt.Sprintf("SET LOCAL lock_timeout = %d", lockTimeoutMs),
		fmt.Sprintf("SET LOCAL statement_timeout = %d", statementTimeoutMs),
		fmt.Sprintf("SET LOCAL idle_in_transaction_session_timeout = %d", idleInTransactionSessionTimeoutMs),
		fmt.Sprintf("SET LOCAL application_name = '%s'", applicationName),
	}

	for _, stmt := range settings {
		setupStart := time.Now()
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return &StatementResult{
				SQL:        stmt,
				Ok:         false,
				DurationMs: elapsedMs(setupStart),
				Error:      statementError(err),
			}
		}
	}
	return nil
}

// executeApply runs statements sequentially in a single transaction. The
// first failure aborts the whole batch and leaves the transaction
// uncommitted; otherwise it commits once every statement has succeeded.
func executeApply(ctx context.Context, tx pgx.Tx, statements []string, result *Result) (*Result, error) {
	result.Statements = make([]StatementResult, 0, len(statements))

	for _, raw := range statements {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}

		stmtStart := time.Now()
		tag, err := execWithLockRetry(ctx, tx, stmt)
		duration := elapsedMs(stmtStart)
		if err != nil {
			result.Statements = append(result.Statements, StatementResult{
				SQL:        stmt,
				Ok:         false,
				DurationMs: duration,
				Error:      statementError(err),
			})
			_ = tx.Rollback(ctx)
			result.Ok = false
			result.Committed = false
			return result, nil
		}

		rows := tag.RowsAffected()
		result.Statements = append(result.Statements, StatementResult{
			SQL:          stmt,
			Ok:           true,
			DurationMs:   duration,
			RowsAffected: &rows,
		})
	}

	commitStart := time.Now()
	if err := tx.Commit(ctx); err != nil {
		result.Statements = append(result.Statements, StatementResult{
			SQL:        "COMMIT",
			Ok:         false,
			DurationMs: elapsedMs(commitStart),
			Error:      statementError(err),
		})
		result.Ok = false
		result.Committed = false
		return result, nil
	}

	result.Ok = true
	result.Committed = true
	return result, nil
}

// executeDryRun runs each statement inside its own savepoint. A statement
// that fails is rolled back to its savepoint so the batch can continue; one
// that succeeds keeps its savepoint open so later statements observe its
// effects. The whole transaction is rolled back at the end regardless.
func executeDryRun(ctx context.Context, tx pgx.Tx, statements []string, result *Result) (*Result, error) {
	result.Statements = make([]StatementResult, 0, len(statements))
	ok := true
	idx := 0

	for _, raw := range statements {
		stmt := strings.TrimSpace(raw)
		if stmt == "" {
			continue
		}
		savepoint := fmt.Sprintf("s%d", idx)
		idx++

		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			_ = tx.Rollback(ctx)
			return nil, dberr.Database(err, "failed to create savepoint for statement %d", idx)
		}

		stmtStart := time.Now()
		tag, err := execWithLockRetry(ctx, tx, stmt)
		duration := elapsedMs(stmtStart)
		if err != nil {
			ok = false
			result.Statements = append(result.Statements, StatementResult{
				SQL:        stmt,
				Ok:         false,
				DurationMs: duration,
				Error:      statementError(err),
			})
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
				_ = tx.Rollback(ctx)
				return nil, dberr.Database(rbErr, "failed to roll back to savepoint for statement %d", idx)
			}
			continue
		}

		rows := tag.RowsAffected()
		result.Statements = append(result.Statements, StatementResult{
			SQL:          stmt,
			Ok:           true,
			DurationMs:   duration,
			RowsAffected: &rows,
		})
	}

	if err := tx.Rollback(ctx); err != nil {
		return nil, dberr.Database(err, "failed to roll back dry-run migration")
	}
	result.Ok = ok
	result.Committed = false
	return result, nil
}

// execWithLockRetry runs stmt, retrying with exponential backoff when it
// fails with a lock_timeout SQLSTATE rather than surfacing a transient lock
// contention error to the caller.
func execWithLockRetry(ctx context.Context, tx pgx.Tx, stmt string) (pgconn.CommandTag, error) {
	const savepoint = "lock_retry"
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		// A failed statement aborts the transaction, so each attempt runs
		// under a savepoint that a lock failure can roll back to.
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepoint); err != nil {
			return pgconn.CommandTag{}, err
		}
		tag, err := tx.Exec(ctx, stmt)
		if err == nil {
			if _, relErr := tx.Exec(ctx, "RELEASE SAVEPOINT "+savepoint); relErr != nil {
				return tag, relErr
			}
			return tag, nil
		}

		pgErr, ok := asPgError(err)
		if !ok || pgErr.Code != lockNotAvailableSQLState {
			return tag, err
		}

		if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return tag, rbErr
		}
		if sleepErr := sleepCtx(ctx, b.Duration()); sleepErr != nil {
			return tag, sleepErr
		}
	}
}

// statementError builds the structured error detail for a failed
// statement, extracting SQLSTATE code/message/detail/hint when the
// underlying driver error is a *pgconn.PgError.
func statementError(err error) *StatementError {
	if pgErr, ok := asPgError(err); ok {
		return &StatementError{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Detail:  pgErr.Detail,
			Hint:    pgErr.Hint,
		}
	}
	return &StatementError{Message: err.Error()}
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
