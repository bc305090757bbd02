// SPDX-License-Identifier: Apache-2.0

package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestAsPgErrorMatchesOnlyTypedPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "55P03", Message: "lock not available"}
	wrapped := errors.New("wrapping: " + pgErr.Error())
	_, ok := asPgError(wrapped)
	assert.False(t, ok, "plain wrapped string should not match")

	_, ok = asPgError(pgErr)
	assert.True(t, ok)
}

func TestAsPgErrorNonPgError(t *testing.T) {
	_, ok := asPgError(errors.New("boom"))
	assert.False(t, ok)
}

func TestSleepCtxRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepCtx(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepCtxReturnsAfterDuration(t *testing.T) {
	err := sleepCtx(context.Background(), time.Millisecond)
	assert.NoError(t, err)
}

func TestExecuteRejectsEmptyStatements(t *testing.T) {
	e := NewExecutor()
	_, err := e.Execute(context.Background(), nil, Request{})
	assert.Error(t, err)
}
