// SPDX-License-Identifier: Apache-2.0

package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint violation names, matching the condition names Postgres itself
// uses in pg_catalog and in psql's own error output.
const (
	CheckViolation   = "check_violation"
	FKViolation      = "foreign_key_violation"
	NotNullViolation = "not_null_violation"
	UniqueViolation  = "unique_violation"
)

// sqlstateViolations maps the SQLSTATE class-23 (integrity constraint
// violation) codes a row-level write can fail with to their condition name.
var sqlstateViolations = map[string]string{
	"23502": NotNullViolation,
	"23503": FKViolation,
	"23505": UniqueViolation,
	"23514": CheckViolation,
}

// ClassifyConstraintViolation reports the constraint-violation name for err,
// if err wraps a *pgconn.PgError carrying one of the SQLSTATE codes above.
func ClassifyConstraintViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	name, ok := sqlstateViolations[pgErr.Code]
	return name, ok
}

// Write wraps a row-level insert/update/delete failure, classifying it as a
// named constraint violation when the underlying driver error identifies
// one so callers get a stable string instead of parsing Message/Detail.
func Write(cause error, format string, args ...any) *Error {
	e := new(CodeDatabase, cause, format, args...)
	if name, ok := ClassifyConstraintViolation(cause); ok {
		e.Details = name + ": " + e.Details
	}
	return e
}
