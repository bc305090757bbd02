// Package dberr defines the uniform error taxonomy shared by every
// component of tusker-core. Every exported operation returns a *dberr.Error
// on failure so that a caller across the FFI/command boundary can
// deserialize {code, message, details} without inspecting Go error chains.
package dberr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code is a stable, serializable error classification.
type Code string

const (
	CodeDatabase                Code = "DATABASE_ERROR"
	CodeConnectionNotFound      Code = "CONNECTION_NOT_FOUND"
	CodeConnectionAlreadyExists Code = "CONNECTION_ALREADY_EXISTS"
	CodeInvalidConnectionString Code = "INVALID_CONNECTION_STRING"
	CodeKeyring                 Code = "KEYRING_ERROR"
	CodeSerialization           Code = "SERIALIZATION_ERROR"
	CodeInvalidQuery            Code = "INVALID_QUERY"
	CodeTableNotFound           Code = "TABLE_NOT_FOUND"
	CodeSchemaNotFound          Code = "SCHEMA_NOT_FOUND"
	CodeLock                    Code = "LOCK_ERROR"
	CodeConfiguration           Code = "CONFIGURATION_ERROR"
	CodeExport                  Code = "EXPORT_ERROR"
)

// Error is the concrete error type returned by every tusker-core operation.
type Error struct {
	Code    Code
	Message string
	Details string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// MarshalJSON renders the error as {code, message, details} the way the
// original Rust ErrorResponse type did.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := struct {
		Code    Code    `json:"code"`
		Message string  `json:"message"`
		Details *string `json:"details"`
	}{
		Code:    e.Code,
		Message: e.Message,
	}
	if e.Details != "" {
		out.Details = &e.Details
	}
	return json.Marshal(out)
}

func new(code Code, cause error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	e := &Error{Code: code, Message: msg, cause: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// Database wraps a low-level driver/pool error.
func Database(cause error, format string, args ...any) *Error {
	return new(CodeDatabase, cause, format, args...)
}

// ConnectionNotFound reports a lookup against an id not present in the registry.
func ConnectionNotFound(id string) *Error {
	return new(CodeConnectionNotFound, nil, "connection not found: %s", id)
}

// ConnectionAlreadyExists reports an attempt to connect a live id again.
func ConnectionAlreadyExists(id string) *Error {
	return new(CodeConnectionAlreadyExists, nil, "connection already exists: %s", id)
}

// InvalidConnectionString reports a malformed connection configuration.
func InvalidConnectionString(cause error, format string, args ...any) *Error {
	return new(CodeInvalidConnectionString, cause, format, args...)
}

// Keyring wraps an OS-keyring failure.
func Keyring(cause error, format string, args ...any) *Error {
	return new(CodeKeyring, cause, format, args...)
}

// Serialization wraps a JSON marshal/unmarshal failure.
func Serialization(cause error, format string, args ...any) *Error {
	return new(CodeSerialization, cause, format, args...)
}

// InvalidQuery reports a caller-supplied request that cannot be rendered to SQL.
func InvalidQuery(format string, args ...any) *Error {
	return new(CodeInvalidQuery, nil, format, args...)
}

// TableNotFound reports a missing table/view.
func TableNotFound(schema, table string) *Error {
	return new(CodeTableNotFound, nil, "table not found: %s.%s", schema, table)
}

// SchemaNotFound reports a missing schema.
func SchemaNotFound(schema string) *Error {
	return new(CodeSchemaNotFound, nil, "schema not found: %s", schema)
}

// Lock reports a lock/statement-timeout failure.
func Lock(cause error, format string, args ...any) *Error {
	return new(CodeLock, cause, format, args...)
}

// Configuration reports an invalid runtime configuration.
func Configuration(format string, args ...any) *Error {
	return new(CodeConfiguration, nil, format, args...)
}

// Export wraps a failure in the export/import codec.
func Export(cause error, format string, args ...any) *Error {
	return new(CodeExport, cause, format, args...)
}

// As is a convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ResponseOf renders err as the serializable {code, message, details} shape,
// defaulting to CodeDatabase for errors that did not originate in this package.
func ResponseOf(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Database(err, "%s", err.Error())
}
