// SPDX-License-Identifier: Apache-2.0

package dataops

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestRenderPGValueNil(t *testing.T) {
	assert.Nil(t, renderPGValue(nil, pgtype.TextOID))
}

func TestRenderPGValueTimestamptzFormatsRFC3339(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T12:30:00Z", renderPGValue(ts, pgtype.TimestamptzOID))
}

func TestRenderPGValueDateFormatsDateOnly(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01", renderPGValue(ts, pgtype.DateOID))
}

func TestRenderPGValueByteaHexEncodesWithBackslashXPrefix(t *testing.T) {
	assert.Equal(t, "\\x68656c6c6f", renderPGValue([]byte("hello"), pgtype.ByteaOID))
}

func TestRenderPGValueJSONBDecodesToNativeValue(t *testing.T) {
	result := renderPGValue([]byte(`{"a":1}`), pgtype.JSONBOID)
	assert.Equal(t, map[string]any{"a": float64(1)}, result)
}

func TestRenderPGValuePassthroughForPlainScalars(t *testing.T) {
	assert.Equal(t, int64(42), renderPGValue(int64(42), pgtype.Int8OID))
	assert.Equal(t, true, renderPGValue(true, pgtype.BoolOID))
}

func TestJSONValueToSQLNull(t *testing.T) {
	assert.Equal(t, "NULL", jsonValueToSQL(nil))
}

func TestJSONValueToSQLBool(t *testing.T) {
	assert.Equal(t, "TRUE", jsonValueToSQL(true))
	assert.Equal(t, "FALSE", jsonValueToSQL(false))
}

func TestJSONValueToSQLNumber(t *testing.T) {
	assert.Equal(t, "3.5", jsonValueToSQL(3.5))
}

func TestJSONValueToSQLStringEscapesQuotes(t *testing.T) {
	assert.Equal(t, "'o''brien'", jsonValueToSQL("o'brien"))
}

func TestJSONValueToSQLObjectRendersAsJSONBLiteral(t *testing.T) {
	result := jsonValueToSQL(map[string]any{"a": float64(1)})
	assert.Equal(t, `'{"a":1}'::jsonb`, result)
}

func TestFormatUUIDBytes(t *testing.T) {
	var b [16]byte
	for i := range b {
		b[i] = byte(i)
	}
	assert.Equal(t, "00010203-0405-0607-0809-0a0b0c0d0e0f", formatUUIDBytes(b))
}
