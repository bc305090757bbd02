// SPDX-License-Identifier: Apache-2.0

package dataops

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ColumnMeta describes one column of a query result, independent of the row
// values themselves.
type ColumnMeta struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// rowsToJSON decodes every row of rows into a JSON object per row (a map
// keyed by column name, which keeps no column order) plus the column
// metadata, which lists the columns in result order, mirroring the original
// rows_to_json helper.
// A cell that cannot be rendered decodes to JSON null rather than failing
// the whole row, per the project's decision to preserve that original
// behavior.
func rowsToJSON(rows pgx.Rows) ([]map[string]any, []ColumnMeta, error) {
	fields := rows.FieldDescriptions()
	columns := make([]ColumnMeta, len(fields))
	typeMap := pgtype.NewMap()
	for i, f := range fields {
		dt, ok := typeMap.TypeForOID(f.DataTypeOID)
		name := fmt.Sprintf("oid:%d", f.DataTypeOID)
		if ok {
			name = dt.Name
		}
		columns[i] = ColumnMeta{Name: string(f.Name), DataType: name}
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[columns[i].Name] = renderPGValue(v, fields[i].DataTypeOID)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, columns, nil
}

// renderPGValue converts one decoded driver value into a JSON-safe value,
// following the type-specific rules the desktop client relies on (RFC3339
// timestamps, \x-prefixed hex for bytea, passthrough for numbers/bools).
func renderPGValue(v any, oid uint32) any {
	if v == nil {
		return nil
	}

	switch oid {
	case pgtype.TimestamptzOID:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case pgtype.TimestampOID:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02T15:04:05.999999999")
		}
	case pgtype.DateOID:
		if t, ok := v.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	case pgtype.ByteaOID:
		if b, ok := v.([]byte); ok {
			return "\\x" + hex.EncodeToString(b)
		}
	case pgtype.JSONOID, pgtype.JSONBOID:
		switch raw := v.(type) {
		case []byte:
			var decoded any
			if err := json.Unmarshal(raw, &decoded); err == nil {
				return decoded
			}
			return string(raw)
		case string:
			var decoded any
			if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
				return decoded
			}
			return raw
		}
	case pgtype.UUIDOID:
		if u, ok := v.(fmt.Stringer); ok {
			return u.String()
		}
	}

	switch val := v.(type) {
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case [16]byte:
		return formatUUIDBytes(val)
	case fmt.Stringer:
		return val.String()
	case []byte:
		if s := string(val); isValidUTF8(s) {
			return s
		}
		return "\\x" + hex.EncodeToString(val)
	default:
		return decodeOrNull(v)
	}
}

// decodeOrNull returns v unchanged if it already marshals cleanly to JSON;
// otherwise it falls back to its string form, and to JSON null if even that
// fails. This mirrors the "preserve unrecognized-type decode failure"
// decision: no error propagates for a single unrenderable cell.
func decodeOrNull(v any) any {
	if _, err := json.Marshal(v); err == nil {
		return v
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return nil
}

func isValidUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func formatUUIDBytes(b [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// jsonValueToSQL renders a single JSON value as a SQL literal suitable for
// splicing into an INSERT/UPDATE statement: null, true/false, numbers
// verbatim, strings single-quoted and escaped, and arrays/objects as a
// quoted JSON literal cast to jsonb.
func jsonValueToSQL(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return trimTrailingZeroExponent(val)
	case json.Number:
		return val.String()
	case string:
		return "'" + escapeSQLString(val) + "'"
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return "NULL"
		}
		return "'" + escapeSQLString(string(encoded)) + "'::jsonb"
	}
}

func trimTrailingZeroExponent(f float64) string {
	return fmt.Sprintf("%v", f)
}
