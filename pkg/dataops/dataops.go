// SPDX-License-Identifier: Apache-2.0

// Package dataops implements row-level reads and writes against a connected
// database: paginated fetch with filters, single and bulk insert, update,
// delete, and raw SQL execution.
package dataops

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuskerhq/tusker-core/internal/dberr"
	"github.com/tuskerhq/tusker-core/pkg/schema"
)

const defaultPageSize = 50

// PaginatedResult is the response shape for FetchPaginated.
type PaginatedResult struct {
	Rows       []map[string]any `json:"rows"`
	TotalCount int64            `json:"total_count"`
	Page       int64            `json:"page"`
	PageSize   int64            `json:"page_size"`
	TotalPages int64            `json:"total_pages"`
	Columns    []ColumnMeta     `json:"columns"`
}

// QueryResult is the response shape for ExecuteRawQuery.
type QueryResult struct {
	Rows             []map[string]any `json:"rows"`
	Columns          []ColumnMeta     `json:"columns"`
	RowsAffected     int64            `json:"rows_affected"`
	ExecutionTimeMS  int64            `json:"execution_time_ms"`
}

// InsertRequest inserts one row into schema.table.
type InsertRequest struct {
	Schema string         `json:"schema"`
	Table  string         `json:"table"`
	Data   map[string]any `json:"data"`
}

// BulkInsertRequest inserts many rows sharing the same column set.
type BulkInsertRequest struct {
	Schema string           `json:"schema"`
	Table  string           `json:"table"`
	Rows   []map[string]any `json:"rows"`
}

// UpdateRequest updates rows matching WhereClause.
type UpdateRequest struct {
	Schema      string         `json:"schema"`
	Table       string         `json:"table"`
	Data        map[string]any `json:"data"`
	WhereClause map[string]any `json:"where_clause"`
}

// DeleteRequest deletes rows matching WhereClause.
type DeleteRequest struct {
	Schema      string         `json:"schema"`
	Table       string         `json:"table"`
	WhereClause map[string]any `json:"where_clause"`
}

// Operations runs row-level reads and writes against a pool. Like
// schema.Introspector, it carries no connection state of its own.
type Operations struct{}

// NewOperations constructs an Operations value.
func NewOperations() *Operations {
	return &Operations{}
}

// FetchPaginated returns one page of schemaName.table, optionally ordered
// and filtered.
func (o *Operations) FetchPaginated(
	ctx context.Context,
	pool *pgxpool.Pool,
	schemaName, table string,
	page int64,
	pageSize *int64,
	orderBy []string,
	orderDirection []string,
	filters []FilterCondition,
) (*PaginatedResult, error) {
	size := int64(defaultPageSize)
	if pageSize != nil {
		size = *pageSize
	}
	offset := (page - 1) * size

	orderClause := ""
	if len(orderBy) > 0 {
		parts := make([]string, len(orderBy))
		for i, col := range orderBy {
			dir := "ASC"
			if i < len(orderDirection) && strings.EqualFold(orderDirection[i], "DESC") {
				dir = "DESC"
			}
			parts[i] = schema.QuoteIdentifier(col) + " " + dir
		}
		orderClause = "ORDER BY " + strings.Join(parts, ", ")
	}

	whereClause := BuildWhereClause(filters)

	qualified := schema.QuoteIdentifier(schemaName) + "." + schema.QuoteIdentifier(table)

	countQuery := "SELECT COUNT(*) FROM " + qualified
	if whereClause != "" {
		countQuery += " " + whereClause
	}
	var totalCount int64
	if err := pool.QueryRow(ctx, countQuery).Scan(&totalCount); err != nil {
		return nil, dberr.Database(err, "failed to count rows in %s.%s", schemaName, table)
	}

	dataQuery := "SELECT * FROM " + qualified
	if whereClause != "" {
		dataQuery += " " + whereClause
	}
	if orderClause != "" {
		dataQuery += " " + orderClause
	}
	dataQuery += " LIMIT $1 OFFSET $2"

	rows, err := pool.Query(ctx, dataQuery, size, offset)
	if err != nil {
		return nil, dberr.Database(err, "failed to fetch rows from %s.%s", schemaName, table)
	}
	defer rows.Close()

	decoded, columns, err := rowsToJSON(rows)
	if err != nil {
		return nil, dberr.Database(err, "failed to decode rows from %s.%s", schemaName, table)
	}

	totalPages := int64(math.Ceil(float64(totalCount) / float64(size)))

	return &PaginatedResult{
		Rows:       decoded,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Columns:    columns,
	}, nil
}

// InsertRow inserts one row and returns it as decoded by the RETURNING *
// clause.
func (o *Operations) InsertRow(ctx context.Context, pool *pgxpool.Pool, req InsertRequest) (map[string]any, error) {
	if len(req.Data) == 0 {
		return nil, dberr.InvalidQuery("no data provided for insert")
	}

	columns := make([]string, 0, len(req.Data))
	values := make([]string, 0, len(req.Data))
	for col, val := range req.Data {
		columns = append(columns, schema.QuoteIdentifier(col))
		values = append(values, jsonValueToSQL(val))
	}

	query := "INSERT INTO " + schema.QuoteIdentifier(req.Schema) + "." + schema.QuoteIdentifier(req.Table) +
		" (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(values, ", ") + ") RETURNING *"

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, dberr.Write(err, "failed to insert into %s.%s", req.Schema, req.Table)
	}
	defer rows.Close()

	decoded, _, err := rowsToJSON(rows)
	if err != nil {
		return nil, dberr.Database(err, "failed to decode inserted row for %s.%s", req.Schema, req.Table)
	}
	if len(decoded) == 0 {
		return map[string]any{}, nil
	}
	return decoded[0], nil
}

// BulkInsert inserts every row of req and returns the number of rows
// inserted. The column set comes from the first row: a later row's missing
// columns are inserted as NULL and its extra keys are ignored.
func (o *Operations) BulkInsert(ctx context.Context, pool *pgxpool.Pool, req BulkInsertRequest) (int64, error) {
	if len(req.Rows) == 0 {
		return 0, nil
	}

	firstRow := req.Rows[0]
	if len(firstRow) == 0 {
		return 0, dberr.InvalidQuery("no data provided for insert")
	}

	columns := make([]string, 0, len(firstRow))
	for col := range firstRow {
		columns = append(columns, col)
	}

	quotedColumns := make([]string, len(columns))
	for i, c := range columns {
		quotedColumns[i] = schema.QuoteIdentifier(c)
	}

	valueGroups := make([]string, len(req.Rows))
	for i, row := range req.Rows {
		values := make([]string, len(columns))
		for j, col := range columns {
			if v, ok := row[col]; ok {
				values[j] = jsonValueToSQL(v)
			} else {
				values[j] = "NULL"
			}
		}
		valueGroups[i] = "(" + strings.Join(values, ", ") + ")"
	}

	query := "INSERT INTO " + schema.QuoteIdentifier(req.Schema) + "." + schema.QuoteIdentifier(req.Table) +
		" (" + strings.Join(quotedColumns, ", ") + ") VALUES " + strings.Join(valueGroups, ", ")

	tag, err := pool.Exec(ctx, query)
	if err != nil {
		return 0, dberr.Write(err, "failed to bulk insert into %s.%s", req.Schema, req.Table)
	}
	return tag.RowsAffected(), nil
}

// UpdateRow updates every row matching req.WhereClause and returns the
// number of rows affected.
func (o *Operations) UpdateRow(ctx context.Context, pool *pgxpool.Pool, req UpdateRequest) (int64, error) {
	if len(req.Data) == 0 {
		return 0, dberr.InvalidQuery("no data provided for update")
	}
	if len(req.WhereClause) == 0 {
		return 0, dberr.InvalidQuery("no where clause provided for update")
	}

	setClauses := make([]string, 0, len(req.Data))
	for col, val := range req.Data {
		setClauses = append(setClauses, schema.QuoteIdentifier(col)+" = "+jsonValueToSQL(val))
	}

	whereClauses := make([]string, 0, len(req.WhereClause))
	for col, val := range req.WhereClause {
		whereClauses = append(whereClauses, schema.QuoteIdentifier(col)+" = "+jsonValueToSQL(val))
	}

	query := "UPDATE " + schema.QuoteIdentifier(req.Schema) + "." + schema.QuoteIdentifier(req.Table) +
		" SET " + strings.Join(setClauses, ", ") + " WHERE " + strings.Join(whereClauses, " AND ")

	tag, err := pool.Exec(ctx, query)
	if err != nil {
		return 0, dberr.Write(err, "failed to update %s.%s", req.Schema, req.Table)
	}
	return tag.RowsAffected(), nil
}

// DeleteRow deletes every row matching req.WhereClause and returns the
// number of rows affected.
func (o *Operations) DeleteRow(ctx context.Context, pool *pgxpool.Pool, req DeleteRequest) (int64, error) {
	if len(req.WhereClause) == 0 {
		return 0, dberr.InvalidQuery("no where clause provided for delete")
	}

	whereClauses := make([]string, 0, len(req.WhereClause))
	for col, val := range req.WhereClause {
		whereClauses = append(whereClauses, schema.QuoteIdentifier(col)+" = "+jsonValueToSQL(val))
	}

	query := "DELETE FROM " + schema.QuoteIdentifier(req.Schema) + "." + schema.QuoteIdentifier(req.Table) +
		" WHERE " + strings.Join(whereClauses, " AND ")

	tag, err := pool.Exec(ctx, query)
	if err != nil {
		return 0, dberr.Write(err, "failed to delete from %s.%s", req.Schema, req.Table)
	}
	return tag.RowsAffected(), nil
}

// ExecuteRawQuery runs sql verbatim, routing to Query or Exec depending on
// whether it looks like a read, and reports wall-clock execution time.
func (o *Operations) ExecuteRawQuery(ctx context.Context, pool *pgxpool.Pool, sql string) (*QueryResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, dberr.InvalidQuery("empty query")
	}

	upper := strings.ToUpper(trimmed)
	isSelect := strings.HasPrefix(upper, "SELECT") ||
		strings.HasPrefix(upper, "WITH") ||
		strings.HasPrefix(upper, "EXPLAIN") ||
		strings.HasPrefix(upper, "SHOW")

	start := time.Now()

	if isSelect {
		rows, err := pool.Query(ctx, trimmed)
		if err != nil {
			return nil, dberr.InvalidQuery("%s", err.Error())
		}
		defer rows.Close()

		decoded, columns, err := rowsToJSON(rows)
		if err != nil {
			return nil, dberr.Database(err, "failed to decode query result")
		}

		return &QueryResult{
			Rows:            decoded,
			Columns:         columns,
			RowsAffected:    0,
			ExecutionTimeMS: time.Since(start).Milliseconds(),
		}, nil
	}

	tag, err := pool.Exec(ctx, trimmed)
	if err != nil {
		return nil, dberr.InvalidQuery("%s", err.Error())
	}

	return &QueryResult{
		Rows:            nil,
		Columns:         nil,
		RowsAffected:    tag.RowsAffected(),
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}, nil
}
