// SPDX-License-Identifier: Apache-2.0

// Package schema introspects a connected Postgres database's catalog:
// schemas, tables, columns, indexes, and constraints. Every query reads
// pg_catalog directly rather than information_schema so that a single round
// trip can answer what would otherwise take several ANSI-standard views.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/tuskerhq/tusker-core/internal/dberr"
)

// Info describes one schema (namespace).
type Info struct {
	Name  string  `json:"name"`
	Owner *string `json:"owner,omitempty"`
}

// TableType classifies a relation the way pg_class.relkind does.
type TableType string

const (
	TableTypeTable            TableType = "table"
	TableTypeView             TableType = "view"
	TableTypeMaterializedView TableType = "materialized_view"
	TableTypeForeignTable     TableType = "foreign_table"
)

func tableTypeFromRelKindLabel(label string) TableType {
	switch label {
	case "VIEW":
		return TableTypeView
	case "MATERIALIZED VIEW":
		return TableTypeMaterializedView
	case "FOREIGN TABLE":
		return TableTypeForeignTable
	default:
		return TableTypeTable
	}
}

// TableInfo describes one relation within a schema.
type TableInfo struct {
	Schema            string    `json:"schema"`
	Name              string    `json:"name"`
	TableType         TableType `json:"table_type"`
	EstimatedRowCount *int64    `json:"estimated_row_count,omitempty"`
	Description       *string   `json:"description,omitempty"`
}

// ForeignKeyInfo describes the column a foreign key references.
type ForeignKeyInfo struct {
	ConstraintName   string `json:"constraint_name"`
	ReferencedSchema string `json:"referenced_schema"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// ColumnInfo describes a single column's type and constraint participation.
type ColumnInfo struct {
	Name                   string          `json:"name"`
	DataType               string          `json:"data_type"`
	UDTName                string          `json:"udt_name"`
	IsNullable             bool            `json:"is_nullable"`
	IsPrimaryKey           bool            `json:"is_primary_key"`
	IsUnique               bool            `json:"is_unique"`
	IsForeignKey           bool            `json:"is_foreign_key"`
	DefaultValue           *string         `json:"default_value,omitempty"`
	CharacterMaximumLength *int32          `json:"character_maximum_length,omitempty"`
	NumericPrecision       *int32          `json:"numeric_precision,omitempty"`
	NumericScale           *int32          `json:"numeric_scale,omitempty"`
	OrdinalPosition        int32           `json:"ordinal_position"`
	Description            *string         `json:"description,omitempty"`
	ForeignKeyInfo         *ForeignKeyInfo `json:"foreign_key_info,omitempty"`
	EnumValues             []string        `json:"enum_values,omitempty"`
}

// TableColumnsInfo groups a flat column listing under its owning table, used
// by GetAllColumns to avoid one round trip per table.
type TableColumnsInfo struct {
	Schema  string       `json:"schema"`
	Table   string       `json:"table"`
	Columns []ColumnInfo `json:"columns"`
}

// IndexInfo describes one index on a table.
type IndexInfo struct {
	Name      string   `json:"name"`
	IsUnique  bool     `json:"is_unique"`
	IsPrimary bool     `json:"is_primary"`
	Columns   []string `json:"columns"`
	IndexType string   `json:"index_type"`
}

// ConstraintType classifies a pg_constraint row.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "primary_key"
	ConstraintForeignKey ConstraintType = "foreign_key"
	ConstraintUnique     ConstraintType = "unique"
	ConstraintCheck      ConstraintType = "check"
	ConstraintExclusion  ConstraintType = "exclusion"
)

func constraintTypeFromLabel(label string) ConstraintType {
	switch label {
	case "PRIMARY KEY":
		return ConstraintPrimaryKey
	case "FOREIGN KEY":
		return ConstraintForeignKey
	case "UNIQUE":
		return ConstraintUnique
	case "EXCLUSION":
		return ConstraintExclusion
	default:
		return ConstraintCheck
	}
}

// ConstraintInfo describes one constraint on a table.
type ConstraintInfo struct {
	Name           string         `json:"name"`
	ConstraintType ConstraintType `json:"constraint_type"`
	Columns        []string       `json:"columns"`
	Definition     *string        `json:"definition,omitempty"`
}

// SchemaWithTables bundles a schema with the tables it contains, the result
// shape of GetSchemasWithTables.
type SchemaWithTables struct {
	Name   string      `json:"name"`
	Owner  *string     `json:"owner,omitempty"`
	Tables []TableInfo `json:"tables"`
}

// Introspector runs catalog queries against a pool. It holds no state of its
// own; every method takes the pool it should query, so one Introspector
// value can serve every registered connection.
type Introspector struct{}

// NewIntrospector constructs an Introspector. It has no fields today, but is
// a struct (not a bag of package functions) so a future cache or query
// timeout knob can be added without changing every call site.
func NewIntrospector() *Introspector {
	return &Introspector{}
}

const schemasQuery = `
SELECT
	n.nspname,
	pg_catalog.pg_get_userbyid(n.nspowner)
FROM pg_catalog.pg_namespace n
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
  AND n.nspname NOT LIKE 'pg_temp_%'
  AND n.nspname NOT LIKE 'pg_toast_temp_%'
ORDER BY n.nspname
`

// GetSchemas lists every user-visible schema.
func (in *Introspector) GetSchemas(ctx context.Context, pool *pgxpool.Pool) ([]Info, error) {
	rows, err := pool.Query(ctx, schemasQuery)
	if err != nil {
		return nil, dberr.Database(err, "failed to list schemas")
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		if err := rows.Scan(&info.Name, &info.Owner); err != nil {
			return nil, dberr.Database(err, "failed to read schema row")
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to list schemas")
	}
	return out, nil
}

const tablesQuery = `
SELECT
	n.nspname,
	c.relname,
	CASE c.relkind
		WHEN 'r' THEN 'BASE TABLE'
		WHEN 'v' THEN 'VIEW'
		WHEN 'm' THEN 'MATERIALIZED VIEW'
		WHEN 'f' THEN 'FOREIGN TABLE'
		ELSE 'BASE TABLE'
	END,
	c.reltuples::bigint,
	obj_description(c.oid, 'pg_class')
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
  AND c.relkind IN ('r', 'v', 'm', 'f')
ORDER BY c.relname
`

// GetTables lists every table, view, materialized view, and foreign table in
// schema.
func (in *Introspector) GetTables(ctx context.Context, pool *pgxpool.Pool, schema string) ([]TableInfo, error) {
	rows, err := pool.Query(ctx, tablesQuery, schema)
	if err != nil {
		return nil, dberr.Database(err, "failed to list tables in schema %s", schema)
	}
	defer rows.Close()

	var out []TableInfo
	for rows.Next() {
		var t TableInfo
		var kindLabel string
		if err := rows.Scan(&t.Schema, &t.Name, &kindLabel, &t.EstimatedRowCount, &t.Description); err != nil {
			return nil, dberr.Database(err, "failed to read table row")
		}
		t.TableType = tableTypeFromRelKindLabel(kindLabel)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to list tables in schema %s", schema)
	}
	return out, nil
}

const columnsQuery = `
WITH rel AS (
	SELECT c.oid, c.relname
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = $1 AND c.relname = $2
),
pk_cols AS (
	SELECT a.attnum
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	WHERE i.indrelid = (SELECT oid FROM rel) AND i.indisprimary
),
uq_cols AS (
	SELECT DISTINCT a.attnum
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	WHERE i.indrelid = (SELECT oid FROM rel) AND i.indisunique AND NOT i.indisprimary
),
fk_info AS (
	SELECT
		unnest(con.conkey) AS attnum,
		con.conname,
		rn.nspname AS ref_schema,
		rc.relname AS ref_table,
		ra.attname AS ref_column
	FROM pg_constraint con
	JOIN pg_class rc ON rc.oid = con.confrelid
	JOIN pg_namespace rn ON rn.oid = rc.relnamespace
	JOIN LATERAL unnest(con.confkey) WITH ORDINALITY AS fk(attnum, ord) ON true
	JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = fk.attnum
	WHERE con.conrelid = (SELECT oid FROM rel) AND con.contype = 'f'
)
SELECT
	a.attname,
	format_type(a.atttypid, a.atttypmod) AS data_type,
	t.typname AS udt_name,
	NOT a.attnotnull AS is_nullable,
	pg_get_expr(ad.adbin, ad.adrelid) AS default_value,
	information_schema._pg_char_max_length(a.atttypid, a.atttypmod)::int4,
	information_schema._pg_numeric_precision(a.atttypid, a.atttypmod)::int4,
	information_schema._pg_numeric_scale(a.atttypid, a.atttypmod)::int4,
	a.attnum,
	col_description(a.attrelid, a.attnum) AS description,
	(a.attnum IN (SELECT attnum FROM pk_cols)) AS is_pk,
	(a.attnum IN (SELECT attnum FROM uq_cols)) AS is_unique,
	fk.conname AS fk_constraint,
	fk.ref_schema,
	fk.ref_table,
	fk.ref_column
FROM pg_attribute a
JOIN pg_type t ON t.oid = a.atttypid
LEFT JOIN pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
LEFT JOIN fk_info fk ON fk.attnum = a.attnum
WHERE a.attrelid = (SELECT oid FROM rel)
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY a.attnum
`

const enumValuesQuery = `
SELECT t.typname, e.enumlabel
FROM pg_enum e
JOIN pg_type t ON e.enumtypid = t.oid
ORDER BY t.typname, e.enumsortorder
`

// GetColumns describes every column of schema.table, including primary-key,
// unique, foreign-key, and enum-value membership. The column query and the
// database-wide enum listing run concurrently.
func (in *Introspector) GetColumns(ctx context.Context, pool *pgxpool.Pool, schema, table string) ([]ColumnInfo, error) {
	var columnRows pgx.Rows
	var enumValues map[string][]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := pool.Query(gctx, columnsQuery, schema, table)
		if err != nil {
			return dberr.Database(err, "failed to read columns for %s.%s", schema, table)
		}
		columnRows = r
		return nil
	})
	g.Go(func() error {
		values, err := fetchEnumValues(gctx, pool)
		if err != nil {
			return err
		}
		enumValues = values
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	defer columnRows.Close()

	var out []ColumnInfo
	for columnRows.Next() {
		var (
			c            ColumnInfo
			fkConstraint *string
			fkSchema     *string
			fkTable      *string
			fkColumn     *string
		)
		if err := columnRows.Scan(
			&c.Name, &c.DataType, &c.UDTName, &c.IsNullable, &c.DefaultValue,
			&c.CharacterMaximumLength, &c.NumericPrecision, &c.NumericScale, &c.OrdinalPosition,
			&c.Description, &c.IsPrimaryKey, &c.IsUnique,
			&fkConstraint, &fkSchema, &fkTable, &fkColumn,
		); err != nil {
			return nil, dberr.Database(err, "failed to read column row for %s.%s", schema, table)
		}
		if fkConstraint != nil {
			c.ForeignKeyInfo = &ForeignKeyInfo{
				ConstraintName:   *fkConstraint,
				ReferencedSchema: derefOr(fkSchema, ""),
				ReferencedTable:  derefOr(fkTable, ""),
				ReferencedColumn: derefOr(fkColumn, ""),
			}
			c.IsForeignKey = true
		}
		c.EnumValues = enumValues[c.UDTName]
		out = append(out, c)
	}
	if err := columnRows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to read columns for %s.%s", schema, table)
	}
	return out, nil
}

func fetchEnumValues(ctx context.Context, pool *pgxpool.Pool) (map[string][]string, error) {
	rows, err := pool.Query(ctx, enumValuesQuery)
	if err != nil {
		return nil, dberr.Database(err, "failed to read enum values")
	}
	defer rows.Close()

	values := make(map[string][]string)
	for rows.Next() {
		var typeName, label string
		if err := rows.Scan(&typeName, &label); err != nil {
			return nil, dberr.Database(err, "failed to read enum row")
		}
		values[typeName] = append(values[typeName], label)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to read enum values")
	}
	return values, nil
}

// GetRowCount returns the exact row count of schema.table via COUNT(*).
func (in *Introspector) GetRowCount(ctx context.Context, pool *pgxpool.Pool, schema, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", QuoteIdentifier(schema), QuoteIdentifier(table))
	var count int64
	if err := pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, dberr.Database(err, "failed to count rows in %s.%s", schema, table)
	}
	return count, nil
}

const indexesQuery = `
SELECT
	i.relname AS index_name,
	ix.indisunique AS is_unique,
	ix.indisprimary AS is_primary,
	am.amname AS index_type,
	ARRAY_AGG(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS columns
FROM pg_index ix
JOIN pg_class i ON i.oid = ix.indexrelid
JOIN pg_class t ON t.oid = ix.indrelid
JOIN pg_namespace n ON n.oid = t.relnamespace
JOIN pg_am am ON am.oid = i.relam
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
WHERE n.nspname = $1
  AND t.relname = $2
GROUP BY i.relname, ix.indisunique, ix.indisprimary, am.amname
ORDER BY i.relname
`

// GetIndexes lists every index on schema.table.
func (in *Introspector) GetIndexes(ctx context.Context, pool *pgxpool.Pool, schema, table string) ([]IndexInfo, error) {
	rows, err := pool.Query(ctx, indexesQuery, schema, table)
	if err != nil {
		return nil, dberr.Database(err, "failed to list indexes for %s.%s", schema, table)
	}
	defer rows.Close()

	var out []IndexInfo
	for rows.Next() {
		var idx IndexInfo
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.IsPrimary, &idx.IndexType, &idx.Columns); err != nil {
			return nil, dberr.Database(err, "failed to read index row for %s.%s", schema, table)
		}
		out = append(out, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to list indexes for %s.%s", schema, table)
	}
	return out, nil
}

const constraintsQuery = `
SELECT
	con.conname,
	CASE con.contype
		WHEN 'p' THEN 'PRIMARY KEY'
		WHEN 'f' THEN 'FOREIGN KEY'
		WHEN 'u' THEN 'UNIQUE'
		WHEN 'c' THEN 'CHECK'
		WHEN 'x' THEN 'EXCLUSION'
		ELSE 'CHECK'
	END,
	ARRAY(
		SELECT a.attname
		FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		ORDER BY k.ord
	),
	pg_get_constraintdef(con.oid)
FROM pg_constraint con
JOIN pg_class c ON c.oid = con.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
  AND c.relname = $2
ORDER BY con.conname
`

// GetConstraints lists every constraint on schema.table.
func (in *Introspector) GetConstraints(ctx context.Context, pool *pgxpool.Pool, schema, table string) ([]ConstraintInfo, error) {
	rows, err := pool.Query(ctx, constraintsQuery, schema, table)
	if err != nil {
		return nil, dberr.Database(err, "failed to list constraints for %s.%s", schema, table)
	}
	defer rows.Close()

	var out []ConstraintInfo
	for rows.Next() {
		var c ConstraintInfo
		var typeLabel string
		if err := rows.Scan(&c.Name, &typeLabel, &c.Columns, &c.Definition); err != nil {
			return nil, dberr.Database(err, "failed to read constraint row for %s.%s", schema, table)
		}
		c.ConstraintType = constraintTypeFromLabel(typeLabel)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to list constraints for %s.%s", schema, table)
	}
	return out, nil
}

const allSchemaTablesQuery = `
SELECT
	n.nspname AS table_schema,
	c.relname AS table_name,
	CASE c.relkind
		WHEN 'r' THEN 'BASE TABLE'
		WHEN 'v' THEN 'VIEW'
		WHEN 'f' THEN 'FOREIGN TABLE'
		ELSE 'BASE TABLE'
	END AS table_type,
	c.reltuples::bigint AS estimated_row_count,
	obj_description(c.oid, 'pg_class') AS description
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
  AND n.nspname NOT LIKE 'pg_temp_%'
  AND n.nspname NOT LIKE 'pg_toast_temp_%'
  AND c.relkind IN ('r', 'v', 'f')
ORDER BY n.nspname, c.relname
`

const matViewsQuery = `
SELECT
	n.nspname,
	c.relname,
	c.reltuples::bigint,
	obj_description(c.oid, 'pg_class')
FROM pg_class c
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind = 'm'
  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
ORDER BY n.nspname, c.relname
`

// GetSchemasWithTables lists every schema together with the tables,
// views, materialized views, and foreign tables each one contains, fetching
// schemas, base relations, and materialized views concurrently.
func (in *Introspector) GetSchemasWithTables(ctx context.Context, pool *pgxpool.Pool) ([]SchemaWithTables, error) {
	var schemas []Info
	var allTables []TableInfo
	var matViews []TableInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schemas, err = in.GetSchemas(gctx, pool)
		return err
	})
	g.Go(func() error {
		rows, err := pool.Query(gctx, allSchemaTablesQuery)
		if err != nil {
			return dberr.Database(err, "failed to list tables")
		}
		defer rows.Close()
		for rows.Next() {
			var t TableInfo
			var kindLabel string
			if err := rows.Scan(&t.Schema, &t.Name, &kindLabel, &t.EstimatedRowCount, &t.Description); err != nil {
				return dberr.Database(err, "failed to read table row")
			}
			t.TableType = tableTypeFromRelKindLabel(kindLabel)
			allTables = append(allTables, t)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := pool.Query(gctx, matViewsQuery)
		if err != nil {
			return dberr.Database(err, "failed to list materialized views")
		}
		defer rows.Close()
		for rows.Next() {
			var t TableInfo
			if err := rows.Scan(&t.Schema, &t.Name, &t.EstimatedRowCount, &t.Description); err != nil {
				return dberr.Database(err, "failed to read materialized view row")
			}
			t.TableType = TableTypeMaterializedView
			matViews = append(matViews, t)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tablesBySchema := make(map[string][]TableInfo)
	for _, t := range allTables {
		tablesBySchema[t.Schema] = append(tablesBySchema[t.Schema], t)
	}
	for _, t := range matViews {
		tablesBySchema[t.Schema] = append(tablesBySchema[t.Schema], t)
	}
	for schemaName, tables := range tablesBySchema {
		sortTablesByName(tables)
		tablesBySchema[schemaName] = tables
	}

	out := make([]SchemaWithTables, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, SchemaWithTables{
			Name:   s.Name,
			Owner:  s.Owner,
			Tables: tablesBySchema[s.Name],
		})
	}
	return out, nil
}

func sortTablesByName(tables []TableInfo) {
	for i := 1; i < len(tables); i++ {
		for j := i; j > 0 && tables[j-1].Name > tables[j].Name; j-- {
			tables[j-1], tables[j] = tables[j], tables[j-1]
		}
	}
}

const allColumnsQuery = `
WITH pk_cols AS (
	SELECT i.indrelid, a.attnum
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	JOIN pg_class c ON c.oid = i.indrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE i.indisprimary
	  AND n.nspname = ANY($1)
	  AND c.relkind IN ('r', 'v', 'm', 'f')
),
uq_cols AS (
	SELECT DISTINCT i.indrelid, a.attnum
	FROM pg_index i
	JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
	JOIN pg_class c ON c.oid = i.indrelid
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE i.indisunique AND NOT i.indisprimary
	  AND n.nspname = ANY($1)
	  AND c.relkind IN ('r', 'v', 'm', 'f')
),
fk_info AS (
	SELECT
		con.conrelid,
		unnest(con.conkey) AS attnum,
		con.conname,
		rn.nspname AS ref_schema,
		rc.relname AS ref_table,
		ra.attname AS ref_column
	FROM pg_constraint con
	JOIN pg_class rc ON rc.oid = con.confrelid
	JOIN pg_namespace rn ON rn.oid = rc.relnamespace
	JOIN pg_class sc ON sc.oid = con.conrelid
	JOIN pg_namespace sn ON sn.oid = sc.relnamespace
	JOIN LATERAL unnest(con.confkey) WITH ORDINALITY AS fk(attnum, ord) ON true
	JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = fk.attnum
	WHERE con.contype = 'f'
	  AND sn.nspname = ANY($1)
)
SELECT
	n.nspname AS schema_name,
	c.relname AS table_name,
	a.attname AS col_name,
	format_type(a.atttypid, a.atttypmod) AS data_type,
	t.typname AS udt_name,
	NOT a.attnotnull AS is_nullable,
	pg_get_expr(ad.adbin, ad.adrelid) AS default_value,
	information_schema._pg_char_max_length(a.atttypid, a.atttypmod)::int4 AS char_max_len,
	information_schema._pg_numeric_precision(a.atttypid, a.atttypmod)::int4 AS num_precision,
	information_schema._pg_numeric_scale(a.atttypid, a.atttypmod)::int4 AS num_scale,
	a.attnum AS ordinal_position,
	col_description(a.attrelid, a.attnum) AS description,
	(EXISTS (SELECT 1 FROM pk_cols pk WHERE pk.indrelid = a.attrelid AND pk.attnum = a.attnum)) AS is_pk,
	(EXISTS (SELECT 1 FROM uq_cols uq WHERE uq.indrelid = a.attrelid AND uq.attnum = a.attnum)) AS is_unique,
	fk.conname AS fk_constraint,
	fk.ref_schema,
	fk.ref_table,
	fk.ref_column
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
JOIN pg_type t ON t.oid = a.atttypid
LEFT JOIN pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
LEFT JOIN fk_info fk ON fk.conrelid = a.attrelid AND fk.attnum = a.attnum
WHERE n.nspname = ANY($1)
  AND c.relkind IN ('r', 'v', 'm', 'f')
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY n.nspname, c.relname, a.attnum
`

// GetAllColumns describes every column of every table across schemaNames in
// a single query, avoiding one round trip per table.
func (in *Introspector) GetAllColumns(ctx context.Context, pool *pgxpool.Pool, schemaNames []string) ([]TableColumnsInfo, error) {
	var columnRows pgx.Rows
	var enumValues map[string][]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := pool.Query(gctx, allColumnsQuery, schemaNames)
		if err != nil {
			return dberr.Database(err, "failed to read columns")
		}
		columnRows = r
		return nil
	})
	g.Go(func() error {
		values, err := fetchEnumValues(gctx, pool)
		if err != nil {
			return err
		}
		enumValues = values
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	defer columnRows.Close()

	var tables []TableColumnsInfo
	for columnRows.Next() {
		var (
			schemaName, tableName       string
			c                           ColumnInfo
			fkConstraint                *string
			fkSchema, fkTable, fkColumn *string
		)
		if err := columnRows.Scan(
			&schemaName, &tableName, &c.Name, &c.DataType, &c.UDTName, &c.IsNullable,
			&c.DefaultValue, &c.CharacterMaximumLength, &c.NumericPrecision, &c.NumericScale,
			&c.OrdinalPosition, &c.Description, &c.IsPrimaryKey, &c.IsUnique,
			&fkConstraint, &fkSchema, &fkTable, &fkColumn,
		); err != nil {
			return nil, dberr.Database(err, "failed to read column row")
		}
		if fkConstraint != nil {
			c.ForeignKeyInfo = &ForeignKeyInfo{
				ConstraintName:   *fkConstraint,
				ReferencedSchema: derefOr(fkSchema, ""),
				ReferencedTable:  derefOr(fkTable, ""),
				ReferencedColumn: derefOr(fkColumn, ""),
			}
			c.IsForeignKey = true
		}
		c.EnumValues = enumValues[c.UDTName]

		if n := len(tables); n > 0 && tables[n-1].Schema == schemaName && tables[n-1].Table == tableName {
			tables[n-1].Columns = append(tables[n-1].Columns, c)
		} else {
			tables = append(tables, TableColumnsInfo{
				Schema:  schemaName,
				Table:   tableName,
				Columns: []ColumnInfo{c},
			})
		}
	}
	if err := columnRows.Err(); err != nil {
		return nil, dberr.Database(err, "failed to read columns")
	}
	return tables, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// QuoteIdentifier double-quotes identifier, doubling embedded quotes, the
// same escaping rule used throughout the query builders in this package.
func QuoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
