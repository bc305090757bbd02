// SPDX-License-Identifier: Apache-2.0

package dataops

import (
	"fmt"
	"strings"

	"github.com/tuskerhq/tusker-core/pkg/schema"
)

// FilterOperator enumerates the comparison operators a caller can apply to a
// column when fetching paginated data.
type FilterOperator string

const (
	OpEquals             FilterOperator = "equals"
	OpNotEquals          FilterOperator = "not_equals"
	OpGreaterThan        FilterOperator = "greater_than"
	OpLessThan           FilterOperator = "less_than"
	OpGreaterThanOrEqual FilterOperator = "greater_than_or_equal"
	OpLessThanOrEqual    FilterOperator = "less_than_or_equal"
	OpContains           FilterOperator = "contains"
	OpNotContains        FilterOperator = "not_contains"
	OpStartsWith         FilterOperator = "starts_with"
	OpEndsWith           FilterOperator = "ends_with"
	OpIsNull             FilterOperator = "is_null"
	OpIsNotNull          FilterOperator = "is_not_null"
	OpIsTrue             FilterOperator = "is_true"
	OpIsFalse            FilterOperator = "is_false"
	OpBetween            FilterOperator = "between"
	OpIn                 FilterOperator = "in"
)

// FilterCondition is one predicate in a WHERE clause built by BuildWhereClause.
type FilterCondition struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    *string        `json:"value,omitempty"`
	Value2   *string        `json:"value2,omitempty"`
	Values   []string       `json:"values,omitempty"`
}

// escapeSQLString doubles embedded single quotes, the literal-escaping rule
// for a value placed inside single quotes in generated SQL text.
func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// escapeLikePattern escapes the three characters with special meaning to
// LIKE/ILIKE so a literal substring match doesn't accidentally use SQL
// wildcards. The query pairs this with ESCAPE '\'.
func escapeLikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// BuildWhereClause renders filters into a "WHERE ... AND ..." clause, or the
// empty string if no filter yields a usable condition (e.g. Equals with a
// nil Value, or In with an empty Values).
func BuildWhereClause(filters []FilterCondition) string {
	var conditions []string
	for _, f := range filters {
		col := schema.QuoteIdentifier(f.Column)
		switch f.Operator {
		case OpEquals:
			if f.Value == nil {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s = '%s'", col, escapeSQLString(*f.Value)))
		case OpNotEquals:
			if f.Value == nil {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s != '%s'", col, escapeSQLString(*f.Value)))
		case OpGreaterThan:
			if f.Value == nil {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s > '%s'", col, escapeSQLString(*f.Value)))
		case OpLessThan:
			if f.Value == nil {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s < '%s'", col, escapeSQLString(*f.Value)))
		case OpGreaterThanOrEqual:
			if f.Value == nil {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s >= '%s'", col, escapeSQLString(*f.Value)))
		case OpLessThanOrEqual:
			if f.Value == nil {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s <= '%s'", col, escapeSQLString(*f.Value)))
		case OpContains:
			if f.Value == nil {
				continue
			}
			pattern := "%" + escapeLikePattern(*f.Value) + "%"
			conditions = append(conditions, fmt.Sprintf("%s::text ILIKE '%s' ESCAPE '\\'", col, escapeSQLString(pattern)))
		case OpNotContains:
			if f.Value == nil {
				continue
			}
			pattern := "%" + escapeLikePattern(*f.Value) + "%"
			conditions = append(conditions, fmt.Sprintf("%s::text NOT ILIKE '%s' ESCAPE '\\'", col, escapeSQLString(pattern)))
		case OpStartsWith:
			if f.Value == nil {
				continue
			}
			pattern := escapeLikePattern(*f.Value) + "%"
			conditions = append(conditions, fmt.Sprintf("%s::text ILIKE '%s' ESCAPE '\\'", col, escapeSQLString(pattern)))
		case OpEndsWith:
			if f.Value == nil {
				continue
			}
			pattern := "%" + escapeLikePattern(*f.Value)
			conditions = append(conditions, fmt.Sprintf("%s::text ILIKE '%s' ESCAPE '\\'", col, escapeSQLString(pattern)))
		case OpIsNull:
			conditions = append(conditions, fmt.Sprintf("%s IS NULL", col))
		case OpIsNotNull:
			conditions = append(conditions, fmt.Sprintf("%s IS NOT NULL", col))
		case OpIsTrue:
			conditions = append(conditions, fmt.Sprintf("%s = TRUE", col))
		case OpIsFalse:
			conditions = append(conditions, fmt.Sprintf("%s = FALSE", col))
		case OpBetween:
			if f.Value == nil || f.Value2 == nil {
				continue
			}
			conditions = append(conditions, fmt.Sprintf("%s BETWEEN '%s' AND '%s'", col, escapeSQLString(*f.Value), escapeSQLString(*f.Value2)))
		case OpIn:
			if len(f.Values) == 0 {
				continue
			}
			escaped := make([]string, len(f.Values))
			for i, v := range f.Values {
				escaped[i] = "'" + escapeSQLString(v) + "'"
			}
			conditions = append(conditions, fmt.Sprintf("%s IN (%s)", col, strings.Join(escaped, ", ")))
		}
	}

	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}
