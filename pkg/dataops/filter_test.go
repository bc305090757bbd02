// SPDX-License-Identifier: Apache-2.0

package dataops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestBuildWhereClauseEmptyWithNoFilters(t *testing.T) {
	assert.Equal(t, "", BuildWhereClause(nil))
}

func TestBuildWhereClauseOperators(t *testing.T) {
	tests := []struct {
		name     string
		filter   FilterCondition
		expected string
	}{
		{"equals", FilterCondition{Column: "name", Operator: OpEquals, Value: strPtr("bob")}, `WHERE "name" = 'bob'`},
		{"not_equals", FilterCondition{Column: "name", Operator: OpNotEquals, Value: strPtr("bob")}, `WHERE "name" != 'bob'`},
		{"greater_than", FilterCondition{Column: "age", Operator: OpGreaterThan, Value: strPtr("10")}, `WHERE "age" > '10'`},
		{"less_than", FilterCondition{Column: "age", Operator: OpLessThan, Value: strPtr("10")}, `WHERE "age" < '10'`},
		{"gte", FilterCondition{Column: "age", Operator: OpGreaterThanOrEqual, Value: strPtr("10")}, `WHERE "age" >= '10'`},
		{"lte", FilterCondition{Column: "age", Operator: OpLessThanOrEqual, Value: strPtr("10")}, `WHERE "age" <= '10'`},
		{"contains", FilterCondition{Column: "name", Operator: OpContains, Value: strPtr("ob")}, `WHERE "name"::text ILIKE '%ob%' ESCAPE '\'`},
		{"not_contains", FilterCondition{Column: "name", Operator: OpNotContains, Value: strPtr("ob")}, `WHERE "name"::text NOT ILIKE '%ob%' ESCAPE '\'`},
		{"starts_with", FilterCondition{Column: "name", Operator: OpStartsWith, Value: strPtr("bo")}, `WHERE "name"::text ILIKE 'bo%' ESCAPE '\'`},
		{"ends_with", FilterCondition{Column: "name", Operator: OpEndsWith, Value: strPtr("ob")}, `WHERE "name"::text ILIKE '%ob' ESCAPE '\'`},
		{"is_null", FilterCondition{Column: "name", Operator: OpIsNull}, `WHERE "name" IS NULL`},
		{"is_not_null", FilterCondition{Column: "name", Operator: OpIsNotNull}, `WHERE "name" IS NOT NULL`},
		{"is_true", FilterCondition{Column: "active", Operator: OpIsTrue}, `WHERE "active" = TRUE`},
		{"is_false", FilterCondition{Column: "active", Operator: OpIsFalse}, `WHERE "active" = FALSE`},
		{"between", FilterCondition{Column: "age", Operator: OpBetween, Value: strPtr("1"), Value2: strPtr("9")}, `WHERE "age" BETWEEN '1' AND '9'`},
		{"in", FilterCondition{Column: "id", Operator: OpIn, Values: []string{"1", "2"}}, `WHERE "id" IN ('1', '2')`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildWhereClause([]FilterCondition{tt.filter}))
		})
	}
}

func TestBuildWhereClauseSkipsIncompleteConditions(t *testing.T) {
	assert.Equal(t, "", BuildWhereClause([]FilterCondition{
		{Column: "name", Operator: OpEquals, Value: nil},
	}))
	assert.Equal(t, "", BuildWhereClause([]FilterCondition{
		{Column: "age", Operator: OpBetween, Value: strPtr("1"), Value2: nil},
	}))
	assert.Equal(t, "", BuildWhereClause([]FilterCondition{
		{Column: "id", Operator: OpIn, Values: nil},
	}))
}

func TestBuildWhereClauseJoinsMultipleConditionsWithAnd(t *testing.T) {
	result := BuildWhereClause([]FilterCondition{
		{Column: "active", Operator: OpIsTrue},
		{Column: "age", Operator: OpGreaterThan, Value: strPtr("18")},
	})
	assert.Equal(t, `WHERE "active" = TRUE AND "age" > '18'`, result)
}

func TestBuildWhereClauseEscapesEmbeddedQuotes(t *testing.T) {
	result := BuildWhereClause([]FilterCondition{
		{Column: "name", Operator: OpEquals, Value: strPtr("o'brien")},
	})
	assert.Equal(t, `WHERE "name" = 'o''brien'`, result)
}

func TestBuildWhereClauseEscapesLikeWildcards(t *testing.T) {
	result := BuildWhereClause([]FilterCondition{
		{Column: "name", Operator: OpContains, Value: strPtr("50%_off")},
	})
	assert.Equal(t, `WHERE "name"::text ILIKE '%50\%\_off%' ESCAPE '\'`, result)
}
