// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdentifier("users"))
	assert.Equal(t, `"my""table"`, QuoteIdentifier(`my"table`))
}

func TestTableTypeFromRelKindLabel(t *testing.T) {
	tests := []struct {
		label    string
		expected TableType
	}{
		{"VIEW", TableTypeView},
		{"MATERIALIZED VIEW", TableTypeMaterializedView},
		{"FOREIGN TABLE", TableTypeForeignTable},
		{"ORDINARY TABLE", TableTypeTable},
		{"", TableTypeTable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tableTypeFromRelKindLabel(tt.label), tt.label)
	}
}

func TestConstraintTypeFromLabel(t *testing.T) {
	tests := []struct {
		label    string
		expected ConstraintType
	}{
		{"PRIMARY KEY", ConstraintPrimaryKey},
		{"FOREIGN KEY", ConstraintForeignKey},
		{"UNIQUE", ConstraintUnique},
		{"EXCLUSION", ConstraintExclusion},
		{"CHECK", ConstraintCheck},
		{"", ConstraintCheck},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, constraintTypeFromLabel(tt.label), tt.label)
	}
}
