// SPDX-License-Identifier: Apache-2.0

package main

import "strings"

// splitStatements splits a SQL file on top-level semicolons, dropping empty
// statements. It is a plain splitter, not a SQL parser: a semicolon inside a
// string literal or dollar-quoted body will also split.
func splitStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	statements := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			statements = append(statements, trimmed)
		}
	}
	return statements
}
