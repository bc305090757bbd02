// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDatabaseListFiltersUnreachable(t *testing.T) {
	results := []probeResult{
		{port: 5433, authStatus: AuthPasswordRequired, databases: []string{unreachableSentinel}},
		{port: 5432, authStatus: AuthTrust, databases: []string{"postgres", "app"}},
	}

	out := buildDatabaseList(results, "alice", nil)

	assert.Len(t, out, 2)
	assert.Equal(t, "app", out[0].DatabaseName)
	assert.Equal(t, "postgres", out[1].DatabaseName)
	assert.Equal(t, uint16(5432), out[0].Port)
}

func TestBuildDatabaseListSortsByPortThenName(t *testing.T) {
	results := []probeResult{
		{port: 5434, authStatus: AuthTrust, databases: []string{"zeta"}},
		{port: 5432, authStatus: AuthTrust, databases: []string{"beta", "alpha"}},
	}

	out := buildDatabaseList(results, "alice", nil)

	want := []string{"alpha", "beta", "zeta"}
	got := make([]string, len(out))
	for i, d := range out {
		got[i] = d.DatabaseName
	}
	assert.Equal(t, want, got)
}

func TestBuildDatabaseListMarksAlreadyImported(t *testing.T) {
	results := []probeResult{
		{port: 5432, authStatus: AuthTrust, databases: []string{"app", "other"}},
	}
	existing := []ExistingConnection{{Host: "localhost", Port: 5432, Database: "app"}}

	out := buildDatabaseList(results, "alice", existing)

	for _, d := range out {
		if d.DatabaseName == "app" {
			assert.True(t, d.AlreadyImported)
		} else {
			assert.False(t, d.AlreadyImported)
		}
	}
}

func TestCurrentUsernameFallsBackToPostgres(t *testing.T) {
	t.Setenv("USER", "")
	t.Setenv("USERNAME", "")
	assert.Equal(t, "postgres", CurrentUsername())
}
