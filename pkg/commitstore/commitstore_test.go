// SPDX-License-Identifier: Apache-2.0

package commitstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHashIsDeterministic(t *testing.T) {
	parentID := "abc"
	a := generateHash(&parentID, "2024-01-01T00:00:00Z", []string{"INSERT INTO t VALUES (1)"})
	b := generateHash(&parentID, "2024-01-01T00:00:00Z", []string{"INSERT INTO t VALUES (1)"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestGenerateHashRootDiffersFromParented(t *testing.T) {
	parentID := "abc"
	root := generateHash(nil, "2024-01-01T00:00:00Z", []string{"x"})
	parented := generateHash(&parentID, "2024-01-01T00:00:00Z", []string{"x"})
	assert.NotEqual(t, root, parented)
}

func TestGenerateHashChangesWithStatements(t *testing.T) {
	a := generateHash(nil, "2024-01-01T00:00:00Z", []string{"x"})
	b := generateHash(nil, "2024-01-01T00:00:00Z", []string{"y"})
	assert.NotEqual(t, a, b)
}

func TestSaveCommitAndGetCommits(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	first, err := store.SaveCommit(ctx, SaveCommitRequest{
		ProjectID: "proj1",
		Message:   "first commit",
		Summary:   "added a row",
		Changes: []ChangeInput{
			{Type: "insert", SchemaName: "public", TableName: "users", Data: `{"id":1}`, SQL: "INSERT INTO users VALUES (1)"},
		},
	})
	require.NoError(t, err)
	assert.Nil(t, first.ParentID)
	assert.Equal(t, int64(1), first.ChangeCount)

	second, err := store.SaveCommit(ctx, SaveCommitRequest{
		ProjectID: "proj1",
		Message:   "second commit",
		Summary:   "updated a row",
		Changes: []ChangeInput{
			{Type: "update", SchemaName: "public", TableName: "users", Data: `{"id":1}`, SQL: "UPDATE users SET x=1"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, second.ParentID)
	assert.Equal(t, first.ID, *second.ParentID)

	commits, err := store.GetCommits(ctx, "proj1")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, second.ID, commits[0].ID, "newest first")
	assert.Equal(t, first.ID, commits[1].ID)
}

func TestGetCommitDetailReturnsOrderedChanges(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	commit, err := store.SaveCommit(ctx, SaveCommitRequest{
		ProjectID: "proj2",
		Message:   "batch",
		Summary:   "two rows",
		Changes: []ChangeInput{
			{Type: "insert", SchemaName: "public", TableName: "t", Data: "1", SQL: "INSERT 1"},
			{Type: "insert", SchemaName: "public", TableName: "t", Data: "2", SQL: "INSERT 2"},
		},
	})
	require.NoError(t, err)

	detail, err := store.GetCommitDetail(ctx, "proj2", commit.ID)
	require.NoError(t, err)
	require.Len(t, detail.Changes, 2)
	assert.Equal(t, "INSERT 1", detail.Changes[0].SQL)
	assert.Equal(t, "INSERT 2", detail.Changes[1].SQL)
	assert.Equal(t, int64(0), detail.Changes[0].SortOrder)
	assert.Equal(t, int64(1), detail.Changes[1].SortOrder)
}

func TestGetCommitDetailUnknownCommitErrors(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.GetCommitDetail(context.Background(), "proj3", "does-not-exist")
	assert.Error(t, err)
}
