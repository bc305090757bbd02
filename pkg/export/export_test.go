// SPDX-License-Identifier: Apache-2.0

package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject() Project {
	lastConnected := "2026-01-01T00:00:00Z"
	return Project{
		Name:          "Test DB",
		Color:         "blue",
		Host:          "localhost",
		Port:          5432,
		Database:      "testdb",
		Username:      "postgres",
		Password:      "secret123",
		SSL:           false,
		InstantCommit: false,
		ReadOnly:      false,
		LastConnected: &lastConnected,
		CreatedAt:     "2026-01-01T00:00:00Z",
	}
}

func TestRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.tusk")
	password := "testpassword123"

	require.NoError(t, EncryptAndWrite([]Project{sampleProject()}, password, path))

	payload, err := ReadAndDecrypt(path, password)
	require.NoError(t, err)
	require.Len(t, payload.Projects, 1)
	assert.Equal(t, "Test DB", payload.Projects[0].Name)
	assert.Equal(t, "secret123", payload.Projects[0].Password)
	assert.Equal(t, 1, payload.Version)
}

func TestWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.tusk")

	require.NoError(t, EncryptAndWrite([]Project{sampleProject()}, "correct", path))

	_, err := ReadAndDecrypt(path, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect password")
}

func TestInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.tusk")
	require.NoError(t, os.WriteFile(path, []byte("not a tusker file"), 0o600))

	_, err := ReadAndDecrypt(path, "password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not a valid Tusker")
}

func TestTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.tusk")
	require.NoError(t, os.WriteFile(path, []byte("TUS"), 0o600))

	_, err := ReadAndDecrypt(path, "password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
