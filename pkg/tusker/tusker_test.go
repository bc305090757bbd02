// SPDX-License-Identifier: Apache-2.0

package tusker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRejectsUnknownConnection(t *testing.T) {
	svc := New(Options{})

	_, err := svc.GetSchemas(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.False(t, svc.IsConnected("does-not-exist"))
}

func TestServiceListActiveConnectionsStartsEmpty(t *testing.T) {
	svc := New(Options{})
	assert.Empty(t, svc.ListActiveConnections())
}
