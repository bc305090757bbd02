// SPDX-License-Identifier: Apache-2.0

package connection_test

import (
	"context"
	"net/url"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tuskerhq/tusker-core/pkg/connection"
	"github.com/tuskerhq/tusker-core/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

// configFromConnStr reconstructs a connection.Config from the URL testutils
// hands back, so Registry.Connect dials the exact isolated test database
// through its own connection-string-building path rather than skipping it.
func configFromConnStr(t *testing.T, connStr string) (connection.Config, string) {
	t.Helper()

	u, err := url.Parse(connStr)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	password, _ := u.User.Password()
	cfg := connection.NewConfig("integration-test", u.Hostname(), uint16(port), u.Path[1:], u.User.Username(), password)
	cfg.SSLMode = connection.SSLDisable
	return cfg, password
}

func TestRegistryConnectAndDisconnect(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(_ *pgxpool.Pool, connStr string) {
		cfg, password := configFromConnStr(t, connStr)

		registry := connection.NewRegistry()
		ctx := context.Background()

		id, err := registry.Connect(ctx, cfg, password)
		require.NoError(t, err)
		require.Equal(t, cfg.ID, id)
		require.True(t, registry.IsConnected(id))

		pool, err := registry.Pool(id)
		require.NoError(t, err)
		var one int
		require.NoError(t, pool.QueryRow(ctx, "SELECT 1").Scan(&one))
		require.Equal(t, 1, one)

		require.NoError(t, registry.Disconnect(ctx, id))
		require.False(t, registry.IsConnected(id))
	})
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	testutils.WithPool(t, func(_ *pgxpool.Pool, connStr string) {
		cfg, password := configFromConnStr(t, connStr)

		registry := connection.NewRegistry()
		ctx := context.Background()

		_, err := registry.Connect(ctx, cfg, password)
		require.NoError(t, err)
		defer registry.DisconnectAll(ctx)

		_, err = registry.Connect(ctx, cfg, password)
		require.Error(t, err)
	})
}
