// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/spf13/viper"

	"github.com/tuskerhq/tusker-core/pkg/connection"
	"github.com/tuskerhq/tusker-core/pkg/tusker"
)

func configFromFlags() connection.Config {
	cfg := connection.NewConfig(
		"tuskerctl",
		viper.GetString("HOST"),
		uint16(viper.GetInt("PORT")),
		viper.GetString("DATABASE"),
		viper.GetString("USERNAME"),
		viper.GetString("PASSWORD"),
	)
	switch viper.GetString("SSL_MODE") {
	case "disable":
		cfg.SSLMode = connection.SSLDisable
	case "require":
		cfg.SSLMode = connection.SSLRequire
	default:
		cfg.SSLMode = connection.SSLPrefer
	}
	return cfg
}

// withConnection connects using the flags bound to the current command,
// runs fn with the resulting connection id, and always disconnects
// afterward.
func withConnection(ctx context.Context, svc *tusker.Service, fn func(connectionID string) error) error {
	cfg := configFromFlags()
	id, err := svc.Connect(ctx, cfg, viper.GetString("PASSWORD"))
	if err != nil {
		return err
	}
	defer svc.Disconnect(ctx, id)

	return fn(id)
}
