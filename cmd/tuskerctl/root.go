// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tuskerhq/tusker-core/internal/tuskerlog"
	"github.com/tuskerhq/tusker-core/pkg/tusker"
)

// Version is set at build time via -ldflags.
var Version = "development"

func init() {
	viper.SetEnvPrefix("TUSKER")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("host", "localhost", "Postgres host")
	rootCmd.PersistentFlags().Int("port", 5432, "Postgres port")
	rootCmd.PersistentFlags().String("database", "postgres", "Postgres database")
	rootCmd.PersistentFlags().String("username", "postgres", "Postgres username")
	rootCmd.PersistentFlags().String("password", "", "Postgres password")
	rootCmd.PersistentFlags().String("ssl-mode", "prefer", "sslmode (disable, prefer, require)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	viper.BindPFlag("HOST", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("PORT", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("DATABASE", rootCmd.PersistentFlags().Lookup("database"))
	viper.BindPFlag("USERNAME", rootCmd.PersistentFlags().Lookup("username"))
	viper.BindPFlag("PASSWORD", rootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("SSL_MODE", rootCmd.PersistentFlags().Lookup("ssl-mode"))
	viper.BindPFlag("VERBOSE", rootCmd.PersistentFlags().Lookup("verbose"))
}

var rootCmd = &cobra.Command{
	Use:          "tuskerctl",
	Short:        "Command-line client for the tusker-core database toolkit",
	SilenceUsage: true,
	Version:      Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetBool("VERBOSE") {
			tuskerlog.SetDefault(tuskerlog.New(tuskerlog.Options{Level: log.DebugLevel}))
		}
	},
}

// service returns a fresh tusker.Service for one CLI invocation.
func service() *tusker.Service {
	return tusker.New(tusker.Options{})
}

// Execute registers every subcommand and runs the CLI.
func Execute() error {
	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(schemasCmd())
	rootCmd.AddCommand(tablesCmd())
	rootCmd.AddCommand(columnsCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(discoverCmd())

	return rootCmd.Execute()
}
