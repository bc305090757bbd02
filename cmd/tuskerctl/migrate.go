// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tuskerhq/tusker-core/pkg/migration"
)

func migrateCmd() *cobra.Command {
	var dryRun bool
	var lockTimeoutMs int
	var statementTimeoutMs int

	cmd := &cobra.Command{
		Use:       "migrate <file>",
		Short:     "Execute every statement in a SQL file as one migration batch",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"file"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			contents, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			req := migration.Request{
				Statements:         splitStatements(string(contents)),
				DryRun:             dryRun,
				LockTimeoutMs:      lockTimeoutMs,
				StatementTimeoutMs: statementTimeoutMs,
			}

			svc := service()
			return withConnection(ctx, svc, func(connectionID string) error {
				result, err := svc.ExecuteMigration(ctx, connectionID, req)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "execute every statement, then roll back the whole batch")
	cmd.Flags().IntVar(&lockTimeoutMs, "lock-timeout-ms", 0, "session lock_timeout in milliseconds (0 uses the default)")
	cmd.Flags().IntVar(&statementTimeoutMs, "statement-timeout-ms", 0, "session statement_timeout in milliseconds (0 uses the default)")

	return cmd
}
