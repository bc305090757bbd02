// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "tables <schema>",
		Short:     "List tables, views, and materialized views in a schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"schema"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			schemaName := args[0]
			svc := service()
			return withConnection(ctx, svc, func(connectionID string) error {
				tables, err := svc.GetTables(ctx, connectionID, schemaName)
				if err != nil {
					return err
				}
				return printJSON(tables)
			})
		},
	}
}
