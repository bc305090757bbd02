// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

func columnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "columns <schema> <table>",
		Short:     "Describe the columns of a table",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"schema", "table"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			schemaName, table := args[0], args[1]
			svc := service()
			return withConnection(ctx, svc, func(connectionID string) error {
				columns, err := svc.GetColumns(ctx, connectionID, schemaName, table)
				if err != nil {
					return err
				}
				return printJSON(columns)
			})
		},
	}
}
