// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "query <sql>",
		Short:     "Run a raw SQL statement and print the result as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"sql"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sql := args[0]
			svc := service()
			return withConnection(ctx, svc, func(connectionID string) error {
				result, err := svc.ExecuteQuery(ctx, connectionID, sql)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
}
