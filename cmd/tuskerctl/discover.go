// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
)

func discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Scan the local machine for reachable PostgreSQL servers and databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := service()
			databases, err := svc.DiscoverLocalDatabases(ctx)
			if err != nil {
				return err
			}
			return printJSON(databases)
		},
	}
}
