// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func connectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Test a connection against the flags given and report success",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := service()
			return withConnection(ctx, svc, func(connectionID string) error {
				info, err := svc.GetDatabaseInfo(ctx, connectionID)
				if err != nil {
					return err
				}
				fmt.Printf("connected as %s (%d schemas)\n", info.CurrentUser, info.SchemaCount)
				return nil
			})
		},
	}
}
