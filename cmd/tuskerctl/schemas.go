// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func schemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List schemas on the connected database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := service()
			return withConnection(ctx, svc, func(connectionID string) error {
				schemas, err := svc.GetSchemas(ctx, connectionID)
				if err != nil {
					return err
				}
				return printJSON(schemas)
			})
		},
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
