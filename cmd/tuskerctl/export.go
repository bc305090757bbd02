// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:       "export <file>",
		Short:     "Encrypt every saved connection to a portable export file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"file"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service()
			if err := svc.ExportConnections(args[0], password); err != nil {
				return err
			}
			fmt.Printf("exported saved connections to %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password protecting the export file")
	cmd.MarkFlagRequired("password")

	return cmd
}
