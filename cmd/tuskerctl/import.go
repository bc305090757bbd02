// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:       "import <file>",
		Short:     "Decrypt an export file and save every connection it contains",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"file"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service()
			count, err := svc.ImportConnections(args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d connection(s) from %s\n", count, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password protecting the export file")
	cmd.MarkFlagRequired("password")

	return cmd
}
