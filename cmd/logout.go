// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"sqldispatch/cli/internal/errors"
	"sqldispatch/cli/internal/keychain"

	"github.com/spf13/cobra"
)

// logoutCmd removes every secret sqldispatch stored in the OS keychain.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved access token and database URL",
	Long: `The logout command clears the access token and the --direct database URL
from the OS keychain. Settings in the config file and environment variables
are left untouched.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			return errors.Wrap(errors.Config, "open keychain", err)
		}
		if err := km.ClearAll(); err != nil {
			return errors.Wrap(errors.Config, "clear keychain", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Saved credentials have been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
