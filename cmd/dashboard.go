// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"sqldispatch/cli/internal/config"
	"sqldispatch/cli/internal/errors"

	"github.com/spf13/cobra"
)

var printOnly bool

// dashboardCmd opens the project's SQL editor, the manual fallback when a
// statement cannot go through the management API.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the project's SQL editor in a browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		ref := strings.TrimSpace(v.GetString(config.KeyProjectRef))
		if ref == "" {
			return errors.New(errors.Config, "no project reference configured; set SUPABASE_PROJECT_REF or pass --project-ref")
		}
		url := SQLEditorURL(v.GetString(config.KeyDashboardURL), ref)

		fmt.Fprintln(cmd.OutOrStdout(), url)
		if !printOnly {
			openBrowser(url)
		}
		return nil
	},
}

// SQLEditorURL returns the dashboard SQL editor address for ref.
func SQLEditorURL(base, ref string) string {
	return fmt.Sprintf("%s/project/%s/sql/new", strings.TrimRight(base, "/"), ref)
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().BoolVar(&printOnly, "print", false, "Only print the URL")
}
