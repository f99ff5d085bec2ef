// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sqldispatch/cli/internal/backend"
	"sqldispatch/cli/internal/httperrors"
	"sqldispatch/cli/internal/logging"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// whoamiCmd validates the resolved token and lists the projects it can see.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the active token and the projects it can access",
	Long: `The whoami command resolves the access token the same way a dispatch does,
shows where it came from (masked), and lists the projects it can access.
The configured target project is marked with an arrow.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		s, err := resolveSettings(cmd.Flags())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		client := backend.New(backend.Options{BaseURL: s.APIURL, Token: s.AccessToken, UserAgent: "sqldispatch-cli/" + Version})
		projects, err := client.ListProjects(ctx)
		if err != nil {
			return describeAPIError(out, err, s.APIURL)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Token:   %s (%s)\n", logging.MaskToken(s.AccessToken), s.TokenSource)
		fmt.Fprintf(&b, "API:     %s\n", httperrors.ExtractHostFromURL(s.APIURL))
		fmt.Fprintf(&b, "Target:  %s", s.ProjectRef)
		fmt.Fprintln(out, pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Management API")).
			WithPadding(1).
			Sprint(b.String()))

		if len(projects) == 0 {
			fmt.Fprintln(out, "⚠️  This token cannot see any projects.")
			return nil
		}
		fmt.Fprintln(out, renderProjects(projects, s.ProjectRef))
		return nil
	},
}

// renderProjects lists projects one per line, marking the target.
func renderProjects(projects []backend.Project, target string) string {
	var b strings.Builder
	found := false
	for _, p := range projects {
		marker := "  "
		if p.Identifier() == target {
			marker = "→ "
			found = true
		}
		fmt.Fprintf(&b, "%s%-22s %-28s %-14s %s\n", marker, p.Identifier(), p.Name, p.Region, p.Status)
	}
	if !found && target != "" {
		fmt.Fprintf(&b, "\n⚠️  Target project %s is not visible to this token.\n", target)
	}
	return strings.TrimRight(b.String(), "\n")
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
