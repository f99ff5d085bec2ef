// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"sort"
	"strings"

	"sqldispatch/cli/internal/config"
	"sqldispatch/cli/internal/dsn"
	"sqldispatch/cli/internal/logging"
	"sqldispatch/cli/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// configCmd groups the settings subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or change persisted settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings and where secrets come from",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		v, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}

		rows := map[string]string{
			config.KeyProjectRef:   orUnset(v.GetString(config.KeyProjectRef)),
			config.KeyAPIURL:       v.GetString(config.KeyAPIURL),
			config.KeyDashboardURL: v.GetString(config.KeyDashboardURL),
			config.KeyTimeout:      v.GetString(config.KeyTimeout),
			config.KeyLogLevel:     v.GetString(config.KeyLogLevel),
		}
		if tok := v.GetString(config.KeyAccessToken); tok != "" {
			rows[config.KeyAccessToken] = logging.MaskToken(tok) + " (environment)"
		} else if tok, err := loadToken(); err == nil && tok != "" {
			rows[config.KeyAccessToken] = logging.MaskToken(tok) + " (keychain)"
		} else {
			rows[config.KeyAccessToken] = "(unset)"
		}
		if d := v.GetString(config.KeyDBURL); d != "" {
			rows[config.KeyDBURL] = dsn.MaskPassword(d) + " (environment)"
		} else {
			rows[config.KeyDBURL] = "(unset)"
		}

		keys := make([]string, 0, len(rows))
		for k := range rows {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%-14s %s\n", k, rows[k])
		}
		path, _ := xdg.ConfigFile()
		fmt.Fprintln(out, pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Settings")).
			WithPadding(1).
			Sprint(strings.TrimRight(b.String(), "\n")))
		fmt.Fprintf(out, "Config file: %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a non-secret setting",
	Long: `Persist a setting in the config file. Allowed keys:
  project_ref, api_url, dashboard_url, timeout, log_level

Secrets are never written to the config file; use 'sqldispatch login' or
'sqldispatch connect' for those.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], strings.TrimSpace(args[1])
		if !config.Persistable(key) {
			return fmt.Errorf("cannot set %q; allowed keys: project_ref, api_url, dashboard_url, timeout, log_level", key)
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s = %s\n", key, value)
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
