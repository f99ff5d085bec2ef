// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for sqldispatch.
// The root command reads a SQL file and submits it to the database provider's
// management API (or, with --direct, to Postgres itself). Subcommands manage
// the credentials and settings that used to be hard-coded.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"sqldispatch/cli/internal/backend"
	"sqldispatch/cli/internal/config"
	"sqldispatch/cli/internal/dispatch"
	"sqldispatch/cli/internal/dsn"
	"sqldispatch/cli/internal/errors"
	"sqldispatch/cli/internal/httperrors"
	"sqldispatch/cli/internal/keychain"
	"sqldispatch/cli/internal/logging"
	"sqldispatch/cli/internal/sqlexec"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// usageLine is printed when the SQL file argument is missing.
const usageLine = "Usage: sqldispatch <file.sql>"

var (
	showVersion bool
	verbose     bool
	direct      bool
)

// Secret loaders; replaced in tests so no OS keychain is touched.
var (
	loadToken config.SecretLoader = keychain.LoadAccessToken
	loadDBURL config.SecretLoader = keychain.LoadDBURL
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sqldispatch <file.sql>",
	Short: "Execute a SQL file on a hosted Postgres project",
	Long: `sqldispatch reads a SQL file and submits it to the database provider's
management API (POST /v1/projects/{ref}/database/query) for execution, then
prints the JSON result.

The project reference, API URL and timeout come from flags, SQLDISPATCH_*
environment variables, a .env file or 'sqldispatch config set'. The access
token comes from SUPABASE_ACCESS_TOKEN or from the OS keychain ('sqldispatch login').

With --direct the file runs over a Postgres connection instead, which also
accepts DDL the REST layer refuses.

Exit codes: 0 success, 1 usage/config/request failure, 2 unreadable file.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.SetVerbose(true)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if showVersion {
			fmt.Fprintf(out, "sqldispatch %s\n", Version)
			return nil
		}
		if len(args) == 0 {
			fmt.Fprintln(out, usageLine)
			return errors.New(errors.Usage, "missing SQL file argument")
		}

		if len(args) > 1 {
			logging.Debugf("ignoring %d extra argument(s) after %s", len(args)-1, args[0])
		}

		sql, err := dispatch.Load(out, args[0])
		if err != nil {
			return err
		}

		v, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		runner, target, closeRunner, err := buildRunner(v)
		if err != nil {
			return err
		}
		defer closeRunner()

		return dispatch.New(runner, out, target).Submit(cmd.Context(), sql)
	},
}

// loadSettings builds the viper instance and binds the settings flags that
// were set on the command line. flags must include the inherited persistent
// flags, which cmd.Flags() does once cobra has parsed the command line.
func loadSettings(flags *pflag.FlagSet) (*viper.Viper, error) {
	v, err := config.New()
	if err != nil {
		return nil, errors.Wrap(errors.Config, "load settings", err)
	}
	for key, name := range map[string]string{
		config.KeyProjectRef: "project-ref",
		config.KeyAPIURL:     "api-url",
		config.KeyTimeout:    "timeout",
		config.KeyDBURL:      "db-url",
	} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	if v.GetString(config.KeyLogLevel) == "debug" {
		logging.SetVerbose(true)
	}
	return v, nil
}

// resolveSettings loads settings for a management API command.
func resolveSettings(flags *pflag.FlagSet) (config.Settings, error) {
	v, err := loadSettings(flags)
	if err != nil {
		return config.Settings{}, err
	}
	return config.Resolve(v, loadToken)
}

// buildRunner returns the runner for this invocation and a name for the
// remote used in messages.
func buildRunner(v *viper.Viper) (dispatch.Runner, string, func(), error) {
	if direct {
		raw, source, err := config.ResolveDSN(v, loadDBURL)
		if err != nil {
			return nil, "", nil, err
		}
		info, err := dsn.ParseInfo(raw)
		if err != nil {
			return nil, "", nil, errors.Wrap(errors.Config, "invalid database URL from "+source, err)
		}
		timeout, err := time.ParseDuration(v.GetString(config.KeyTimeout))
		if err != nil {
			return nil, "", nil, errors.Wrap(errors.Config, "invalid timeout", err)
		}
		logging.Debugf("direct mode using %s (from %s)", dsn.MaskPassword(raw), source)
		lazy := &sqlexec.Lazy{DSN: dsn.Normalize(info), Timeout: timeout}
		return lazy, info.Host, lazy.Close, nil
	}

	s, err := config.Resolve(v, loadToken)
	if err != nil {
		return nil, "", nil, err
	}
	logging.Debugf("project %s via %s, token from %s", s.ProjectRef, s.APIURL, s.TokenSource)
	client := backend.New(backend.Options{
		BaseURL:    s.APIURL,
		ProjectRef: s.ProjectRef,
		Token:      s.AccessToken,
		Timeout:    s.Timeout,
		UserAgent:  "sqldispatch-cli/" + Version,
	})
	return client, httperrors.ExtractHostFromURL(s.APIURL), func() {}, nil
}

// Execute runs the CLI application and exits with the mapped status code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the root command with args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !alreadyReported(err) {
		fmt.Fprintln(stderr, pterm.Error.Sprint(logging.Mask(err.Error())))
	}
	return errors.ExitCode(err)
}

// alreadyReported is true for failures the dispatcher or the usage check
// have printed themselves.
func alreadyReported(err error) bool {
	switch errors.KindOf(err) {
	case errors.Usage, errors.HTTP, errors.Transport, errors.Decode, errors.Query:
		return true
	}
	return false
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version")
	rootCmd.Flags().BoolVar(&direct, "direct", false, "Run the file over a Postgres connection instead of the management API")

	pf := rootCmd.PersistentFlags()
	pf.String("project-ref", "", "Project reference (env SUPABASE_PROJECT_REF)")
	pf.String("api-url", "", "Management API base URL (default "+config.DefaultAPIURL+")")
	pf.String("timeout", "", "Request timeout, e.g. 30s (default: none)")
	pf.String("db-url", "", "Postgres URL for --direct (env DATABASE_URL)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug output")
}
