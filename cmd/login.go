// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"sqldispatch/cli/internal/backend"
	"sqldispatch/cli/internal/config"
	"sqldispatch/cli/internal/errors"
	"sqldispatch/cli/internal/httperrors"
	"sqldispatch/cli/internal/keychain"
	"sqldispatch/cli/internal/logging"
	"sqldispatch/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// tokensURL is where personal access tokens are generated.
const tokensURL = "https://supabase.com/dashboard/account/tokens"

var openTokensPage bool

// loginCmd stores a personal access token in the OS keychain after checking
// it against the management API.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Store a management API access token in the OS keychain",
	Long: `The login command prompts for a personal access token (sbp_...), verifies it
by listing the projects it can access, and stores it in the OS keychain.

Input is not echoed. The token can also be piped on stdin.
Use --open to open the token page in your browser first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if openTokensPage {
			fmt.Fprintf(out, "Opening %s\n", tokensURL)
			openBrowser(tokensURL)
		}

		token, err := terminal.ReadSecret(out, os.Stdin, "Enter access token: ")
		if err != nil {
			return errors.Wrap(errors.Config, "read token", err)
		}
		if token == "" {
			return errors.New(errors.Config, "access token is required")
		}
		if !strings.HasPrefix(token, "sbp_") {
			pterm.Warning.Println("Token does not start with sbp_; personal access tokens usually do.")
		}

		v, err := loadSettings(cmd.Flags())
		if err != nil {
			return err
		}
		apiURL := strings.TrimRight(v.GetString(config.KeyAPIURL), "/")
		client := backend.New(backend.Options{BaseURL: apiURL, Token: token, UserAgent: "sqldispatch-cli/" + Version})

		stop := terminal.StartSpinner(out, "verifying token", terminal.DefaultFrames, 100*time.Millisecond)
		projects, err := client.ListProjects(ctx)
		stop()
		if err != nil {
			return describeAPIError(out, err, apiURL)
		}

		km, err := keychain.GetManager()
		if err != nil {
			fmt.Fprintln(out, "❌ Secure storage is not available on this system.")
			fmt.Fprintln(out, "   Export SUPABASE_ACCESS_TOKEN instead.")
			return errors.Wrap(errors.Config, "open keychain", err)
		}
		if err := km.SaveAccessToken(token); err != nil {
			return errors.Wrap(errors.Config, "save token", err)
		}

		fmt.Fprintln(out, pterm.Success.Sprintf("Token %s saved. It can access %d project(s).", logging.MaskToken(token), len(projects)))
		return nil
	},
}

// describeAPIError prints a management API failure and returns it with a kind.
func describeAPIError(out io.Writer, err error, apiURL string) error {
	var se *backend.StatusError
	if stderrors.As(err, &se) {
		if se.StatusCode == 401 || se.StatusCode == 403 {
			fmt.Fprintln(out, pterm.Error.Sprint("The access token was rejected. Generate a new one at "+tokensURL))
		} else {
			fmt.Fprintln(out, pterm.Error.Sprintf("HTTP error %d: %s", se.StatusCode, se.Body))
		}
		return errors.Wrap(errors.HTTP, "verify token", err)
	}
	httperrors.Describe(out, err, httperrors.ExtractHostFromURL(apiURL))
	return errors.Wrap(errors.Transport, "verify token", err)
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&openTokensPage, "open", false, "Open the access token page in a browser")
}

// openBrowser attempts to open the provided URL in the user's default browser.
// The browser process is started but not waited for.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
