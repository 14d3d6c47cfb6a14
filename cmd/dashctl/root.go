package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"insights-dashboard/internal/authclient"
	"insights-dashboard/internal/tokenstore"
	"insights-dashboard/pkg/logger"

	"github.com/spf13/cobra"
)

// app is the per-invocation state shared by subcommands.
type app struct {
	client  *authclient.Client
	manager *authclient.Manager
	tokens  *tokenstore.Store
	out     io.Writer

	prompter prompter
}

func newRootCmd() *cobra.Command { return newRootCmdWith(huhPrompter{}) }

func newRootCmdWith(p prompter) *cobra.Command {
	var (
		apiURL  string
		jarPath string
		verbose bool
	)
	a := &app{prompter: p}

	root := &cobra.Command{
		Use:   "dashctl",
		Short: "Manage your insights dashboard session from a terminal",
		Long: `dashctl signs in to the insights dashboard API and keeps the session's
refresh cookie in a private jar file. Every command resolves the session
from that cookie first, exactly like a page load in the browser.

Examples:
  dashctl login --email owner@example.com
  dashctl whoami
  dashctl mfa setup
  dashctl logout`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, apiURL, jarPath, verbose)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.manager != nil {
				a.manager.Dispose()
			}
		},
	}

	root.PersistentFlags().StringVar(&apiURL, "api", envOr("DASHCTL_API", "http://localhost:8080"), "dashboard API base URL")
	root.PersistentFlags().StringVar(&jarPath, "jar", envOr("DASHCTL_JAR", defaultJarPath()), "cookie jar file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newWhoamiCmd(a),
		newLogoutCmd(a),
		newMFACmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, apiURL, jarPath string, verbose bool) error {
	log := logger.NewCLI(cmd.ErrOrStderr(), verbose)
	a.out = cmd.OutOrStdout()

	base, err := url.Parse(apiURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("--api must be an absolute URL, got %q", apiURL)
	}
	jar, err := openJar(jarPath, cookieScope(base), log)
	if err != nil {
		return err
	}

	a.tokens = tokenstore.New()
	hc := &http.Client{
		Jar:       jar,
		Transport: &authclient.BearerTransport{Tokens: a.tokens},
		Timeout:   15 * time.Second,
	}
	a.client, err = authclient.NewClient(apiURL, hc)
	if err != nil {
		return err
	}
	a.manager, err = authclient.NewManager(authclient.Options{
		Gateway:     a.client,
		Credentials: a.client,
		Tokens:      a.tokens,
		Navigator: authclient.NavigatorFunc(func(route string) {
			log.Debug("navigate", "route", route)
		}),
		Logger: log,
	})
	return err
}

var errNotSignedIn = errors.New("not signed in, run `dashctl login`")

// session resolves the session from the jar and returns the access token.
func (a *app) session(ctx context.Context) (string, error) {
	a.manager.Init(ctx)
	if a.manager.Snapshot().State != authclient.Authenticated {
		return "", errNotSignedIn
	}
	at, _ := a.tokens.AccessToken()
	return at, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultJarPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "dashctl", "cookies.json")
}
