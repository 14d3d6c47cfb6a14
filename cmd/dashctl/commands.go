package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"insights-dashboard/internal/authclient"
	"insights-dashboard/internal/idp"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the refresh cookie",
		Long: `Sign in with email and password. Missing values are prompted for.
When the account has MFA enabled, the one-time code is taken from --code
or prompted for.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if email == "" || password == "" {
				if err := a.prompter.Credentials(&email, &password); err != nil {
					return err
				}
			}

			err := a.manager.SignIn(ctx, email, password)
			var ch *idp.ChallengeError
			if errors.As(err, &ch) {
				if code == "" {
					if code, err = a.prompter.Code("Authenticator code"); err != nil {
						return err
					}
				}
				err = a.manager.ConfirmMFA(ctx, ch.Challenge, code)
			}
			if err != nil {
				return fmt.Errorf("sign-in failed: %w", err)
			}

			u := a.manager.Snapshot().User
			fmt.Fprintf(a.out, "Signed in as %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	cmd.Flags().StringVar(&code, "code", "", "MFA one-time code")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.session(cmd.Context()); err != nil {
				return err
			}
			u := *a.manager.Snapshot().User
			if remote {
				// Ask the protected API, which verifies the bearer token.
				me, err := a.client.Me(cmd.Context())
				if err != nil {
					return err
				}
				u = me
			}

			fmt.Fprintf(a.out, "email:  %s\n", u.Email)
			fmt.Fprintf(a.out, "role:   %s\n", u.Role)
			if u.ClientID != "" {
				fmt.Fprintf(a.out, "client: %s\n", u.ClientID)
			}
			if len(u.Groups) > 0 {
				fmt.Fprintf(a.out, "groups: %s\n", strings.Join(u.Groups, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "resolve through the protected /api/me endpoint")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out everywhere and clear the refresh cookie",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// Resolve first so the provider session can be revoked too.
			a.manager.Init(ctx)

			err := a.manager.SignOut(ctx)
			if errors.Is(err, authclient.ErrCleanupIncomplete) {
				fmt.Fprintln(a.out, "Signed out locally; server cleanup did not complete.")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newMFACmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa",
		Short: "Manage authenticator-app MFA",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Start enrollment and print the authenticator secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			secret, err := a.client.MFASetup(cmd.Context(), at)
			if err != nil {
				return err
			}
			email := a.manager.Snapshot().User.Email
			fmt.Fprintf(a.out, "secret: %s\n", secret)
			fmt.Fprintf(a.out, "uri:    %s\n", otpauthURI(email, secret))
			fmt.Fprintln(a.out, "Add it to your authenticator app, then run `dashctl mfa verify`.")
			return nil
		},
	}

	verify := &cobra.Command{
		Use:   "verify [code]",
		Short: "Verify a code and enable MFA",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			var code string
			if len(args) == 1 {
				code = args[0]
			} else if code, err = a.prompter.Code("Authenticator code"); err != nil {
				return err
			}
			if err := a.client.MFAVerify(cmd.Context(), at, code); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "MFA enabled.")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether MFA is enabled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			enabled, err := a.client.MFAStatus(cmd.Context(), at)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "enabled: %t\n", enabled)
			return nil
		},
	}

	var yes bool
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Disable MFA",
		RunE: func(cmd *cobra.Command, _ []string) error {
			at, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.prompter.Confirm("Disable MFA for this account?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(a.out, "Aborted.")
					return nil
				}
			}
			if err := a.client.MFADisable(cmd.Context(), at); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "MFA disabled.")
			return nil
		},
	}
	disable.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	cmd.AddCommand(setup, verify, status, disable)
	return cmd
}

func otpauthURI(email, secret string) string {
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", "Insights")
	return (&url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/Insights:" + email,
		RawQuery: q.Encode(),
	}).String()
}
