// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carabiner-dev/command"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/client/browser"
	"github.com/carabiner-dev/hostedlogin/pkg/client/loopback"
	"github.com/carabiner-dev/hostedlogin/pkg/client/session"
)

var _ command.OptionsSet = (*LoginOptions)(nil)

type LoginOptions struct {
	ConfigOptions
	Provider  string
	HostedUI  bool
	NoBrowser bool
	Force     bool
	Timeout   time.Duration
}

var defaultLoginOptions = LoginOptions{
	Provider: "Google",
	Timeout:  5 * time.Minute,
}

// Validate the options set
func (lo *LoginOptions) Validate() error {
	var errs = []error{
		lo.ConfigOptions.Validate(),
	}
	if lo.Timeout <= 0 {
		errs = append(errs, errors.New("--timeout must be positive"))
	}
	return errors.Join(errs...)
}

func (lo *LoginOptions) AddFlags(cmd *cobra.Command) {
	lo.ConfigOptions.AddFlags(cmd)
	cmd.PersistentFlags().StringVar(&lo.Provider, "provider", defaultLoginOptions.Provider, "Upstream identity provider to go straight to")
	cmd.PersistentFlags().BoolVar(&lo.HostedUI, "hosted-ui", false, "Let the user pick the sign in method on the provider page")
	cmd.PersistentFlags().BoolVar(&lo.NoBrowser, "no-browser", false, "Print the sign in URL instead of opening a browser")
	cmd.PersistentFlags().BoolVar(&lo.Force, "force", false, "Sign in again even when a session is active")
	cmd.PersistentFlags().DurationVar(&lo.Timeout, "timeout", defaultLoginOptions.Timeout, "How long to wait for the browser to come back")
}

func (lo *LoginOptions) Config() *command.OptionsSetConfig {
	return nil
}

// identityProvider returns the hint sent to the authorize endpoint
func (lo *LoginOptions) identityProvider() string {
	if lo.HostedUI {
		return ""
	}
	return lo.Provider
}

func AddLogin(parent *cobra.Command) {
	opts := defaultLoginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through the hosted identity provider",
		Long: `Signs in with the authorization code flow and PKCE.

This command will:
1. Check for an active session (unless --force is used)
2. Start a local callback server at the configured callback address
3. Open a browser at the provider authorize endpoint
4. Exchange the returned authorization code for tokens
5. Store the tokens for the current login session

The callback address (default 127.0.0.1:8085) must be registered as an
allowed callback URL of the app client, with the /auth/callback path.

Examples:
  # Sign in with Google (default)
  hostedlogin login

  # Pick the sign in method on the provider page
  hostedlogin login --hosted-ui

  # Print the URL instead of opening a browser
  hostedlogin login --no-browser`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			stderr := cmd.ErrOrStderr()

			env, err := openEnvironment(&opts.ConfigOptions, loopback.LandingPath)
			if err != nil {
				return err
			}

			if !opts.Force && env.flow.IsLoggedIn() {
				fmt.Fprintf(stderr, "Already signed in as %s (use --force to sign in again)\n", env.flow.Tokens().DisplayName())
				return nil
			}

			srv, err := loopback.New(env.flow, env.cfg.CallbackAddr, env.log)
			if err != nil {
				return fmt.Errorf("starting callback server: %w", err)
			}
			srv.Start()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx) //nolint:errcheck
			}()

			nav := &browser.Navigator{Open: func(target string) error {
				if opts.NoBrowser {
					fmt.Fprintf(stderr, "Visit this URL to sign in:\n%s\n", target)
					return nil
				}
				fmt.Fprintf(stderr, "Opening browser for authentication...\n")
				fmt.Fprintf(stderr, "If the browser doesn't open, visit: %s\n", target)
				if err := browser.OpenURL(target); err != nil {
					fmt.Fprintf(stderr, "Warning: could not open browser: %v\n", err)
				}
				return nil
			}}

			page := session.Page{URL: srv.URL(), Nav: nav, Display: terminalDisplay(stderr)}
			if err := env.flow.InitiateLogin(ctx, page, opts.identityProvider()); err != nil {
				if errors.Is(err, session.ErrNotConfigured) {
					return errors.New("sign in is not configured, run 'hostedlogin setup' first")
				}
				return err
			}

			fmt.Fprintf(stderr, "Waiting for authentication...\n")
			waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
			defer cancel()

			res, err := srv.Wait(waitCtx)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("authentication timed out after %v", opts.Timeout)
				}
				return err
			}
			if res.Err != nil {
				return fmt.Errorf("authentication failed: %w", res.Err)
			}

			fmt.Fprintf(stderr, "Signed in as %s\n", env.flow.Tokens().DisplayName())
			return nil
		},
	}
	opts.AddFlags(cmd)
	parent.AddCommand(cmd)
}
