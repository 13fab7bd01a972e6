// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"net/url"

	"github.com/carabiner-dev/command"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/client/browser"
	"github.com/carabiner-dev/hostedlogin/pkg/client/loopback"
	"github.com/carabiner-dev/hostedlogin/pkg/client/session"
)

var _ command.OptionsSet = (*LogoutOptions)(nil)

type LogoutOptions struct {
	ConfigOptions
	Browser bool
}

var defaultLogoutOptions = LogoutOptions{}

func (lo *LogoutOptions) Validate() error {
	return lo.ConfigOptions.Validate()
}

func (lo *LogoutOptions) AddFlags(cmd *cobra.Command) {
	lo.ConfigOptions.AddFlags(cmd)
	cmd.PersistentFlags().BoolVar(&lo.Browser, "browser", false, "Also end the session at the provider in the browser")
}

func (lo *LogoutOptions) Config() *command.OptionsSetConfig {
	return nil
}

func AddLogout(parent *cobra.Command) {
	opts := defaultLogoutOptions

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Long: `Removes the stored tokens and any pending code verifier.

With --browser the provider logout page is opened as well, ending the
session at the identity provider.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			env, err := openEnvironment(&opts.ConfigOptions, loopback.LandingPath)
			if err != nil {
				return err
			}

			nav := &browser.Navigator{Open: func(target string) error {
				if !opts.Browser {
					fmt.Fprintf(cmd.ErrOrStderr(), "To also sign out at the provider, visit: %s\n", target)
					return nil
				}
				return browser.OpenURL(target)
			}}

			page := session.Page{
				URL:     callbackURL(env.cfg.CallbackAddr),
				Nav:     nav,
				Display: terminalDisplay(cmd.ErrOrStderr()),
			}
			if err := env.flow.Logout(cmd.Context(), page); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}

			fmt.Fprintln(stdout, "✓ Session cleared successfully")
			return nil
		},
	}
	opts.AddFlags(cmd)
	parent.AddCommand(cmd)
}

// callbackURL is the loopback page URL for a callback address
func callbackURL(addr string) *url.URL {
	return &url.URL{Scheme: "http", Host: addr, Path: loopback.CallbackPath}
}
