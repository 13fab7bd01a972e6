// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/carabiner-dev/command"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/client/browser"
	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/loopback"
	"github.com/carabiner-dev/hostedlogin/pkg/client/session"
)

var _ command.OptionsSet = (*SetupOptions)(nil)

type SetupOptions struct {
	ConfigOptions
	Domain     string
	ClientID   string
	Region     string
	APIBaseURL string
	OrgID      string
	FromConfig bool
}

var defaultSetupOptions = SetupOptions{}

func (so *SetupOptions) Validate() error {
	return so.ConfigOptions.Validate()
}

func (so *SetupOptions) AddFlags(cmd *cobra.Command) {
	so.ConfigOptions.AddFlags(cmd)
	cmd.PersistentFlags().StringVar(&so.Domain, "domain", "", "Hosted identity provider domain")
	cmd.PersistentFlags().StringVar(&so.ClientID, "client-id", "", "OAuth app client ID")
	cmd.PersistentFlags().StringVar(&so.Region, "region", "", "Provider region (default "+credentials.DefaultRegion+")")
	cmd.PersistentFlags().StringVar(&so.APIBaseURL, "api-base-url", "", "Base URL of the application API")
	cmd.PersistentFlags().StringVar(&so.OrgID, "org-id", "", "Organization ID sent to the application API")
	cmd.PersistentFlags().BoolVar(&so.FromConfig, "from-config", false, "Start from the provider section of the config file and environment")
}

func (so *SetupOptions) Config() *command.OptionsSetConfig {
	return nil
}

// merge overlays the flags that were set on base
func (so *SetupOptions) merge(base credentials.Config) credentials.Config {
	if so.Domain != "" {
		base.Domain = so.Domain
	}
	if so.ClientID != "" {
		base.ClientID = so.ClientID
	}
	if so.Region != "" {
		base.Region = so.Region
	}
	if so.APIBaseURL != "" {
		base.APIBaseURL = so.APIBaseURL
	}
	if so.OrgID != "" {
		base.OrgID = so.OrgID
	}
	return base
}

func AddSetup(parent *cobra.Command) {
	opts := defaultSetupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Store the identity provider settings",
		Long: `Stores the identity provider settings used to sign in. Flags are applied
on top of the settings already stored, so a single value can be changed
without repeating the rest.

Examples:
  # First time setup
  hostedlogin setup --domain auth.example.com --client-id abc123 \
    --api-base-url https://api.example.com --org-id org-1

  # Import the provider section of the config file
  hostedlogin setup --from-config`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(&opts.ConfigOptions, loopback.LandingPath)
			if err != nil {
				return err
			}

			base := env.store.ReadConfig()
			if opts.FromConfig {
				base = env.cfg.Provider
			}

			page := session.Page{
				URL:     callbackURL(env.cfg.CallbackAddr),
				Nav:     &browser.Navigator{Open: func(string) error { return nil }},
				Display: terminalDisplay(cmd.OutOrStdout()),
			}
			if err := env.flow.SaveConfig(page, opts.merge(base)); err != nil {
				if errors.Is(err, session.ErrIncompleteConfig) {
					return fmt.Errorf("%w: set --domain, --client-id, --api-base-url and --org-id", err)
				}
				return err
			}
			return nil
		},
	}
	opts.AddFlags(cmd)
	parent.AddCommand(cmd)
}
