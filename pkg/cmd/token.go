// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/carabiner-dev/command"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/loopback"
)

var _ command.OptionsSet = (*TokenOptions)(nil)

type TokenOptions struct {
	ConfigOptions
	TokenReadOptions
	Decode bool
}

var defaultTokenOptions = TokenOptions{
	TokenReadOptions: defaultTokenReadOptions,
}

func (to *TokenOptions) Validate() error {
	return to.ConfigOptions.Validate()
}

func (to *TokenOptions) AddFlags(cmd *cobra.Command) {
	to.ConfigOptions.AddFlags(cmd)
	to.TokenReadOptions.AddFlags(cmd)
	cmd.PersistentFlags().BoolVar(&to.Decode, "decode", false, "Decode and display the JWT claims")
}

func (to *TokenOptions) Config() *command.OptionsSetConfig {
	return nil
}

func AddToken(parent *cobra.Command) {
	opts := defaultTokenOptions

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the session bearer token",
		Long: `Print the access token of the current session, ready to be used as a
bearer token against the application API.

The HOSTEDLOGIN_TOKEN environment variable takes precedence over the stored
session. Use --id for the identity token and --decode to show the JWT
claims (the signature is not verified).`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(&opts.ConfigOptions, loopback.LandingPath)
			if err != nil {
				return err
			}

			token, err := opts.ReadToken(cmd.Context(), cmd.InOrStdin(), env.store)
			if err != nil {
				return err
			}

			if opts.Decode {
				claims, err := credentials.DecodeClaimMap(token)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to decode JWT: %v\n", err)
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "JWT Claims:")
					if err := renderJSON(cmd.ErrOrStderr(), claims); err != nil {
						return err
					}
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	opts.AddFlags(cmd)
	parent.AddCommand(cmd)
}
