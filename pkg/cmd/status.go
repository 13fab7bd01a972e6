// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/carabiner-dev/command"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/loopback"
)

var _ command.OptionsSet = (*StatusOptions)(nil)

type StatusOptions struct {
	ConfigOptions
	JSON bool
}

var defaultStatusOptions = StatusOptions{}

func (so *StatusOptions) Validate() error {
	return so.ConfigOptions.Validate()
}

func (so *StatusOptions) AddFlags(cmd *cobra.Command) {
	so.ConfigOptions.AddFlags(cmd)
	cmd.PersistentFlags().BoolVar(&so.JSON, "json", false, "Output in JSON format")
}

func (so *StatusOptions) Config() *command.OptionsSetConfig {
	return nil
}

// sessionStatus is a snapshot of the stored configuration and session
type sessionStatus struct {
	Config       credentials.Config
	Tokens       credentials.Tokens
	LoggedIn     bool
	PendingLogin bool
	Claims       map[string]any
	Now          time.Time
}

func AddStatus(parent *cobra.Command) {
	opts := defaultStatusOptions

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Display the configuration and the signed in identity",
		Long: `Displays the stored provider configuration and, when signed in, the
identity from the identity token claims (subject, email, expiration).

Examples:
  # Show the current session
  hostedlogin status

  # Output as JSON
  hostedlogin status --json`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(&opts.ConfigOptions, loopback.LandingPath)
			if err != nil {
				return err
			}

			st := sessionStatus{
				Config:   env.flow.Config(),
				Tokens:   env.flow.Tokens(),
				LoggedIn: env.flow.IsLoggedIn(),
				Now:      env.store.Now(),
			}
			_, st.PendingLogin = env.store.Verifier()
			if st.Tokens.IDToken != "" {
				if claims, err := credentials.DecodeClaimMap(st.Tokens.IDToken); err == nil {
					st.Claims = claims
				} else {
					env.log.WithError(err).Debug("identity token claims unavailable")
				}
			}

			if opts.JSON {
				return renderJSON(cmd.OutOrStdout(), st.toMap())
			}
			st.print(cmd.OutOrStdout())
			return nil
		},
	}
	opts.AddFlags(cmd)
	parent.AddCommand(cmd)
}

func (st *sessionStatus) toMap() map[string]any {
	out := map[string]any{
		"configured": st.Config.Complete(),
		"config": map[string]any{
			"domain":       st.Config.Domain,
			"client_id":    st.Config.ClientID,
			"region":       st.Config.Region,
			"api_base_url": st.Config.APIBaseURL,
			"org_id":       st.Config.OrgID,
		},
		"logged_in":     st.LoggedIn,
		"pending_login": st.PendingLogin,
		"refresh_token": st.Tokens.RefreshToken != "",
	}
	if st.LoggedIn {
		out["email"] = st.Tokens.DisplayName()
		if !st.Tokens.Expiry.IsZero() {
			out["expires_at"] = st.Tokens.Expiry.UTC().Format(time.RFC3339)
			out["expires_in"] = st.Tokens.Expiry.Sub(st.Now).Round(time.Second).String()
		}
		if st.Claims != nil {
			out["claims"] = st.Claims
		}
	}
	return out
}

func (st *sessionStatus) print(w io.Writer) {
	if !st.Config.Complete() {
		fmt.Fprintln(w, "Configured: no (run 'hostedlogin setup')")
	} else {
		fmt.Fprintf(w, "Provider:   %s (%s)\n", st.Config.Domain, st.Config.Region)
		fmt.Fprintf(w, "Client ID:  %s\n", st.Config.ClientID)
		fmt.Fprintf(w, "API:        %s\n", st.Config.APIBaseURL)
		fmt.Fprintf(w, "Org:        %s\n", st.Config.OrgID)
	}

	if !st.LoggedIn {
		fmt.Fprintln(w, "Signed in:  no")
		if st.PendingLogin {
			fmt.Fprintln(w, "A sign in is pending, finish it in the browser or run 'hostedlogin login' again")
		}
		return
	}

	fmt.Fprintf(w, "Signed in:  %s\n", st.Tokens.DisplayName())
	if sub, ok := st.Claims["sub"].(string); ok && sub != "" {
		fmt.Fprintf(w, "Subject:    %s\n", sub)
	}
	if name, ok := st.Claims["name"].(string); ok && name != "" {
		fmt.Fprintf(w, "Name:       %s\n", name)
	}
	if iss, ok := st.Claims["iss"].(string); ok && iss != "" {
		fmt.Fprintf(w, "Issuer:     %s\n", iss)
	}
	if !st.Tokens.Expiry.IsZero() {
		fmt.Fprintf(w, "Expires:    %s (in %s)\n", st.Tokens.Expiry.Format(time.RFC3339), st.Tokens.Expiry.Sub(st.Now).Round(time.Second))
	}
	if st.Tokens.RefreshToken != "" {
		fmt.Fprintln(w, "Refresh:    stored")
	}
}
