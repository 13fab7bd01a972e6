// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/cmd"
	"github.com/carabiner-dev/hostedlogin/pkg/logging"
)

var version = "dev" // Set via ldflags during build

func main() {
	rootCmd := &cobra.Command{
		Use:   "hostedlogin",
		Short: "Sign in through a hosted identity provider",
		Long: `hostedlogin signs users in through a hosted OAuth identity provider
using the authorization code flow with PKCE.

It can run as a local web page (serve) or from the terminal (login), and
keeps the provider settings and the session tokens under the XDG Base
Directory locations.`,
	}

	cmd.AddSetup(rootCmd)
	cmd.AddLogin(rootCmd)
	cmd.AddLogout(rootCmd)
	cmd.AddStatus(rootCmd)
	cmd.AddToken(rootCmd)
	cmd.AddServe(rootCmd)
	addVersion(rootCmd)

	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addVersion(parent *cobra.Command) {
	parent.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hostedlogin version %s\n", version)
		},
	})
}
