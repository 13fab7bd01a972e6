// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/carabiner-dev/command"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/logging"
	"github.com/carabiner-dev/hostedlogin/pkg/server"
)

var _ command.OptionsSet = (*ServeOptions)(nil)

type ServeOptions struct {
	ConfigOptions
	Listen string
}

var defaultServeOptions = ServeOptions{}

func (so *ServeOptions) Validate() error {
	errs := []error{so.ConfigOptions.Validate()}
	if so.Listen != "" {
		if _, _, err := net.SplitHostPort(so.Listen); err != nil {
			errs = append(errs, fmt.Errorf("invalid --listen %q: %w", so.Listen, err))
		}
	}
	return errors.Join(errs...)
}

func (so *ServeOptions) AddFlags(cmd *cobra.Command) {
	so.ConfigOptions.AddFlags(cmd)
	cmd.PersistentFlags().StringVar(&so.Listen, "listen", "", "Address of the web login page (default from config, 127.0.0.1:8080)")
}

func (so *ServeOptions) Config() *command.OptionsSetConfig {
	return nil
}

func AddServe(parent *cobra.Command) {
	opts := defaultServeOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web sign in page",
		Long: `Serves the sign in page, the setup form and the dashboard over HTTP.

The page root (for example http://127.0.0.1:8080/) is the redirect URI and
must be registered as an allowed callback URL of the app client.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(&opts.ConfigOptions, "")
			if err != nil {
				return err
			}

			listen := env.cfg.Listen
			if opts.Listen != "" {
				listen = opts.Listen
			}

			if logrus.IsLevelEnabled(logrus.DebugLevel) {
				gin.SetMode(gin.DebugMode)
				gin.DefaultWriter = logging.Writer(logrus.DebugLevel)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(env.flow, server.Options{Listen: listen, Log: env.log})
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving the sign in page at http://%s%s\n", listen, server.PagePath)
			return srv.ListenAndServe(ctx)
		},
	}
	opts.AddFlags(cmd)
	parent.AddCommand(cmd)
}
