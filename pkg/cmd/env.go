// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/carabiner-dev/hostedlogin/pkg/client/config"
	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/exchange"
	"github.com/carabiner-dev/hostedlogin/pkg/client/loopback"
	"github.com/carabiner-dev/hostedlogin/pkg/client/session"
	"github.com/carabiner-dev/hostedlogin/pkg/logging"
)

// environment is everything a command needs to drive the login flow
type environment struct {
	cfg   *config.Config
	store *credentials.Store
	flow  *session.Flow
	log   logrus.FieldLogger
}

// openEnvironment loads the configuration, sets up logging and opens the
// credential store. landing is the authenticated landing view of the host,
// empty selects the configured one.
func openEnvironment(opts *ConfigOptions, landing string) (*environment, error) {
	cfg, err := opts.Load()
	if err != nil {
		return nil, err
	}
	if landing == "" {
		landing = cfg.LandingPath
	}

	if err := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}
	log := logrus.StandardLogger()

	store, err := cfg.OpenStore(log)
	if err != nil {
		return nil, err
	}

	ex := exchange.NewExchanger(store,
		exchange.WithTimeout(cfg.ExchangeTimeout),
		exchange.WithBaseURL(cfg.EndpointURL),
		exchange.WithLogger(log),
	)

	flow := session.New(store, ex,
		session.WithFallbackDelay(cfg.FallbackDelay),
		session.WithLandingPath(landing),
		session.WithProviderBaseURL(cfg.EndpointURL),
		session.WithLogger(log),
	)

	return &environment{cfg: cfg, store: store, flow: flow, log: log}, nil
}

// terminalDisplay prints flow status lines to w. Errors are left to the
// command return value.
func terminalDisplay(w io.Writer) *loopback.TerminalDisplay {
	return &loopback.TerminalDisplay{
		SkipErrors: true,
		Printf: func(format string, a ...any) {
			fmt.Fprintf(w, format, a...)
		},
	}
}
