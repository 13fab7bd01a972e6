// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/carabiner-dev/command"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/client/config"
)

var _ command.OptionsSet = (*ConfigOptions)(nil)

// ConfigOptions locate the configuration and override it from flags
type ConfigOptions struct {
	ConfigPath string
	LogLevel   string
	StateDir   string
	SessionDir string
}

func (co *ConfigOptions) Config() *command.OptionsSetConfig {
	return nil
}

func (co *ConfigOptions) Validate() error {
	if co.LogLevel != "" {
		if _, err := logrus.ParseLevel(co.LogLevel); err != nil {
			return fmt.Errorf("invalid --log-level %q", co.LogLevel)
		}
	}
	return nil
}

func (co *ConfigOptions) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&co.ConfigPath, "config", "", "Path to the config file (default: $XDG_CONFIG_HOME/hostedlogin/config.yaml)")
	cmd.PersistentFlags().StringVar(&co.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&co.StateDir, "state-dir", "", "Directory of the durable state (default: $XDG_DATA_HOME/hostedlogin)")
	cmd.PersistentFlags().StringVar(&co.SessionDir, "session-dir", "", "Directory of the session state (default: $XDG_RUNTIME_DIR/hostedlogin)")
}

// Load reads the configuration and applies the flag overrides
func (co *ConfigOptions) Load() (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(co.ConfigPath)
	if err != nil {
		return nil, err
	}

	if co.LogLevel != "" {
		cfg.LogLevel = co.LogLevel
	}
	if co.StateDir != "" {
		cfg.StateDir = co.StateDir
	}
	if co.SessionDir != "" {
		cfg.SessionDir = co.SessionDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
