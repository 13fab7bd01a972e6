// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/storage"
)

// Config represents the host configuration
type Config struct {
	// Provider seeds the stored provider configuration on `setup --from-config`
	Provider credentials.Config `yaml:"provider" envPrefix:"PROVIDER_"`

	// EndpointURL replaces https://{domain} for every provider request
	EndpointURL string `yaml:"endpoint_url" env:"ENDPOINT_URL"`

	// Server configuration
	Listen       string `yaml:"listen" env:"LISTEN"`               // web host address
	CallbackAddr string `yaml:"callback_addr" env:"CALLBACK_ADDR"` // terminal host loopback address
	LandingPath  string `yaml:"landing_path" env:"LANDING_PATH"`

	// Flow timings
	FallbackDelay   time.Duration `yaml:"fallback_delay" env:"FALLBACK_DELAY"`
	ExchangeTimeout time.Duration `yaml:"exchange_timeout" env:"EXCHANGE_TIMEOUT"`

	// Storage paths, empty selects the XDG defaults
	StateDir   string `yaml:"state_dir" env:"STATE_DIR"`
	SessionDir string `yaml:"session_dir" env:"SESSION_DIR"`

	// Logging
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFile  string `yaml:"log_file" env:"LOG_FILE"`
}

// DefaultPath returns the default configuration file location
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads the config file at path, or at the default
// location when path is empty, then applies the .env file and the
// HOSTEDLOGIN_* environment variables. A missing file yields defaults.
func LoadWithDefaults(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = &Config{}
	}

	if err := LoadEnvFile(EnvFile); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnvVars(); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file that are not already
// set. A missing file is not an error.
func LoadEnvFile(name string) error {
	if err := godotenv.Load(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	return nil
}

// ApplyEnvVars applies environment variable overrides
func (c *Config) ApplyEnvVars() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// ApplyDefaults fills in every unset field
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.CallbackAddr == "" {
		c.CallbackAddr = DefaultCallbackAddr
	}
	if c.LandingPath == "" {
		c.LandingPath = DefaultLandingPath
	}
	if c.FallbackDelay == 0 {
		c.FallbackDelay = DefaultFallbackDelay
	}
	if c.ExchangeTimeout == 0 {
		c.ExchangeTimeout = DefaultExchangeTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	errs := []error{}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q (set via log_level or %sLOG_LEVEL)", c.LogLevel, EnvPrefix))
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("invalid listen address %q: %w", c.Listen, err))
	}
	if _, _, err := net.SplitHostPort(c.CallbackAddr); err != nil {
		errs = append(errs, fmt.Errorf("invalid callback address %q: %w", c.CallbackAddr, err))
	}
	if c.FallbackDelay < 0 {
		errs = append(errs, errors.New("fallback delay must not be negative"))
	}
	if c.ExchangeTimeout < 0 {
		errs = append(errs, errors.New("exchange timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// OpenStore opens the credential store under the configured directories
func (c *Config) OpenStore(log logrus.FieldLogger) (*credentials.Store, error) {
	durable, err := storage.NewDurable(c.StateDir)
	if err != nil {
		return nil, fmt.Errorf("opening durable storage: %w", err)
	}
	session, err := storage.NewSessionScoped(c.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("opening session storage: %w", err)
	}
	return credentials.NewStore(durable, session, credentials.WithLogger(log)), nil
}
