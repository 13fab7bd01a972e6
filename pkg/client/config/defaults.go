// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package config

import "time"

const (
	// AppName names the XDG directories
	AppName = "hostedlogin"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "HOSTEDLOGIN_"

	// EnvFile is read from the working directory when present
	EnvFile = ".env"
)

// Defaults for unset values
const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultCallbackAddr    = "127.0.0.1:8085"
	DefaultLandingPath     = "/dashboard"
	DefaultFallbackDelay   = 2 * time.Second
	DefaultExchangeTimeout = 30 * time.Second
	DefaultLogLevel        = "info"
)
