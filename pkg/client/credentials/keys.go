// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package credentials

// Storage keys. Nothing outside this package reads or writes them.
const (
	// Durable scope
	keyDomain       = "provider.domain"
	keyClientID     = "provider.client_id"
	keyRegion       = "provider.region"
	keyAPIBaseURL   = "api.base_url"
	keyOrgID        = "org.id"
	keyRefreshToken = "auth.refresh_token"
	keyCodeVerifier = "auth.code_verifier"

	// Session scope
	keyIDToken     = "auth.id_token"
	keyAccessToken = "auth.access_token"
	keyExpiry      = "auth.expiry"
	keyEmail       = "auth.email"
)

// DefaultRegion is reported when no region was configured
const DefaultRegion = "us-east-1"
