// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"golang.org/x/oauth2"
)

// MethodS256 is the only code challenge method supported
const MethodS256 = "S256"

// PKCEChallenge holds PKCE code verifier and challenge
type PKCEChallenge struct {
	Verifier  string
	Challenge string
	Method    string // Always "S256"
}

// GeneratePKCEChallenge generates a new PKCE code verifier and challenge
// Following RFC 7636 specifications
func GeneratePKCEChallenge() *PKCEChallenge {
	verifier := GenerateVerifier()
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: GenerateChallenge(verifier),
		Method:    MethodS256,
	}
}

// GenerateVerifier returns 32 bytes from crypto/rand encoded as unpadded
// base64url, always 43 characters long.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// GenerateChallenge derives the S256 challenge: BASE64URL(SHA256(verifier))
func GenerateChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
