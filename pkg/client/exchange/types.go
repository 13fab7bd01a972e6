// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVerifier means the PKCE checkpoint written before the
	// redirect is gone; the login has to start over.
	ErrMissingVerifier = errors.New("code verifier not found, please try logging in again")

	// ErrTokenExchangeFailed matches every *TokenExchangeError
	ErrTokenExchangeFailed = errors.New("failed to exchange code for tokens")
)

// TokenExchangeError is a non 2xx answer from the token endpoint
type TokenExchangeError struct {
	StatusCode  int
	Body        string
	ErrorCode   string
	Description string
}

func (e *TokenExchangeError) Error() string {
	if e.ErrorCode != "" {
		if e.Description != "" {
			return fmt.Sprintf("token exchange failed (HTTP %d): %s - %s", e.StatusCode, e.ErrorCode, e.Description)
		}
		return fmt.Sprintf("token exchange failed (HTTP %d): %s", e.StatusCode, e.ErrorCode)
	}
	return fmt.Sprintf("token exchange failed (HTTP %d): %s", e.StatusCode, e.Body)
}

func (e *TokenExchangeError) Is(target error) bool {
	return target == ErrTokenExchangeFailed
}
