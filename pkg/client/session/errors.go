// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
)

// Status messages shown to the user
const (
	MsgNotConfigured   = "Identity provider not configured"
	MsgFieldsRequired  = "All fields are required"
	MsgSettingsSaved   = "Settings saved!"
	MsgCompletingLogin = "Completing sign in..."
	MsgAuthFailed      = "Authentication failed. Please try again."
)

var (
	// ErrNotConfigured blocks a login until the provider domain and
	// client id are set up.
	ErrNotConfigured = errors.New(MsgNotConfigured)

	// ErrIncompleteConfig rejects a setup missing a required field
	ErrIncompleteConfig = errors.New(MsgFieldsRequired)
)

// ProviderError is an error reported by the provider on the redirect back
type ProviderError struct {
	Code        string
	Description string
}

// Message is the text shown to the user
func (e *ProviderError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("identity provider returned %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("identity provider returned %s", e.Code)
}
