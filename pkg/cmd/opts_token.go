// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carabiner-dev/command"
	"github.com/spf13/cobra"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
)

var _ command.OptionsSet = (*TokenReadOptions)(nil)

var defaultTokenReadOptions = TokenReadOptions{}

// TokenReadOptions are the options to read a token from various sources
type TokenReadOptions struct {
	TokenPath string
	IDToken   bool
}

func (to *TokenReadOptions) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&to.TokenPath, "token", "", "Path to a token file, - for stdin (defaults to the stored session)")
	cmd.PersistentFlags().BoolVar(&to.IDToken, "id", false, "Use the identity token instead of the access token")
}

func (to *TokenReadOptions) Validate() error {
	// No validation needed - we have a default fallback
	return nil
}

func (to *TokenReadOptions) Config() *command.OptionsSetConfig {
	return nil
}

// kind returns the stored token selected by the flags
func (to *TokenReadOptions) kind() credentials.TokenKind {
	if to.IDToken {
		return credentials.IDToken
	}
	return credentials.AccessToken
}

// ReadToken reads a token with the following precedence:
// 1. stdin (if "-" is specified)
// 2. --token flag (explicit file path)
// 3. the HOSTEDLOGIN_TOKEN environment variable, then the stored session
func (to *TokenReadOptions) ReadToken(ctx context.Context, stdin io.Reader, store *credentials.Store) (string, error) {
	if to.TokenPath == "-" {
		return readFromStdin(stdin)
	}

	if to.TokenPath != "" {
		return readFromFile(to.TokenPath)
	}

	token, err := credentials.DefaultTokenSource(store, to.kind()).Token(ctx)
	if err != nil {
		return "", fmt.Errorf("no token available (run 'hostedlogin login' first): %w", err)
	}
	return token, nil
}

// readFromStdin reads token data from stdin
func readFromStdin(stdin io.Reader) (string, error) {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("no token data received from stdin")
	}
	return token, nil
}

// readFromFile reads token data from a file
func readFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}
