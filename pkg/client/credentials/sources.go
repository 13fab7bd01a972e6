// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultTokenEnvVar is the environment variable checked for a bearer token
const DefaultTokenEnvVar = "HOSTEDLOGIN_TOKEN"

// ErrNotLoggedIn is returned by session backed sources without a live session
var ErrNotLoggedIn = errors.New("not logged in")

// TokenSource is an interface for retrieving tokens, similar to oauth2.TokenSource.
type TokenSource interface {
	// Token returns a valid token or an error.
	Token(ctx context.Context) (string, error)
}

// TokenKind selects which session token a SessionTokenSource returns
type TokenKind int

const (
	AccessToken TokenKind = iota
	IDToken
)

// SessionTokenSource hands out the stored session token while the
// session is logged in.
type SessionTokenSource struct {
	store *Store
	kind  TokenKind
}

// NewSessionTokenSource returns a source reading kind from store
func NewSessionTokenSource(store *Store, kind TokenKind) *SessionTokenSource {
	return &SessionTokenSource{store: store, kind: kind}
}

func (s *SessionTokenSource) Token(_ context.Context) (string, error) {
	if s.store == nil {
		return "", errors.New("no credential store configured")
	}

	tokens := s.store.ReadTokens()
	if !tokens.LoggedIn(s.store.Now()) {
		return "", ErrNotLoggedIn
	}

	if s.kind == IDToken {
		return tokens.IDToken, nil
	}
	return tokens.AccessToken, nil
}

// EnvTokenSource reads a token from an environment variable.
type EnvTokenSource struct {
	envVar string
}

// NewEnvTokenSource creates a TokenSource that reads from an environment variable.
func NewEnvTokenSource(envVar string) *EnvTokenSource {
	return &EnvTokenSource{envVar: envVar}
}

func (e *EnvTokenSource) Token(_ context.Context) (string, error) {
	if e.envVar == "" {
		return "", errors.New("environment variable name is empty")
	}

	token := strings.TrimSpace(os.Getenv(e.envVar))
	if token == "" {
		return "", fmt.Errorf("environment variable %q is not set or empty", e.envVar)
	}

	return token, nil
}

// ChainedTokenSource tries multiple TokenSources in order until one succeeds.
type ChainedTokenSource struct {
	sources []TokenSource
}

// NewChainedTokenSource creates a TokenSource that tries each source in order.
// The first source that returns a valid token is used.
func NewChainedTokenSource(sources ...TokenSource) *ChainedTokenSource {
	return &ChainedTokenSource{sources: sources}
}

func (c *ChainedTokenSource) Token(ctx context.Context) (string, error) {
	if len(c.sources) == 0 {
		return "", errors.New("no token sources configured")
	}

	var errs []error
	for _, source := range c.sources {
		token, err := source.Token(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return "", fmt.Errorf("all token sources failed: %w", errors.Join(errs...))
}

// DefaultTokenSource tries, in order:
// 1. the HOSTEDLOGIN_TOKEN environment variable
// 2. the stored session token of the given kind
func DefaultTokenSource(store *Store, kind TokenKind) TokenSource {
	return NewChainedTokenSource(
		NewEnvTokenSource(DefaultTokenEnvVar),
		NewSessionTokenSource(store, kind),
	)
}
