// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/oauth"
)

// DefaultTimeout bounds the token endpoint round trip
const DefaultTimeout = 30 * time.Second

// Option configures an Exchanger
type Option func(*Exchanger)

// WithHTTPClient sets the client used to reach the token endpoint
func WithHTTPClient(client *http.Client) Option {
	return func(e *Exchanger) {
		if client != nil {
			e.HTTPClient = client
		}
	}
}

// WithTimeout sets the token endpoint timeout on the default client
func WithTimeout(d time.Duration) Option {
	return func(e *Exchanger) {
		if d > 0 {
			e.HTTPClient = &http.Client{Timeout: d}
		}
	}
}

// WithBaseURL points the exchanger at a provider other than https://{domain}
func WithBaseURL(baseURL string) Option {
	return func(e *Exchanger) {
		e.BaseURL = baseURL
	}
}

// WithLogger sets the logger for diagnostics
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Exchanger) {
		if l != nil {
			e.log = l
		}
	}
}

// Exchanger redeems authorization codes at the provider token endpoint
// using the PKCE verifier checkpointed in the credential store.
type Exchanger struct {
	HTTPClient *http.Client
	BaseURL    string

	store *credentials.Store
	log   logrus.FieldLogger
}

// NewExchanger creates a new token exchanger
func NewExchanger(store *credentials.Store, opts ...Option) *Exchanger {
	e := &Exchanger{
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		store: store,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExchangeCodeForTokens performs the authorization_code grant. The
// redirectURI must match the one sent to the authorize endpoint byte for
// byte. The verifier is removed after a successful exchange and kept
// after a failed one.
func (e *Exchanger) ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*credentials.TokenResponse, error) {
	verifier, ok := e.store.Verifier()
	if !ok {
		return nil, ErrMissingVerifier
	}

	provider := oauth.NewProvider(e.store.ReadConfig())
	provider.BaseURL = e.BaseURL

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.HTTPClient)
	token, err := provider.Config(redirectURI).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			xerr := handleErrorResponse(rerr)
			e.log.WithField("status", xerr.StatusCode).Errorf("token exchange failed: %s", xerr.Body)
			return nil, xerr
		}
		return nil, fmt.Errorf("sending request to %s: %w", provider.Endpoint().TokenURL, err)
	}

	if err := e.store.ClearVerifier(); err != nil {
		e.log.WithError(err).Warn("could not remove code verifier")
	}

	return tokenResponse(token), nil
}

// handleErrorResponse converts the oauth2 error into a TokenExchangeError
func handleErrorResponse(rerr *oauth2.RetrieveError) *TokenExchangeError {
	xerr := &TokenExchangeError{
		Body:        string(rerr.Body),
		ErrorCode:   rerr.ErrorCode,
		Description: rerr.ErrorDescription,
	}
	if rerr.Response != nil {
		xerr.StatusCode = rerr.Response.StatusCode
	}
	return xerr
}

// tokenResponse recovers the raw token endpoint fields from the oauth2 token
func tokenResponse(token *oauth2.Token) *credentials.TokenResponse {
	resp := &credentials.TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}

	if idToken, ok := token.Extra("id_token").(string); ok {
		resp.IDToken = idToken
	}

	if resp.ExpiresIn == 0 {
		switch v := token.Extra("expires_in").(type) {
		case float64:
			resp.ExpiresIn = int64(v)
		case int64:
			resp.ExpiresIn = v
		}
	}

	return resp
}
