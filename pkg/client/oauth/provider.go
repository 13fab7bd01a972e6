// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
)

// Provider endpoint paths, relative to https://{domain}
const (
	AuthorizePath = "/oauth2/authorize"
	TokenPath     = "/oauth2/token"
	LogoutPath    = "/logout"
)

// Scopes requested on every authorization
var Scopes = []string{"openid", "email", "profile"}

// Provider addresses the hosted identity provider endpoints
type Provider struct {
	Domain   string
	ClientID string

	// BaseURL replaces https://{Domain} when set
	BaseURL string
}

// NewProvider returns the provider described by cfg
func NewProvider(cfg credentials.Config) *Provider {
	return &Provider{
		Domain:   cfg.Domain,
		ClientID: cfg.ClientID,
	}
}

func (p *Provider) base() string {
	if p.BaseURL != "" {
		return strings.TrimSuffix(p.BaseURL, "/")
	}
	return "https://" + p.Domain
}

// Endpoint returns the authorize and token endpoints. The client id is
// always sent in the form body, there is no client secret.
func (p *Provider) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   p.base() + AuthorizePath,
		TokenURL:  p.base() + TokenPath,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// Config returns the oauth2 client configuration bound to redirectURI
func (p *Provider) Config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    p.ClientID,
		Endpoint:    p.Endpoint(),
		RedirectURL: redirectURI,
		Scopes:      Scopes,
	}
}

// AuthorizeURL builds the authorization request for a S256 challenge.
// identityProvider, when not empty, asks the provider to go straight to
// that upstream identity provider.
func (p *Provider) AuthorizeURL(redirectURI, challenge, identityProvider string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", MethodS256),
	}
	if identityProvider != "" {
		opts = append(opts, oauth2.SetAuthURLParam("identity_provider", identityProvider))
	}

	// No state parameter: the redirect lands back on the same page
	return p.Config(redirectURI).AuthCodeURL("", opts...)
}

// LogoutURL builds the provider logout request that returns the browser
// to logoutURI.
func (p *Provider) LogoutURL(logoutURI string) string {
	return p.base() + LogoutPath + "?client_id=" + url.QueryEscape(p.ClientID) +
		"&logout_uri=" + url.QueryEscape(logoutURI)
}

// RedirectURI returns the page URL without query string or fragment. The
// same value must be sent to the authorize and token endpoints.
func RedirectURI(page *url.URL) string {
	if page == nil {
		return ""
	}
	clean := url.URL{
		Scheme: page.Scheme,
		Host:   page.Host,
		Path:   page.Path,
	}
	if clean.Path == "" {
		clean.Path = "/"
	}
	return clean.String()
}
