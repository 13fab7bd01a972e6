// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package oauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
)

func TestRedirectURI(t *testing.T) {
	for _, tc := range []struct {
		page string
		want string
	}{
		{"https://app.example.com/login.html?code=xyz#frag", "https://app.example.com/login.html"},
		{"http://127.0.0.1:8085/auth/callback?error=access_denied", "http://127.0.0.1:8085/auth/callback"},
		{"https://app.example.com", "https://app.example.com/"},
	} {
		u, err := url.Parse(tc.page)
		require.NoError(t, err)
		assert.Equal(t, tc.want, RedirectURI(u))
	}
	assert.Empty(t, RedirectURI(nil))
}

func TestAuthorizeURL(t *testing.T) {
	p := NewProvider(credentials.Config{Domain: "auth.example.com", ClientID: "abc"})

	t.Run("hosted ui", func(t *testing.T) {
		raw := p.AuthorizeURL("https://app.example.com/", "challenge", "")
		u, err := url.Parse(raw)
		require.NoError(t, err)

		assert.Equal(t, "https", u.Scheme)
		assert.Equal(t, "auth.example.com", u.Host)
		assert.Equal(t, AuthorizePath, u.Path)

		q := u.Query()
		assert.Equal(t, url.Values{
			"response_type":         {"code"},
			"client_id":             {"abc"},
			"redirect_uri":          {"https://app.example.com/"},
			"scope":                 {"openid email profile"},
			"code_challenge":        {"challenge"},
			"code_challenge_method": {"S256"},
		}, q)
		assert.Contains(t, raw, "scope=openid+email+profile")
	})

	t.Run("identity provider hint", func(t *testing.T) {
		u, err := url.Parse(p.AuthorizeURL("https://app.example.com/", "challenge", "Google"))
		require.NoError(t, err)
		assert.Equal(t, "Google", u.Query().Get("identity_provider"))
	})
}

func TestEndpoint(t *testing.T) {
	p := &Provider{Domain: "auth.example.com", ClientID: "abc"}
	e := p.Endpoint()
	assert.Equal(t, "https://auth.example.com/oauth2/authorize", e.AuthURL)
	assert.Equal(t, "https://auth.example.com/oauth2/token", e.TokenURL)
	assert.Equal(t, oauth2.AuthStyleInParams, e.AuthStyle)

	p.BaseURL = "http://127.0.0.1:9999/"
	assert.Equal(t, "http://127.0.0.1:9999/oauth2/token", p.Endpoint().TokenURL)
}

func TestLogoutURL(t *testing.T) {
	p := &Provider{Domain: "auth.example.com", ClientID: "abc"}
	raw := p.LogoutURL("https://app.example.com/login.html")

	assert.Equal(t,
		"https://auth.example.com/logout?client_id=abc&logout_uri=https%3A%2F%2Fapp.example.com%2Flogin.html",
		raw,
	)
}
