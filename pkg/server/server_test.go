// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/exchange"
	"github.com/carabiner-dev/hostedlogin/pkg/client/session"
	"github.com/carabiner-dev/hostedlogin/pkg/client/storage"
)

var testConfig = credentials.Config{
	Domain:     "auth.example.com",
	ClientID:   "abc",
	Region:     "us-east-1",
	APIBaseURL: "https://api.example.com",
	OrgID:      "org1",
}

func idToken(email string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(fmt.Sprintf(`{"email":%q}`, email))) + ".c2ln"
}

type fixture struct {
	server *Server
	store  *credentials.Store
	hook   *logtest.Hook
}

func newFixture(t *testing.T, cfg *credentials.Config, tokenStatus int, tokenBody any) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, hook := logtest.NewNullLogger()

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		json.NewEncoder(w).Encode(tokenBody) //nolint:errcheck
	}))
	t.Cleanup(provider.Close)

	store := credentials.NewStore(storage.NewMemoryKV(), storage.NewMemoryKV(), credentials.WithLogger(log))
	if cfg != nil {
		require.NoError(t, store.WriteConfig(*cfg))
	}

	flow := session.New(store,
		exchange.NewExchanger(store, exchange.WithBaseURL(provider.URL), exchange.WithLogger(log)),
		session.WithLandingPath(DashboardPath),
		session.WithLogger(log),
	)
	return &fixture{server: New(flow, Options{Log: log}), store: store, hook: hook}
}

func (f *fixture) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestPageSetupPrompt(t *testing.T) {
	f := newFixture(t, nil, http.StatusOK, nil)
	w := f.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/setup"`)
	assert.Contains(t, w.Body.String(), `value="us-east-1"`)
}

func TestSetup(t *testing.T) {
	f := newFixture(t, nil, http.StatusOK, nil)
	w := f.do(http.MethodPost, "/setup", url.Values{
		"domain":       {" auth.example.com "},
		"client_id":    {"abc"},
		"api_base_url": {"https://api.example.com/"},
		"org_id":       {"org1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, session.MsgSettingsSaved)
	assert.Contains(t, body, `id="deferred"`)
	assert.Contains(t, body, "500")
	assert.Equal(t, testConfig, f.store.ReadConfig())
}

func TestSetupIncomplete(t *testing.T) {
	f := newFixture(t, nil, http.StatusOK, nil)
	w := f.do(http.MethodPost, "/setup", url.Values{"domain": {"auth.example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), session.MsgFieldsRequired)
	assert.False(t, f.store.IsConfigComplete())
}

func TestReconfigure(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusOK, nil)
	w := f.do(http.MethodGet, "/setup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="auth.example.com"`)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusOK, nil)

	w := f.do(http.MethodGet, "/login?provider=Google", nil)
	require.Equal(t, http.StatusFound, w.Code)

	target, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", target.Host)
	assert.Equal(t, "/oauth2/authorize", target.Path)
	assert.Equal(t, "Google", target.Query().Get("identity_provider"))
	assert.Equal(t, "http://example.com/", target.Query().Get("redirect_uri"))

	_, ok := f.store.Verifier()
	assert.True(t, ok)

	w = f.do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusFound, w.Code)
	target, err = url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.False(t, target.Query().Has("identity_provider"))
}

func TestLoginNotConfigured(t *testing.T) {
	f := newFixture(t, nil, http.StatusOK, nil)
	w := f.do(http.MethodGet, "/login?provider=Google", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), session.MsgNotConfigured)
}

func TestPageProviderError(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusOK, nil)
	w := f.do(http.MethodGet, "/?error=access_denied&error_description=User+cancelled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "User cancelled")
	assert.Contains(t, body, "replaceState")
}

func TestPageCallback(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusOK, map[string]any{
		"id_token":     idToken("a@b.com"),
		"access_token": "AT",
		"expires_in":   3600,
	})
	require.NoError(t, f.store.SaveVerifier("the-verifier"))

	w := f.do(http.MethodGet, "/?code=xyz", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://example.com/dashboard", w.Header().Get("Location"))

	w = f.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Signed in as a@b.com")

	w = f.do(http.MethodGet, "/", nil)
	assert.Contains(t, w.Body.String(), "Signed in as a@b.com")

	for _, entry := range f.hook.AllEntries() {
		assert.NotContains(t, entry.Message, "code=xyz")
	}
}

func TestPageCallbackFailure(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	require.NoError(t, f.store.SaveVerifier("the-verifier"))

	w := f.do(http.MethodGet, "/?code=xyz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "invalid_grant")
	assert.Contains(t, body, session.MsgAuthFailed)
	assert.Contains(t, body, "2000")

	_, ok := f.store.Verifier()
	assert.True(t, ok)
}

func TestDashboardRequiresSession(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusOK, nil)
	w := f.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLogout(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusOK, nil)
	require.NoError(t, f.store.WriteTokens(&credentials.TokenResponse{IDToken: idToken("a@b.com"), AccessToken: "AT"}))

	w := f.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t,
		"https://auth.example.com/logout?client_id=abc&logout_uri=http%3A%2F%2Fexample.com%2F",
		w.Header().Get("Location"))
	assert.Empty(t, f.store.ReadTokens().AccessToken)
}

func TestSessionAPI(t *testing.T) {
	f := newFixture(t, &testConfig, http.StatusOK, nil)

	var res sessionResponse
	w := f.do(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.LoggedIn)
	assert.Equal(t, "org1", res.OrgID)
	assert.Nil(t, res.ExpiresAt)

	require.NoError(t, f.store.WriteTokens(&credentials.TokenResponse{
		IDToken: idToken("a@b.com"), AccessToken: "AT", ExpiresIn: 3600,
	}))
	w = f.do(http.MethodGet, "/api/session", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.LoggedIn)
	assert.Equal(t, "a@b.com", res.Email)
	require.NotNil(t, res.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *res.ExpiresAt, time.Minute)
}

func TestMaskQuery(t *testing.T) {
	assert.Equal(t, "", maskQuery(""))
	assert.Equal(t, "code=***&state=x", maskQuery("code=abc&state=x"))
	assert.Equal(t, "error=access_denied", maskQuery("error=access_denied"))
}
