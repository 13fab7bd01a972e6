// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carabiner-dev/hostedlogin/pkg/client/storage"
)

// testIDToken builds an unsigned identity token around payload
func testIDToken(payload string) string {
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + enc([]byte(payload)) + "." + enc([]byte("sig"))
}

func newTestStore(now time.Time) (*Store, *storage.MemoryKV, *storage.MemoryKV) {
	durable := storage.NewMemoryKV()
	session := storage.NewMemoryKV()
	return NewStore(durable, session, WithClock(func() time.Time { return now })), durable, session
}

func TestConfigRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(time.Now())

	empty := store.ReadConfig()
	assert.Equal(t, Config{Region: DefaultRegion}, empty)
	assert.False(t, store.IsConfigComplete())

	cfg := Config{
		Domain:     "auth.example.com",
		ClientID:   "abc",
		Region:     "eu-west-1",
		APIBaseURL: "https://api.example.com",
		OrgID:      "org1",
	}
	require.NoError(t, store.WriteConfig(cfg))
	assert.Equal(t, cfg, store.ReadConfig())
	assert.True(t, store.IsConfigComplete())

	cfg.Region = ""
	require.NoError(t, store.WriteConfig(cfg))
	assert.Equal(t, DefaultRegion, store.ReadConfig().Region)
}

func TestConfigComplete(t *testing.T) {
	full := Config{Domain: "d", ClientID: "c", APIBaseURL: "a", OrgID: "o"}
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"full", func(*Config) {}, true},
		{"no region needed", func(c *Config) { c.Region = "" }, true},
		{"no domain", func(c *Config) { c.Domain = "" }, false},
		{"no client", func(c *Config) { c.ClientID = "" }, false},
		{"no api", func(c *Config) { c.APIBaseURL = "" }, false},
		{"no org", func(c *Config) { c.OrgID = "" }, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := full
			tc.mutate(&c)
			assert.Equal(t, tc.want, c.Complete())
		})
	}
}

func TestWriteTokens(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	store, durable, _ := newTestStore(now)

	require.NoError(t, store.WriteTokens(&TokenResponse{
		IDToken:      testIDToken(`{"email":"a@b.com","sub":"123"}`),
		AccessToken:  "AT",
		RefreshToken: "RT",
		ExpiresIn:    3600,
	}))

	tokens := store.ReadTokens()
	assert.Equal(t, "AT", tokens.AccessToken)
	assert.Equal(t, "RT", tokens.RefreshToken)
	assert.Equal(t, "a@b.com", tokens.Email)
	assert.Equal(t, now.Add(time.Hour).UnixMilli(), tokens.Expiry.UnixMilli())

	rt, ok := durable.Get(keyRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "RT", rt)

	t.Run("partial write keeps other fields", func(t *testing.T) {
		idToken := tokens.IDToken
		require.NoError(t, store.WriteTokens(&TokenResponse{AccessToken: "AT2"}))

		after := store.ReadTokens()
		assert.Equal(t, "AT2", after.AccessToken)
		assert.Equal(t, idToken, after.IDToken)
		assert.Equal(t, "RT", after.RefreshToken)
		assert.Equal(t, "a@b.com", after.Email)
	})

	t.Run("nil response", func(t *testing.T) {
		require.NoError(t, store.WriteTokens(nil))
	})
}

func TestWriteTokensUndecodableIDToken(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := NewStore(storage.NewMemoryKV(), storage.NewMemoryKV(), WithLogger(logger))

	require.NoError(t, store.WriteTokens(&TokenResponse{
		IDToken:     "not-a-jwt",
		AccessToken: "AT",
	}))

	tokens := store.ReadTokens()
	assert.Equal(t, "not-a-jwt", tokens.IDToken)
	assert.Equal(t, "AT", tokens.AccessToken)
	assert.Empty(t, tokens.Email)
	assert.Equal(t, EmailPlaceholder, tokens.DisplayName())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLoggedIn(t *testing.T) {
	now := time.Now()
	for _, tc := range []struct {
		name   string
		tokens Tokens
		want   bool
	}{
		{"no tokens", Tokens{}, false},
		{"only id token", Tokens{IDToken: "id"}, false},
		{"only access token", Tokens{AccessToken: "at"}, false},
		{"no expiry", Tokens{IDToken: "id", AccessToken: "at"}, true},
		{"future expiry", Tokens{IDToken: "id", AccessToken: "at", Expiry: now.Add(time.Minute)}, true},
		{"past expiry", Tokens{IDToken: "id", AccessToken: "at", Expiry: now.Add(-time.Minute)}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.tokens.LoggedIn(now))
		})
	}
}

func TestReadTokensExpiry(t *testing.T) {
	store, _, session := newTestStore(time.Now())

	require.NoError(t, session.Set(keyExpiry, "0"))
	assert.True(t, store.ReadTokens().Expiry.IsZero())

	require.NoError(t, session.Set(keyExpiry, "garbage"))
	assert.True(t, store.ReadTokens().Expiry.IsZero())

	require.NoError(t, session.Set(keyExpiry, "1700000000000"))
	assert.Equal(t, int64(1700000000000), store.ReadTokens().Expiry.UnixMilli())
}

func TestClearTokens(t *testing.T) {
	store, durable, session := newTestStore(time.Now())
	require.NoError(t, store.WriteConfig(Config{Domain: "d", ClientID: "c", APIBaseURL: "a", OrgID: "o"}))
	require.NoError(t, store.SaveVerifier("verifier"))
	require.NoError(t, store.WriteTokens(&TokenResponse{
		IDToken:      testIDToken(`{"email":"a@b.com"}`),
		AccessToken:  "AT",
		RefreshToken: "RT",
		ExpiresIn:    60,
	}))

	require.NoError(t, store.ClearTokens())

	assert.Equal(t, Tokens{}, store.ReadTokens())
	assert.False(t, store.ReadTokens().LoggedIn(time.Now()))
	_, ok := store.Verifier()
	assert.False(t, ok)
	assert.Equal(t, 0, session.Len())

	// Configuration survives a logout
	assert.True(t, store.IsConfigComplete())
	assert.Equal(t, 5, durable.Len())
}

type failingKV struct {
	*storage.MemoryKV
}

func (f failingKV) Delete(...string) error { return errors.New("disk on fire") }

func TestClearTokensAttemptsBothScopes(t *testing.T) {
	session := storage.NewMemoryKV()
	store := NewStore(failingKV{storage.NewMemoryKV()}, session)
	require.NoError(t, session.Set(keyAccessToken, "AT"))

	err := store.ClearTokens()
	require.Error(t, err)
	assert.Equal(t, 0, session.Len(), "session scope must still be cleared")
}

func TestVerifierCheckpoint(t *testing.T) {
	store, _, _ := newTestStore(time.Now())

	_, ok := store.Verifier()
	assert.False(t, ok)

	require.NoError(t, store.SaveVerifier("first"))
	require.NoError(t, store.SaveVerifier("second"))
	v, ok := store.Verifier()
	require.True(t, ok)
	assert.Equal(t, "second", v)

	require.NoError(t, store.ClearVerifier())
	_, ok = store.Verifier()
	assert.False(t, ok)
}

func TestDecodeClaims(t *testing.T) {
	claims, err := DecodeClaims(testIDToken(`{"email":"a@b.com","name":"Ann","aud":"abc","exp":1700000000}`))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, []string{"abc"}, []string(claims.Audience))

	_, err = DecodeClaims("a.b")
	require.ErrorIs(t, err, ErrClaimDecode)

	_, err = DecodeClaims(testIDToken(`not json`))
	require.ErrorIs(t, err, ErrClaimDecode)

	m, err := DecodeClaimMap(testIDToken(`{"custom":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", m["custom"])
}

func TestDecodeClaimsIgnoresHeader(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	payload := enc([]byte(`{"email":"a@b.com"}`))

	for name, header := range map[string]string{
		"no alg":      enc([]byte(`{"typ":"JWT"}`)),
		"unknown alg": enc([]byte(`{"alg":"EdDSA2"}`)),
		"not json":    "header",
	} {
		t.Run(name, func(t *testing.T) {
			token := header + "." + payload + ".c2ln"

			claims, err := DecodeClaims(token)
			require.NoError(t, err)
			assert.Equal(t, "a@b.com", claims.Email)

			store, _, _ := newTestStore(time.Now())
			require.NoError(t, store.WriteTokens(&TokenResponse{IDToken: token, AccessToken: "AT"}))
			assert.Equal(t, "a@b.com", store.ReadTokens().Email)
		})
	}
}
