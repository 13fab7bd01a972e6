// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carabiner-dev/hostedlogin/pkg/client/storage"
)

// Config is the provider configuration entered at setup time
type Config struct {
	Domain     string `yaml:"domain" json:"domain" env:"DOMAIN"`
	ClientID   string `yaml:"client_id" json:"client_id" env:"CLIENT_ID"`
	Region     string `yaml:"region" json:"region" env:"REGION"`
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url" env:"API_BASE_URL"`
	OrgID      string `yaml:"org_id" json:"org_id" env:"ORG_ID"`
}

// Complete reports whether every field required to log in and reach the
// application API is set. Region is informational.
func (c Config) Complete() bool {
	return c.Domain != "" && c.ClientID != "" && c.APIBaseURL != "" && c.OrgID != ""
}

// CanAuthorize reports whether the provider endpoints can be addressed
func (c Config) CanAuthorize() bool {
	return c.Domain != "" && c.ClientID != ""
}

// TokenResponse is the token endpoint payload. Zero fields are absent.
type TokenResponse struct {
	IDToken      string `json:"id_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// Tokens is the stored session
type Tokens struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time // zero when no expiry was recorded
	Email        string
}

// LoggedIn is true when both the identity and access tokens are present
// and the recorded expiry, if any, has not passed.
func (t Tokens) LoggedIn(now time.Time) bool {
	if t.IDToken == "" || t.AccessToken == "" {
		return false
	}
	if !t.Expiry.IsZero() && now.After(t.Expiry) {
		return false
	}
	return true
}

// DisplayName returns the email of the subject or a generic placeholder
func (t Tokens) DisplayName() string {
	if t.Email == "" {
		return EmailPlaceholder
	}
	return t.Email
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the time source used to compute expiries
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for non fatal problems
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store persists configuration and tokens across two scopes: durable
// values survive restarts, session values die with the login session.
type Store struct {
	durable storage.KV
	session storage.KV
	now     func() time.Time
	log     logrus.FieldLogger
}

// NewStore builds a store over the two backends
func NewStore(durable, session storage.KV, opts ...Option) *Store {
	s := &Store{
		durable: durable,
		session: session,
		now:     time.Now,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock reading
func (s *Store) Now() time.Time {
	return s.now()
}

// ReadConfig returns the stored configuration. Missing values are empty,
// except the region which falls back to DefaultRegion.
func (s *Store) ReadConfig() Config {
	cfg := Config{
		Domain:     s.durableValue(keyDomain),
		ClientID:   s.durableValue(keyClientID),
		Region:     s.durableValue(keyRegion),
		APIBaseURL: s.durableValue(keyAPIBaseURL),
		OrgID:      s.durableValue(keyOrgID),
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return cfg
}

// WriteConfig overwrites the five configuration fields
func (s *Store) WriteConfig(cfg Config) error {
	values := []struct{ key, value string }{
		{keyDomain, cfg.Domain},
		{keyClientID, cfg.ClientID},
		{keyRegion, cfg.Region},
		{keyAPIBaseURL, cfg.APIBaseURL},
		{keyOrgID, cfg.OrgID},
	}
	for _, v := range values {
		if err := s.durable.Set(v.key, v.value); err != nil {
			return fmt.Errorf("writing %s: %w", v.key, err)
		}
	}
	return nil
}

// IsConfigComplete reports whether the stored configuration is complete
func (s *Store) IsConfigComplete() bool {
	return s.ReadConfig().Complete()
}

// ReadTokens returns the stored tokens, empty when absent
func (s *Store) ReadTokens() Tokens {
	t := Tokens{
		IDToken:      s.sessionValue(keyIDToken),
		AccessToken:  s.sessionValue(keyAccessToken),
		RefreshToken: s.durableValue(keyRefreshToken),
		Email:        s.sessionValue(keyEmail),
	}
	if raw := s.sessionValue(keyExpiry); raw != "" {
		// An unparseable expiry counts as none recorded
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			t.Expiry = time.UnixMilli(ms)
		}
	}
	return t
}

// WriteTokens persists each field present in resp. Fields absent from
// resp keep their stored value. The subject email is read from the
// identity token when it can be decoded; decode failures are only logged.
func (s *Store) WriteTokens(resp *TokenResponse) error {
	if resp == nil {
		return nil
	}

	var errs []error
	if resp.IDToken != "" {
		errs = append(errs, s.session.Set(keyIDToken, resp.IDToken))
	}
	if resp.AccessToken != "" {
		errs = append(errs, s.session.Set(keyAccessToken, resp.AccessToken))
	}
	if resp.RefreshToken != "" {
		errs = append(errs, s.durable.Set(keyRefreshToken, resp.RefreshToken))
	}
	if resp.ExpiresIn != 0 {
		expiry := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		errs = append(errs, s.session.Set(keyExpiry, strconv.FormatInt(expiry.UnixMilli(), 10)))
	}

	if resp.IDToken != "" {
		claims, err := DecodeClaims(resp.IDToken)
		switch {
		case err != nil:
			s.log.WithError(err).Warn("could not decode identity token")
		case claims.Email != "":
			errs = append(errs, s.session.Set(keyEmail, claims.Email))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}
	return nil
}

// ClearTokens removes every token and the PKCE verifier from both
// scopes. All deletions are attempted even when one of them fails.
func (s *Store) ClearTokens() error {
	err := errors.Join(
		s.session.Delete(keyIDToken, keyAccessToken, keyExpiry, keyEmail),
		s.durable.Delete(keyRefreshToken, keyCodeVerifier),
	)
	if err != nil {
		return fmt.Errorf("clearing tokens: %w", err)
	}
	return nil
}

// SaveVerifier checkpoints the PKCE verifier of a pending authorization
func (s *Store) SaveVerifier(verifier string) error {
	if err := s.durable.Set(keyCodeVerifier, verifier); err != nil {
		return fmt.Errorf("storing code verifier: %w", err)
	}
	return nil
}

// Verifier returns the pending PKCE verifier, if any
func (s *Store) Verifier() (string, bool) {
	v, ok := s.durable.Get(keyCodeVerifier)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ClearVerifier drops the pending PKCE verifier
func (s *Store) ClearVerifier() error {
	return s.durable.Delete(keyCodeVerifier)
}

func (s *Store) durableValue(key string) string {
	v, _ := s.durable.Get(key)
	return v
}

func (s *Store) sessionValue(key string) string {
	v, _ := s.session.Get(key)
	return v
}
