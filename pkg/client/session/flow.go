// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/oauth"
)

const (
	// DefaultFallbackDelay is how long a callback failure stays on screen
	// before the login card comes back.
	DefaultFallbackDelay = 2 * time.Second

	// DefaultSavedDelay is how long the setup confirmation is shown
	DefaultSavedDelay = 500 * time.Millisecond

	// DefaultLandingPath is where the browser goes after a login
	DefaultLandingPath = "/dashboard"
)

// Navigator moves the browser
type Navigator interface {
	// Navigate leaves the current page for target
	Navigate(ctx context.Context, target string) error

	// ReplaceURL rewrites the visible URL without a reload
	ReplaceURL(target string)
}

// Display presents views to the user
type Display interface {
	Show(v View)

	// Defer shows v after d unless the page is gone by then
	Defer(d time.Duration, v View)
}

// Page is a single page load as seen by the flow
type Page struct {
	URL     *url.URL
	Nav     Navigator
	Display Display
}

// TokenExchanger redeems an authorization code
type TokenExchanger interface {
	ExchangeCodeForTokens(ctx context.Context, code, redirectURI string) (*credentials.TokenResponse, error)
}

// Option configures a Flow
type Option func(*Flow)

// WithFallbackDelay sets the delay between a callback failure and the
// login card.
func WithFallbackDelay(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.fallbackDelay = d
		}
	}
}

// WithSavedDelay sets how long the setup confirmation stays up
func WithSavedDelay(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.savedDelay = d
		}
	}
}

// WithLandingPath sets the path, or absolute URL, of the authenticated
// landing view.
func WithLandingPath(p string) Option {
	return func(f *Flow) {
		if p != "" {
			f.landing = p
		}
	}
}

// WithProviderBaseURL points the authorize and logout requests at a
// provider other than https://{domain}
func WithProviderBaseURL(base string) Option {
	return func(f *Flow) {
		f.providerBase = base
	}
}

// WithLogger sets the flow logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// Flow drives the login lifecycle of a page against the credential store
type Flow struct {
	store     *credentials.Store
	exchanger TokenExchanger

	fallbackDelay time.Duration
	savedDelay    time.Duration
	landing       string
	providerBase  string
	log           logrus.FieldLogger
}

// New returns a flow over store that redeems codes with exchanger
func New(store *credentials.Store, exchanger TokenExchanger, opts ...Option) *Flow {
	f := &Flow{
		store:         store,
		exchanger:     exchanger,
		fallbackDelay: DefaultFallbackDelay,
		savedDelay:    DefaultSavedDelay,
		landing:       DefaultLandingPath,
		log:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsLoggedIn reports whether a non expired session is stored
func (f *Flow) IsLoggedIn() bool {
	return f.store.ReadTokens().LoggedIn(f.store.Now())
}

// Tokens returns the stored tokens
func (f *Flow) Tokens() credentials.Tokens {
	return f.store.ReadTokens()
}

// Config returns the stored provider configuration
func (f *Flow) Config() credentials.Config {
	return f.store.ReadConfig()
}

func (f *Flow) provider(cfg credentials.Config) *oauth.Provider {
	p := oauth.NewProvider(cfg)
	p.BaseURL = f.providerBase
	return p
}

// InitiateLogin checkpoints a fresh PKCE verifier and sends the browser to
// the authorize endpoint. identityProvider is an optional hint, empty
// lets the user pick at the provider.
func (f *Flow) InitiateLogin(ctx context.Context, page Page, identityProvider string) error {
	cfg := f.store.ReadConfig()
	if !cfg.CanAuthorize() {
		page.Display.Show(View{Card: CardLogin, Status: MsgNotConfigured, IsError: true, Config: cfg})
		return ErrNotConfigured
	}

	pkce := oauth.GeneratePKCEChallenge()
	if err := f.store.SaveVerifier(pkce.Verifier); err != nil {
		page.Display.Show(View{Card: CardLogin, Status: err.Error(), IsError: true, Config: cfg})
		return err
	}

	target := f.provider(cfg).AuthorizeURL(oauth.RedirectURI(page.URL), pkce.Challenge, identityProvider)
	f.log.WithField("provider", identityProvider).Debug("redirecting to authorize endpoint")
	if err := page.Nav.Navigate(ctx, target); err != nil {
		return fmt.Errorf("opening authorize endpoint: %w", err)
	}
	return nil
}

// Load runs the page load logic and returns the state it ends in. Any
// error returned has already been shown to the user.
func (f *Flow) Load(ctx context.Context, page Page) (State, error) {
	tokens := f.store.ReadTokens()
	tr := Resolve(Input{
		URL:      page.URL,
		LoggedIn: tokens.LoggedIn(f.store.Now()),
		Config:   f.store.ReadConfig(),
		User:     tokens.DisplayName(),
	})

	if tr.Action == ActionExchange {
		page.Display.Show(tr.View)
		return f.handleCallback(ctx, page, tr.Code)
	}

	if tr.Err != nil {
		f.log.WithError(tr.Err).Warn("login failed at identity provider")
	}
	if tr.CleanURL {
		page.Nav.ReplaceURL(oauth.RedirectURI(page.URL))
	}
	page.Display.Show(tr.View)
	return tr.State, tr.Err
}

// handleCallback redeems code and lands the browser on the authenticated
// view, or shows the failure and then falls back to the login card.
func (f *Flow) handleCallback(ctx context.Context, page Page, code string) (State, error) {
	redirectURI := oauth.RedirectURI(page.URL)

	resp, err := f.exchanger.ExchangeCodeForTokens(ctx, code, redirectURI)
	if err == nil {
		err = f.store.WriteTokens(resp)
	}
	if err != nil {
		f.log.WithError(err).Error("callback failed")
		page.Display.Show(View{Card: CardCallback, Status: failureMessage(err), IsError: true})
		page.Display.Defer(f.fallbackDelay, View{
			Card:    CardLogin,
			Status:  MsgAuthFailed,
			IsError: true,
			Config:  f.store.ReadConfig(),
		})
		return StateCallbackError, err
	}

	page.Nav.ReplaceURL(redirectURI)
	if err := page.Nav.Navigate(ctx, f.landingURL(page.URL)); err != nil {
		f.log.WithError(err).Warn("could not open landing view")
		page.Display.Show(View{Card: CardLoggedIn, User: f.store.ReadTokens().DisplayName(), Config: f.store.ReadConfig()})
	}
	return StateAuthenticated, nil
}

func (f *Flow) landingURL(page *url.URL) string {
	ref, err := url.Parse(f.landing)
	if err != nil || page == nil {
		return f.landing
	}
	return page.ResolveReference(ref).String()
}

func failureMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Authentication failed"
}

// Logout drops the stored session. When the provider is configured the
// browser is sent to the provider logout endpoint, which returns it to
// the current page.
func (f *Flow) Logout(ctx context.Context, page Page) error {
	clearErr := f.store.ClearTokens()
	if clearErr != nil {
		f.log.WithError(clearErr).Warn("could not clear every token")
	}

	cfg := f.store.ReadConfig()
	if !cfg.CanAuthorize() {
		page.Display.Show(View{Card: CardLogin, Config: cfg})
		return clearErr
	}

	if err := page.Nav.Navigate(ctx, f.provider(cfg).LogoutURL(oauth.RedirectURI(page.URL))); err != nil {
		return fmt.Errorf("opening logout endpoint: %w", err)
	}
	return clearErr
}

// Reconfigure shows the setup card prefilled with the stored values
func (f *Flow) Reconfigure(page Page) {
	page.Display.Show(View{Card: CardSetup, Config: f.store.ReadConfig()})
}

// SaveConfig validates and stores the setup form, then shows the login
// card after a short confirmation.
func (f *Flow) SaveConfig(page Page, input credentials.Config) error {
	cfg, err := NormalizeConfig(input)
	if err != nil {
		page.Display.Show(View{Card: CardSetup, Status: err.Error(), IsError: true, Config: input})
		return err
	}

	if err := f.store.WriteConfig(cfg); err != nil {
		page.Display.Show(View{Card: CardSetup, Status: err.Error(), IsError: true, Config: cfg})
		return err
	}

	page.Display.Show(View{Card: CardSetup, Status: MsgSettingsSaved, Config: cfg})
	page.Display.Defer(f.savedDelay, View{Card: CardLogin, Config: cfg})
	return nil
}

// NormalizeConfig trims the setup input, fills in the default region and
// strips trailing slashes from the API base URL. Every other field is
// required.
func NormalizeConfig(input credentials.Config) (credentials.Config, error) {
	cfg := credentials.Config{
		Domain:     strings.TrimSpace(input.Domain),
		ClientID:   strings.TrimSpace(input.ClientID),
		Region:     strings.TrimSpace(input.Region),
		APIBaseURL: strings.TrimRight(strings.TrimSpace(input.APIBaseURL), "/"),
		OrgID:      strings.TrimSpace(input.OrgID),
	}
	if cfg.Region == "" {
		cfg.Region = credentials.DefaultRegion
	}
	if !cfg.Complete() {
		return cfg, ErrIncompleteConfig
	}
	return cfg, nil
}
