// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package server hosts the login page as a local web application.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carabiner-dev/hostedlogin/pkg/client/credentials"
	"github.com/carabiner-dev/hostedlogin/pkg/client/session"
)

// Routes
const (
	PagePath      = "/"
	SetupPath     = "/setup"
	LoginPath     = "/login"
	LogoutPath    = "/logout"
	DashboardPath = "/dashboard"
	SessionPath   = "/api/session"
)

const shutdownTimeout = 5 * time.Second

// Options configures the web host
type Options struct {
	Listen string
	Log    logrus.FieldLogger
}

// Server is the web host of the login flow
type Server struct {
	flow   *session.Flow
	engine *gin.Engine
	listen string
	log    logrus.FieldLogger
}

// New builds the web host around flow. The flow landing path should be
// DashboardPath.
func New(flow *session.Flow, opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	s := &Server{
		flow:   flow,
		engine: gin.New(),
		listen: opts.Listen,
		log:    opts.Log,
	}

	s.engine.Use(requestLogger(opts.Log), recovery(opts.Log))
	s.engine.SetHTMLTemplate(template.Must(template.New("pages").Parse(pageTemplates)))

	s.engine.GET(PagePath, s.handlePage)
	s.engine.GET(SetupPath, s.handleReconfigure)
	s.engine.POST(SetupPath, s.handleSetup)
	s.engine.GET(LoginPath, s.handleLogin)
	s.engine.POST(LogoutPath, s.handleLogout)
	s.engine.GET(DashboardPath, s.handleDashboard)
	s.engine.GET(SessionPath, s.handleSession)

	return s
}

// Handler returns the HTTP handler of the web host
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", s.listen, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// pageURL reconstructs the absolute URL of the login page as the browser
// sees it, carrying the request query.
func pageURL(c *gin.Context) *url.URL {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	} else if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
		scheme = proto
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     PagePath,
		RawQuery: c.Request.URL.RawQuery,
	}
}

// newPage starts a page load for the request
func newPage(c *gin.Context, withQuery bool) (session.Page, *pageResponse) {
	u := pageURL(c)
	if !withQuery {
		u.RawQuery = ""
	}
	resp := &pageResponse{}
	return session.Page{URL: u, Nav: resp, Display: resp}, resp
}

func (s *Server) handlePage(c *gin.Context) {
	page, resp := newPage(c, true)
	state, err := s.flow.Load(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
	}
	s.log.WithField("state", state.String()).Debug("page loaded")
	s.respond(c, resp)
}

func (s *Server) handleReconfigure(c *gin.Context) {
	page, resp := newPage(c, false)
	s.flow.Reconfigure(page)
	s.respond(c, resp)
}

func (s *Server) handleSetup(c *gin.Context) {
	page, resp := newPage(c, false)
	input := credentials.Config{
		Domain:     c.PostForm("domain"),
		ClientID:   c.PostForm("client_id"),
		Region:     c.PostForm("region"),
		APIBaseURL: c.PostForm("api_base_url"),
		OrgID:      c.PostForm("org_id"),
	}
	if err := s.flow.SaveConfig(page, input); err != nil {
		_ = c.Error(err)
	}
	resp.replaced = page.URL.String()
	s.respond(c, resp)
}

func (s *Server) handleLogin(c *gin.Context) {
	page, resp := newPage(c, false)
	if err := s.flow.InitiateLogin(c.Request.Context(), page, c.Query("provider")); err != nil {
		_ = c.Error(err)
	}
	resp.replaced = page.URL.String()
	s.respond(c, resp)
}

func (s *Server) handleLogout(c *gin.Context) {
	page, resp := newPage(c, false)
	if err := s.flow.Logout(c.Request.Context(), page); err != nil {
		_ = c.Error(err)
	}
	resp.replaced = page.URL.String()
	s.respond(c, resp)
}

func (s *Server) handleDashboard(c *gin.Context) {
	if !s.flow.IsLoggedIn() {
		c.Redirect(http.StatusFound, PagePath)
		return
	}
	cfg := s.flow.Config()
	c.HTML(http.StatusOK, "dashboard", gin.H{
		"User":       s.flow.Tokens().DisplayName(),
		"APIBaseURL": cfg.APIBaseURL,
		"OrgID":      cfg.OrgID,
	})
}

// sessionResponse is the collaborator view of the session
type sessionResponse struct {
	LoggedIn   bool       `json:"logged_in"`
	Email      string     `json:"email,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	APIBaseURL string     `json:"api_base_url,omitempty"`
	OrgID      string     `json:"org_id,omitempty"`
}

func (s *Server) handleSession(c *gin.Context) {
	cfg := s.flow.Config()
	res := sessionResponse{
		LoggedIn:   s.flow.IsLoggedIn(),
		APIBaseURL: cfg.APIBaseURL,
		OrgID:      cfg.OrgID,
	}
	if res.LoggedIn {
		tokens := s.flow.Tokens()
		res.Email = tokens.Email
		if !tokens.Expiry.IsZero() {
			exp := tokens.Expiry.UTC()
			res.ExpiresAt = &exp
		}
	}
	c.JSON(http.StatusOK, res)
}

// respond turns what the flow did to the page into an HTTP response
func (s *Server) respond(c *gin.Context, resp *pageResponse) {
	if resp.redirect != "" {
		c.Redirect(http.StatusFound, resp.redirect)
		return
	}

	data := pageData{View: resp.view, Replace: resp.replaced}
	if resp.deferred != nil {
		data.Deferred = resp.deferred
		data.DelayMS = resp.delay.Milliseconds()
	}
	c.HTML(http.StatusOK, "page", data)
}

// pageData feeds the page template
type pageData struct {
	View     session.View
	Deferred *session.View
	DelayMS  int64
	Replace  string
}

// pageResponse collects what the flow asked of the page during a request
type pageResponse struct {
	redirect string
	replaced string
	view     session.View
	deferred *session.View
	delay    time.Duration
}

func (p *pageResponse) Navigate(_ context.Context, target string) error {
	p.redirect = target
	return nil
}

func (p *pageResponse) ReplaceURL(target string) {
	p.replaced = target
}

func (p *pageResponse) Show(v session.View) {
	p.view = v
}

func (p *pageResponse) Defer(d time.Duration, v session.View) {
	p.deferred = &v
	p.delay = d
}
