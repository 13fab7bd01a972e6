// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package loopback hosts the login page on a local HTTP listener so a
// terminal session can receive the provider redirect.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carabiner-dev/hostedlogin/pkg/client/session"
)

const (
	// CallbackPath receives the provider redirect
	CallbackPath = "/auth/callback"

	// LandingPath is the authenticated landing view
	LandingPath = "/auth/done"

	// DefaultAddr is the listen address registered with the provider
	DefaultAddr = "127.0.0.1:8085"
)

var (
	successTmpl = template.Must(template.New("success").Parse(successPageTemplate))
	errorTmpl   = template.Must(template.New("error").Parse(errorPageTemplate))
)

// Result is the outcome of the redirect back from the provider
type Result struct {
	State session.State
	Err   error
}

// Server manages the local HTTP server for the provider redirect
type Server struct {
	flow     *session.Flow
	server   *http.Server
	listener net.Listener
	result   chan Result
	once     sync.Once
	log      logrus.FieldLogger
}

// New listens on addr and serves the login page for flow. The flow must
// land on LandingPath after a login.
func New(flow *session.Flow, addr string, log logrus.FieldLogger) (*Server, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("creating listener: %w", err)
	}

	s := &Server{
		flow:     flow,
		listener: listener,
		result:   make(chan Result, 1),
		log:      log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	mux.HandleFunc(LandingPath, s.handleLanding)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s, nil
}

// Start begins serving in the background
func (s *Server) Start() {
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("loopback server stopped")
		}
	}()
}

// URL returns the page URL, which is also the redirect URI
func (s *Server) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: s.listener.Addr().String(), Path: CallbackPath}
}

// Wait blocks until the provider redirects back or ctx is done
func (s *Server) Wait(ctx context.Context) (Result, error) {
	select {
	case res := <-s.result:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleCallback runs a page load at the callback URL. The outcome is
// reported only after the response is written so the terminal can shut
// the server down right away.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	pageURL := s.URL()
	pageURL.RawQuery = r.URL.RawQuery

	resp := &pageResponse{}
	state, err := s.flow.Load(r.Context(), session.Page{URL: pageURL, Nav: resp, Display: resp})

	switch {
	case resp.redirect == s.landingURL() || (resp.redirect == "" && state == session.StateAuthenticated):
		s.renderSuccessPage(w)
	case resp.redirect != "":
		http.Redirect(w, r, resp.redirect, http.StatusFound)
	default:
		s.renderErrorPage(w, resp)
	}

	// Only the provider redirect ends the wait. A bare visit with a live
	// session renders the same page but is not an outcome.
	if !fromProvider(r.URL.Query()) {
		return
	}
	switch state {
	case session.StateAuthenticated, session.StateLoginError, session.StateCallbackError:
		s.once.Do(func() {
			s.result <- Result{State: state, Err: err}
		})
	}
}

// fromProvider reports whether the query is an authorization response
func fromProvider(q url.Values) bool {
	return q.Has("code") || q.Has("error")
}

func (s *Server) landingURL() string {
	u := s.URL()
	u.Path = LandingPath
	return u.String()
}

func (s *Server) handleLanding(w http.ResponseWriter, _ *http.Request) {
	if !s.flow.IsLoggedIn() {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}
	s.renderSuccessPage(w)
}

// renderSuccessPage shows a success message to the user
func (s *Server) renderSuccessPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	data := struct{ User string }{User: s.flow.Tokens().DisplayName()}
	if err := successTmpl.Execute(w, data); err != nil {
		s.log.WithError(err).Debug("rendering success page")
	}
}

// renderErrorPage shows the failure and the message that follows it
func (s *Server) renderErrorPage(w http.ResponseWriter, resp *pageResponse) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)

	data := struct {
		Status   string
		Later    string
		DelayMS  int64
		Replaced string
	}{
		Status:   resp.view.Status,
		Replaced: resp.replaced,
	}
	if resp.deferred != nil {
		data.Later = resp.deferred.Status
		data.DelayMS = resp.delay.Milliseconds()
	}

	if err := errorTmpl.Execute(w, data); err != nil {
		s.log.WithError(err).Debug("rendering error page")
	}
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

// HTML templates for callback pages
const successPageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Authentication Successful</title>
    <style>
        body {
            font-family: "Ubuntu", -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #b24202 0%, #e5790d 100%);
        }
        .container {
            background: white;
            padding: 3rem;
            border-radius: 10px;
            box-shadow: 0 10px 40px rgba(0,0,0,0.5);
            text-align: center;
            max-width: 400px;
        }
        h1 { color: #333; margin: 0 0 1rem 0; }
        .checkmark { font-size: 64px; color: #4CAF50; margin-bottom: 1rem; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="checkmark">✓</div>
        <h1>Signed in as {{.User}}</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>`

const errorPageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Authentication Failed</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: linear-gradient(135deg, #f093fb 0%, #f5576c 100%);
        }
        .container {
            background: white;
            padding: 3rem;
            border-radius: 10px;
            box-shadow: 0 10px 40px rgba(0,0,0,0.2);
            text-align: center;
            max-width: 400px;
        }
        h1 { color: #333; margin: 0 0 1rem 0; }
        .error-icon { font-size: 64px; color: #f44336; margin-bottom: 1rem; }
        p { color: #666; margin: 0; }
        .error-details {
            background: #f5f5f5;
            padding: 1rem;
            border-radius: 5px;
            margin-top: 1rem;
            font-size: 0.9em;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="error-icon">✗</div>
        <h1>Authentication Failed</h1>
        <div class="error-details" id="status">{{.Status}}</div>
        <p style="margin-top: 1rem;">Please close this window and try again from the terminal.</p>
    </div>
    <script>
    {{if .Replaced}}window.history.replaceState({}, document.title, {{.Replaced}});{{end}}
    {{if .Later}}setTimeout(function () {
        document.getElementById("status").textContent = {{.Later}};
    }, {{.DelayMS}});{{end}}
    </script>
</body>
</html>`

// TerminalDisplay prints the flow status lines to a terminal
type TerminalDisplay struct {
	Printf func(format string, a ...any)

	// SkipErrors drops error statuses, for callers that report the
	// returned error themselves.
	SkipErrors bool
}

// Show prints the view status, if any
func (d *TerminalDisplay) Show(v session.View) {
	if v.Status == "" || d.Printf == nil || (v.IsError && d.SkipErrors) {
		return
	}
	d.Printf("%s\n", v.Status)
}

// Defer prints right away, a terminal has nothing to swap back
func (d *TerminalDisplay) Defer(_ time.Duration, v session.View) {
	d.Show(v)
}
