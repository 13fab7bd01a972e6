// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package browser opens URLs in the user's default web browser.
package browser

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// linuxBrowsers are tried in order when xdg-open is not enough
var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// runOpen and startCommand are swapped out in tests
var (
	runOpen      = open.Run
	startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }
)

// OpenURL opens url in the default browser. It falls back to the platform
// commands when the generic opener fails.
func OpenURL(url string) error {
	err := runOpen(url)
	if err == nil {
		return nil
	}
	logrus.Debugf("open failed: %v, trying platform commands", err)

	cmd, err := platformCommand(url)
	if err != nil {
		return err
	}
	if err := startCommand(cmd); err != nil {
		return fmt.Errorf("starting browser: %w", err)
	}
	return nil
}

func platformCommand(url string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "linux":
		for _, b := range linuxBrowsers {
			if _, err := exec.LookPath(b); err == nil {
				return exec.Command(b, url), nil
			}
		}
		return nil, fmt.Errorf("no suitable browser found")
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Navigator sends the user's browser to a URL. It can only leave a page,
// it has no visible URL to rewrite.
type Navigator struct {
	// Open replaces OpenURL when set
	Open func(string) error
}

// Navigate opens target in the browser
func (n *Navigator) Navigate(_ context.Context, target string) error {
	if n.Open != nil {
		return n.Open(target)
	}
	return OpenURL(target)
}

// ReplaceURL is a no-op, an external browser tab can't be rewritten
func (n *Navigator) ReplaceURL(string) {}
