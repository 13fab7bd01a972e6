// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// maskedParams never reach the request log in clear
var maskedParams = map[string]struct{}{
	"code":          {},
	"code_verifier": {},
	"id_token":      {},
	"access_token":  {},
	"refresh_token": {},
}

// requestLogger logs one line per request through logrus
func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := maskQuery(c.Request.URL.RawQuery)

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		latency := time.Since(start).Truncate(time.Millisecond)
		status := c.Writer.Status()
		line := fmt.Sprintf("%3d | %13v | %15s | %-7s \"%s\"", status, latency, c.ClientIP(), c.Request.Method, path)
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			line = line + " | " + msg
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error(line)
		case status >= http.StatusBadRequest:
			log.Warn(line)
		default:
			log.Info(line)
		}
	}
}

// recovery turns a panic into a 500 and logs the stack
func recovery(log logrus.FieldLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			panic(http.ErrAbortHandler)
		}

		log.WithFields(logrus.Fields{
			"panic": recovered,
			"stack": string(debug.Stack()),
			"path":  c.Request.URL.Path,
		}).Error("recovered from panic")

		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// maskQuery hides the values of credential bearing query parameters
func maskQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	for i, part := range parts {
		key, _, found := strings.Cut(part, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if _, ok := maskedParams[key]; ok && found {
			parts[i] = url.QueryEscape(key) + "=***"
		}
	}
	return strings.Join(parts, "&")
}
