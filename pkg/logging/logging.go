// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

// Package logging configures the shared logrus logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu        sync.Mutex
	logWriter *lumberjack.Logger
)

// Formatter renders one line per entry:
//
//	[2026-01-02 15:04:05] [warn ] could not decode identity token error=...
type Formatter struct{}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&fields, " %s=%v", k, entry.Data[k])
	}

	fmt.Fprintf(buffer, "[%s] [%-5s] %s%s\n",
		entry.Time.Format("2006-01-02 15:04:05"), level,
		strings.TrimRight(entry.Message, "\r\n"), fields.String(),
	)
	return buffer.Bytes(), nil
}

// Options selects the level and destination of the logger
type Options struct {
	Level string
	// File, when set, receives the log through a rotating writer
	// instead of stderr.
	File string
}

// Setup configures the standard logrus logger
func Setup(opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		l, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	mu.Lock()
	defer mu.Unlock()

	logrus.SetLevel(level)
	logrus.SetFormatter(&Formatter{})

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}

	if opts.File == "" {
		logrus.SetOutput(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	logWriter = &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10,
		MaxBackups: 3,
	}
	logrus.SetOutput(logWriter)
	return nil
}

// Writer returns the writer at the given level, for libraries that log to
// an io.Writer. The caller closes it.
func Writer(level logrus.Level) *io.PipeWriter {
	return logrus.StandardLogger().WriterLevel(level)
}

// Close flushes and releases the rotating log file, if any
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
}
