// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// Interactive sessions log to stderr through a console writer; when a log
// directory is configured each run gets its own JSON log file and old files
// beyond the retention count are removed.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls Setup.
type Options struct {
	Level string
	// Dir receives one log file per run. Empty logs to Out.
	Dir  string
	Keep int
	// Out is the console destination; defaults to stderr.
	Out io.Writer
}

// Setup configures the global logger and returns a closer for the log file,
// if one was opened.
func Setup(opts Options) (func() error, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	zerolog.SetGlobalLevel(lvl)

	if opts.Dir == "" {
		out := opts.Out
		if out == nil {
			out = os.Stderr
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}).With().Timestamp().Logger()
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(opts.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := "dischat-" + time.Now().Format("20060102-150405") + ".log"
	f, err := os.OpenFile(filepath.Join(opts.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()

	if opts.Keep > 0 {
		if err := Prune(opts.Dir, opts.Keep); err != nil {
			log.Warn().Err(err).Msg("failed to prune old log files")
		}
	}
	return f.Close, nil
}

// Prune removes all but the keep most recent dischat log files in dir.
func Prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "dischat-") && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= keep {
		return nil
	}
	// Timestamped names sort chronologically
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Fingerprint returns a short stable identifier for a secret so it can be
// correlated in logs without being written out.
// SECURITY: never log API keys directly
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}
