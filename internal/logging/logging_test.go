// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	closeFn, err := Setup(Options{Level: "warn", Out: &buf})
	require.NoError(t, err)
	defer closeFn()
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	log.Info().Msg("hidden")
	log.Warn().Str("provider", "groq").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "groq")
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	require.Error(t, err)
}

func TestSetup_FileOutput(t *testing.T) {
	dir := t.TempDir()
	closeFn, err := Setup(Options{Level: "info", Dir: dir})
	require.NoError(t, err)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	log.Info().Msg("to file")
	require.NoError(t, closeFn())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"dischat-20240101-000000.log",
		"dischat-20240102-000000.log",
		"dischat-20240103-000000.log",
		"other.txt",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0600))
	}

	require.NoError(t, Prune(dir, 2))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	assert.ElementsMatch(t, []string{"dischat-20240102-000000.log", "dischat-20240103-000000.log", "other.txt"}, left)
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("gsk_secret")
	assert.Len(t, fp, 8)
	assert.Equal(t, fp, Fingerprint("gsk_secret"))
	assert.False(t, strings.Contains(fp, "secret"))
	assert.Equal(t, "none", Fingerprint(""))
}
