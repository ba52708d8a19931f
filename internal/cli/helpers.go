// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// formatDuration formats a coarse duration for listings.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

// formatAge renders how long ago t was, or "-" for the zero time.
func formatAge(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	return formatDuration(d) + " ago"
}

// formatDurationShort formats a request duration.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data interface{}) error {
	return WriteJSON(os.Stdout, data)
}

// WriteJSON writes data to w as indented JSON.
func WriteJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// =============================================================================
// PROMPTS
// =============================================================================

var (
	stdinReader *bufio.Reader
	inputMutex  sync.Mutex
)

// promptInput prompts the user for one line of input.
func promptInput(prompt string) string {
	inputMutex.Lock()
	defer inputMutex.Unlock()

	if stdinReader == nil {
		stdinReader = bufio.NewReader(os.Stdin)
	}
	fmt.Print(prompt)
	input, _ := stdinReader.ReadString('\n')
	return strings.TrimSpace(input)
}

// promptYesNo asks a yes/no question; empty input selects the default.
func promptYesNo(prompt string, defaultYes bool) bool {
	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	input := promptInput(fmt.Sprintf("%s %s: ", prompt, suffix))
	if input == "" {
		return defaultYes
	}
	v, err := ParseBoolString(input)
	if err != nil {
		return defaultYes
	}
	return v
}
