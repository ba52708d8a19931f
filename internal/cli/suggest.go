// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - "Did you mean" hints for mistyped commands.
package cli

import (
	"strings"
)

// validCommands lists command words and their aliases.
var validCommands = []string{
	"chat", "ask", "list", "ls", "show", "open", "delete", "rm", "find",
	"search", "regen", "regenerate", "export", "setup", "login", "config",
	"status", "info", "version", "help",
}

// SuggestCommand returns the closest command word to input, or "" when
// nothing is close or input is already valid.
func SuggestCommand(input string) string {
	return suggest(strings.ToLower(input), validCommands)
}

// SuggestSlashCommand is SuggestCommand for chat slash commands.
func SuggestSlashCommand(input string) string {
	names := make([]string, len(slashCommands))
	for i, c := range slashCommands {
		names[i] = strings.TrimSpace(c)
	}
	return suggest(strings.ToLower(input), names)
}

func suggest(input string, candidates []string) string {
	if len(input) < 2 {
		return ""
	}

	// Longer inputs tolerate more typos
	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}
	if len(input) > 8 {
		maxDistance = 3
	}

	best := ""
	bestDistance := -1
	for _, c := range candidates {
		d := levenshteinDistance(input, c)
		if d == 0 {
			return ""
		}
		if d <= maxDistance && (bestDistance == -1 || d < bestDistance) {
			bestDistance = d
			best = c
		}
	}
	return best
}

// levenshteinDistance is the edit distance between s1 and s2, using two
// rolling rows.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
