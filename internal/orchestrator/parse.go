// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"math"
	"regexp"
	"strings"
)

var (
	directiveRegex = regexp.MustCompile(`(?s)\[SEARCH\](.*?)\[/SEARCH\](.*)`)
	reasoningRegex = regexp.MustCompile(`(?s)<think>(.*?)</think>(.*)`)
)

// ParseDirective extracts the query of an embedded search directive. Text
// after the closing tag is discarded by callers.
func ParseDirective(text string) (string, bool) {
	m := directiveRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Reasoning is a reply split into its reasoning segment and main text.
type Reasoning struct {
	Found    bool
	Thinking string
	Main     string
	// Seconds is the displayed thinking time estimate.
	Seconds int
}

// wordsPerSecond paces the thinking time estimate.
const wordsPerSecond = 20

// ParseReasoning splits a <think>...</think> segment from the reply. Without
// one, Main is the text unchanged.
func ParseReasoning(text string) Reasoning {
	m := reasoningRegex.FindStringSubmatch(text)
	if m == nil {
		return Reasoning{Main: text}
	}
	thinking := strings.TrimSpace(m[1])
	return Reasoning{
		Found:    true,
		Thinking: thinking,
		Main:     strings.TrimSpace(m[2]),
		Seconds:  ThinkingSeconds(len(strings.Fields(thinking))),
	}
}

// ThinkingSeconds estimates reasoning time from its word count:
// max(1, round(words/20)).
func ThinkingSeconds(words int) int {
	s := int(math.Round(float64(words) / wordsPerSecond))
	if s < 1 {
		return 1
	}
	return s
}
