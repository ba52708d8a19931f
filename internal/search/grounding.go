// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/cloud"
	"github.com/jeranaias/dischat/internal/model"
)

// =============================================================================
// GROUNDED ANSWER
// =============================================================================

const (
	GroundingTemperature = 0.3
	GroundingMaxTokens   = 512

	// GroundingFailure opens the answer when the grounded call fails. A
	// Digest of the results follows it.
	GroundingFailure = "I found some search results but had trouble processing them. Please try asking your question differently."

	sourceSeparator = "\n\n---\n\n"
)

const groundingSystemPrompt = `You are DisChat, a helpful AI assistant. I have performed a web search for the user and found relevant information. Your task is to answer the user's question using ONLY the information provided in the search results below.

CRITICAL INSTRUCTIONS:
- You MUST use the search results provided to answer the question
- Do NOT say "I don't have information" when search results are provided
- If the search results contain relevant information, use it to answer the question
- Be detailed and helpful using the information from the search results
- Use markdown formatting for clear presentation
- If the search results don't adequately answer the question, explain what information is available and what might be missing

You are answering based on current web search results, so you DO have access to this information.`

const groundingUserTemplate = `User Question: "%s"

WEB SEARCH RESULTS (USE THIS INFORMATION TO ANSWER):
%s

Based on the search results above, please provide a comprehensive answer to the user's question. The search results contain current information from the web that you should use to respond.`

// FormatSources renders results as numbered source blocks.
func FormatSources(results []model.SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[SOURCE %d]\nTITLE: %s\nCONTENT: %s\nURL: %s", i+1, r.Title, r.Snippet, r.URL)
	}
	return strings.Join(blocks, sourceSeparator)
}

// GroundingRequest builds the completion request that answers question
// strictly from results.
func GroundingRequest(modelID, question string, results []model.SearchResult) cloud.Request {
	return cloud.Request{
		Model: modelID,
		Messages: []cloud.Message{
			cloud.NewSystemMessage(groundingSystemPrompt),
			cloud.NewUserMessage(fmt.Sprintf(groundingUserTemplate, question, FormatSources(results))),
		},
		Temperature: GroundingTemperature,
		MaxTokens:   GroundingMaxTokens,
	}
}

// GroundedAnswer asks modelID to answer question from results. On failure
// the answer is GroundingFailure followed by a local Digest of the results.
func GroundedAnswer(ctx context.Context, c cloud.Completer, modelID, question string, results []model.SearchResult) string {
	text, err := c.Complete(ctx, GroundingRequest(modelID, question, results))
	if err != nil {
		log.Warn().Err(err).Str("model", modelID).Int("sources", len(results)).Msg("grounded answer failed")
		return GroundingFailure + "\n\n" + Digest(question, results)
	}
	return text
}

// =============================================================================
// MANUAL SEARCH
// =============================================================================

// WebSearchPrefix marks a user message as an explicit web search.
const WebSearchPrefix = "Search the web for: "

// IsWebSearchRequest reports whether text asks for an explicit web search
// and returns the query.
func IsWebSearchRequest(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	prefix := strings.TrimSpace(WebSearchPrefix)
	if len(trimmed) < len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return "", false
	}
	query := strings.TrimSpace(trimmed[len(prefix):])
	return query, query != ""
}

var (
	sentenceSplit = regexp.MustCompile(`\.\s+`)
	noiseWord     = regexp.MustCompile(`(?i)^(http|www|com|org|net)$`)
)

// Digest summarizes results without a model call: up to three topic words
// from the titles, then up to three distinct snippet sentences.
func Digest(query string, results []model.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("I searched for \"%s\" but couldn't find any relevant information. Would you like to try a different search term?", query)
	}

	var topics []string
	seenTopic := map[string]bool{}
	var points []string
	for _, r := range results {
		for _, w := range strings.Split(r.Title, " ") {
			if len(w) > 4 && !noiseWord.MatchString(w) && !seenTopic[w] {
				seenTopic[w] = true
				topics = append(topics, w)
			}
		}
		if r.Snippet == "" {
			continue
		}
		for _, sentence := range sentenceSplit.Split(r.Snippet, -1) {
			if len(sentence) > 30 && !coveredBy(points, sentence) {
				points = append(points, sentence)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I searched for \"%s\" and found some information that might help.\n\n", query)
	if len(topics) > 0 {
		if len(topics) > 3 {
			topics = topics[:3]
		}
		fmt.Fprintf(&b, "Based on what I found, the main topics related to your search include %s.\n\n", strings.Join(topics, ", "))
	}
	if len(points) > 3 {
		points = points[:3]
	}
	if len(points) > 0 {
		b.WriteString("Here's what I learned:\n")
		for _, p := range points {
			if !strings.HasSuffix(p, ".") {
				p += "."
			}
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	b.WriteString("Would you like me to search for more specific information on this topic?")
	return b.String()
}

// coveredBy reports whether an existing point already contains the start
// of sentence.
func coveredBy(points []string, sentence string) bool {
	head := strings.ToLower(sentence)
	if r := []rune(head); len(r) > 20 {
		head = string(r[:20])
	}
	for _, p := range points {
		if strings.Contains(strings.ToLower(p), head) {
			return true
		}
	}
	return false
}
