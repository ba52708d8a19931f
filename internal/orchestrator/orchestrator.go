// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/cloud"
	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/provider"
	"github.com/jeranaias/dischat/internal/router"
	"github.com/jeranaias/dischat/internal/search"
)

// =============================================================================
// ERRORS AND FIXED TEXTS
// =============================================================================

var (
	// ErrNotAssistant is returned when regenerating a message that is not an
	// assistant reply.
	ErrNotAssistant = errors.New("message is not an assistant response")

	// ErrNoUserMessage is returned when no user message precedes the reply.
	ErrNoUserMessage = errors.New("no user message found before this response")

	// ErrIndexOutOfRange is returned for a message index outside the conversation.
	ErrIndexOutOfRange = errors.New("message index out of range")
)

// NoResultsText replaces a directive reply when the search found nothing.
func NoResultsText(query string) string {
	return fmt.Sprintf("I searched for \"%s\" but couldn't find any relevant information. Please try rephrasing your question.", query)
}

// SearchErrorText replaces a directive reply when the search was interrupted.
func SearchErrorText(query string) string {
	return fmt.Sprintf("I tried to search for \"%s\" but encountered an error. Please try again later.", query)
}

// ManualNoResultsText answers an explicit web search that found nothing.
func ManualNoResultsText(query string) string {
	return fmt.Sprintf("I searched for \"%s\" but couldn't find any relevant information. Please try rephrasing your search query.", query)
}

// WebSearchMessage is the user message recorded for an explicit web search.
func WebSearchMessage(query string) string {
	return search.WebSearchPrefix + query
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Turn is one user message with the conversation history that precedes it.
type Turn struct {
	History     []model.Message
	Text        string
	Attachments []model.Attachment
}

// Result is the outcome of a turn.
type Result struct {
	// Text is the reply as persisted; it may contain a reasoning segment.
	Text string

	// Reasoning splits Text for display.
	Reasoning Reasoning

	// Searched is set when a web search ran; SearchResults holds its hits
	// (possibly empty).
	Searched      bool
	Query         string
	SearchResults []model.SearchResult

	Decision router.Decision
	Duration time.Duration
}

// Orchestrator runs turns against one provider.
type Orchestrator struct {
	provider *provider.Provider
	client   cloud.Completer
	searcher search.Searcher
	settings Settings
}

// New creates an orchestrator. A zero Settings.Model falls back to the
// provider's default model when routing.
func New(p *provider.Provider, client cloud.Completer, searcher search.Searcher, settings Settings) *Orchestrator {
	return &Orchestrator{
		provider: p,
		client:   client,
		searcher: searcher,
		settings: settings,
	}
}

// Provider returns the provider turns are sent to.
func (o *Orchestrator) Provider() *provider.Provider {
	return o.provider
}

// Settings returns the sampling settings.
func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// Route returns the model decision for a set of attachments.
func (o *Orchestrator) Route(files []model.Attachment) router.Decision {
	return router.Route(o.provider, o.settings.Model, files)
}

// Respond runs one turn. It fails only when the primary completion fails;
// search and grounding problems degrade to fixed texts.
func (o *Orchestrator) Respond(ctx context.Context, turn Turn) (Result, error) {
	start := time.Now()
	decision := o.Route(turn.Attachments)
	req := Compose(decision, o.settings, turn.History, turn.Text, turn.Attachments)

	log.Debug().
		Str("provider", o.provider.Name).
		Stringer("decision", decision).
		Int("messages", len(req.Messages)).
		Msg("dispatching turn")

	raw, err := o.client.Complete(ctx, req)
	if err != nil {
		return Result{Decision: decision}, err
	}

	res := Result{Text: raw, Decision: decision}
	if query, ok := ParseDirective(raw); ok {
		res.Searched = true
		res.Query = query
		res.Text, res.SearchResults = o.ground(ctx, turn.Text, query, NoResultsText)
	}
	res.Reasoning = ParseReasoning(res.Text)
	res.Duration = time.Since(start)
	return res, nil
}

// ground searches query and answers question from the results.
func (o *Orchestrator) ground(ctx context.Context, question, query string, noResults func(string) string) (string, []model.SearchResult) {
	results := o.searcher.Search(ctx, query)
	if ctx.Err() != nil {
		return SearchErrorText(query), []model.SearchResult{}
	}
	if len(results) == 0 {
		return noResults(query), []model.SearchResult{}
	}
	return search.GroundedAnswer(ctx, o.client, o.provider.GroundingModel, question, results), results
}

// WebSearch answers an explicit web search request without a first
// completion: search, then a grounded answer or the no-results text.
func (o *Orchestrator) WebSearch(ctx context.Context, query string) Result {
	start := time.Now()
	query = strings.TrimSpace(query)
	res := Result{Searched: true, Query: query}
	res.Text, res.SearchResults = o.ground(ctx, query, query, ManualNoResultsText)
	res.Reasoning = ParseReasoning(res.Text)
	res.Duration = time.Since(start)
	return res
}

// =============================================================================
// REGENERATION
// =============================================================================

// LastAssistantIndex returns the index of the most recent assistant message,
// or -1.
func LastAssistantIndex(conv model.Conversation) int {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].IsAssistant() {
			return i
		}
	}
	return -1
}

// Regenerate replays the user message preceding the assistant message at
// index, with history truncated before it, and returns a copy of conv with
// that reply's text and timestamp replaced. On error conv is returned
// unchanged.
func (o *Orchestrator) Regenerate(ctx context.Context, conv model.Conversation, index int) (model.Conversation, Result, error) {
	if index < 0 || index >= len(conv.Messages) {
		return conv, Result{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if !conv.Messages[index].IsAssistant() {
		return conv, Result{}, fmt.Errorf("%w: %d", ErrNotAssistant, index)
	}

	userIdx := -1
	for i := index - 1; i >= 0; i-- {
		if conv.Messages[i].IsUser() {
			userIdx = i
			break
		}
	}
	if userIdx < 0 {
		return conv, Result{}, ErrNoUserMessage
	}

	user := conv.Messages[userIdx]
	res, err := o.Respond(ctx, Turn{
		History:     conv.Messages[:userIdx],
		Text:        user.Text,
		Attachments: user.AttachedFiles,
	})
	if err != nil {
		return conv, res, err
	}

	out := conv.Clone()
	msg := &out.Messages[index]
	msg.Text = res.Text
	msg.Timestamp = model.Now()
	if res.Searched {
		msg.SearchResults = res.SearchResults
	} else {
		msg.SearchResults = nil
	}
	return out, res, nil
}

// =============================================================================
// TITLES
// =============================================================================

const (
	titlePrompt      = "You are DisChat. Generate a short, descriptive title (3-5 words max) for a chat that starts with this message. Only respond with the title, nothing else."
	titleTemperature = 0.3
	titleMaxTokens   = 20
)

// GenerateTitle asks the provider's title model for a short title. Any
// failure falls back to the first three words of the message.
func (o *Orchestrator) GenerateTitle(ctx context.Context, firstMessage string) string {
	text, err := o.client.Complete(ctx, cloud.Request{
		Model: o.provider.TitleModel,
		Messages: []cloud.Message{
			cloud.NewSystemMessage(titlePrompt),
			cloud.NewUserMessage(firstMessage),
		},
		Temperature: titleTemperature,
		MaxTokens:   titleMaxTokens,
	})
	if err == nil {
		if title := CleanTitle(text); title != "" {
			return title
		}
	} else {
		log.Debug().Err(err).Str("model", o.provider.TitleModel).Msg("title generation failed")
	}
	return FallbackTitle(firstMessage)
}

// CleanTitle trims a generated title, removes quote characters and clamps
// it to model.MaxTitleLength.
func CleanTitle(text string) string {
	text = strings.TrimSpace(text)
	text = strings.NewReplacer(`"`, "", "'", "").Replace(text)
	return model.ClampTitle(strings.TrimSpace(text))
}

// FallbackTitle is the non-AI title, or model.UntitledTitle for a message
// without words.
func FallbackTitle(firstMessage string) string {
	if title := model.FallbackTitle(firstMessage); strings.TrimSpace(title) != "" {
		return title
	}
	return model.UntitledTitle
}
