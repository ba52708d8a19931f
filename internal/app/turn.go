// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/orchestrator"
	"github.com/jeranaias/dischat/internal/search"
	"github.com/jeranaias/dischat/internal/store"
)

// ApologyText is persisted as the assistant reply when a completion fails.
const ApologyText = "Sorry, I encountered an error. Please try again."

// Reply is the outcome of one turn.
type Reply struct {
	// Conversation is the stored conversation after the turn.
	Conversation model.Conversation

	// Message is the assistant message that was persisted.
	Message model.Message

	Result orchestrator.Result

	// Created is set when the turn started a new conversation.
	Created bool

	// Err is the provider failure behind an apology reply, if any.
	Err error
}

// Failed reports whether the reply is the apology for a failed completion.
func (r Reply) Failed() bool {
	return r.Err != nil
}

// =============================================================================
// TURNS
// =============================================================================

// Send runs one user turn in the active conversation, starting a new one
// when none is active. Text starting with "search the web for:" runs an
// explicit web search instead of a completion.
func (a *App) Send(ctx context.Context, text string, files []model.Attachment) (Reply, error) {
	if strings.TrimSpace(text) == "" && len(files) == 0 {
		return Reply{}, ErrEmptyMessage
	}
	if query, ok := search.IsWebSearchRequest(text); ok && len(files) == 0 {
		return a.WebSearch(ctx, query)
	}

	orch, ok := a.orchestrator()
	if !ok {
		return Reply{}, ErrNoAPIKey
	}

	user := model.NewMessage(model.RoleUser, text)
	if len(files) > 0 {
		user.AttachedFiles = files
	}
	return a.turn(ctx, orch, user, func(history []model.Message) (orchestrator.Result, error) {
		return orch.Respond(ctx, orchestrator.Turn{
			History:     history,
			Text:        text,
			Attachments: files,
		})
	})
}

// WebSearch records an explicit web search in the active conversation and
// answers it from the results.
func (a *App) WebSearch(ctx context.Context, query string) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{}, ErrEmptyMessage
	}
	orch, ok := a.orchestrator()
	if !ok {
		return Reply{}, ErrNoAPIKey
	}

	user := model.NewMessage(model.RoleUser, orchestrator.WebSearchMessage(query))
	return a.turn(ctx, orch, user, func([]model.Message) (orchestrator.Result, error) {
		return orch.WebSearch(ctx, query), nil
	})
}

// turn runs fn against the active conversation's history and then persists
// the user message and the reply together. A new conversation is only
// created once its first exchange has completed. A failed fn is recorded as
// ApologyText.
func (a *App) turn(ctx context.Context, orch *orchestrator.Orchestrator, user model.Message, fn func([]model.Message) (orchestrator.Result, error)) (Reply, error) {
	var reply Reply

	active, existing := a.store.Active()
	var history []model.Message
	if existing {
		history = active.Messages
		a.store.SetStreaming(active.ID, true)
	}
	res, runErr := fn(history)
	if existing {
		a.store.SetStreaming(active.ID, false)
	}

	if runErr != nil && ctx.Err() != nil {
		// the caller gave up on the turn; that is not a provider failure
		return reply, fmt.Errorf("request interrupted: %w", ctx.Err())
	}

	assistant := model.NewMessage(model.RoleAssistant, res.Text)
	if runErr != nil {
		log.Error().
			Err(runErr).
			Int("conversation_id", active.ID).
			Str("provider", orch.Provider().Name).
			Msg("completion failed")
		assistant.Text = ApologyText
		reply.Err = runErr
	} else if res.Searched {
		assistant.SearchResults = res.SearchResults
	}

	var (
		conv model.Conversation
		err  error
	)
	if existing {
		conv, err = a.store.Update(active.ID, func(c *model.Conversation) {
			c.Append(user)
			c.Append(assistant)
		})
		if errors.Is(err, store.ErrNotFound) {
			// removed by another device while the request ran
			log.Warn().Int("conversation_id", active.ID).Msg("conversation deleted before reply was saved")
			conv = active.Clone()
			conv.Append(user)
			conv.Append(assistant)
			err = nil
		}
	} else {
		title := orchestrator.FallbackTitle(user.Text)
		if runErr == nil {
			title = orch.GenerateTitle(ctx, user.Text)
		}
		conv, err = a.store.Create(func(int) model.Conversation {
			return model.Conversation{
				Title:    title,
				Messages: []model.Message{user, assistant},
			}
		})
		reply.Created = err == nil
	}
	if err != nil {
		return reply, fmt.Errorf("save reply: %w", err)
	}

	log.Debug().
		Int("conversation_id", conv.ID).
		Str("model", res.Decision.Model).
		Bool("searched", res.Searched).
		Dur("duration", res.Duration).
		Msg("turn complete")

	reply.Conversation = conv
	reply.Message = assistant
	reply.Result = res
	return reply, nil
}

// Regenerate replaces the assistant message at index in the active
// conversation with a fresh reply. A negative index selects the last
// assistant message. On failure the conversation is left unchanged.
func (a *App) Regenerate(ctx context.Context, index int) (Reply, error) {
	orch, ok := a.orchestrator()
	if !ok {
		return Reply{}, ErrNoAPIKey
	}
	conv, ok := a.store.Active()
	if !ok {
		return Reply{}, ErrNoActiveChat
	}
	if index < 0 {
		index = orchestrator.LastAssistantIndex(conv)
		if index < 0 {
			return Reply{Conversation: conv}, orchestrator.ErrNotAssistant
		}
	}

	a.store.SetStreaming(conv.ID, true)
	defer a.store.SetStreaming(conv.ID, false)

	out, res, err := orch.Regenerate(ctx, conv, index)
	if err != nil {
		return Reply{Conversation: conv, Result: res, Err: err}, err
	}

	regenerated := out.Messages[index]
	saved, err := a.store.Update(conv.ID, func(c *model.Conversation) {
		if index < len(c.Messages) && c.Messages[index].IsAssistant() {
			c.Messages[index] = regenerated
		}
	})
	if err != nil {
		return Reply{Conversation: conv, Result: res}, fmt.Errorf("save regenerated reply: %w", err)
	}
	return Reply{Conversation: saved, Message: regenerated, Result: res}, nil
}
