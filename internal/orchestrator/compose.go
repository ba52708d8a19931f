// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"fmt"
	"strings"

	"github.com/jeranaias/dischat/internal/cloud"
	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/router"
)

// Settings are the sampling parameters of a normal turn.
type Settings struct {
	// Model is the user's chosen model for turns without attachments.
	Model       string
	Temperature float32
	MaxTokens   int
}

// DefaultSettings mirrors the values every turn used historically.
func DefaultSettings() Settings {
	return Settings{Temperature: 0.7, MaxTokens: 1024}
}

// Window returns the last model.HistoryWindow messages of history as chat
// messages.
func Window(history []model.Message) []cloud.Message {
	msgs := make([]cloud.Message, 0, model.HistoryWindow)
	for _, m := range history {
		switch {
		case m.IsUser():
			msgs = append(msgs, cloud.NewUserMessage(m.Text))
		case m.IsAssistant():
			msgs = append(msgs, cloud.NewAssistantMessage(m.Text))
		}
	}
	if len(msgs) > model.HistoryWindow {
		msgs = msgs[len(msgs)-model.HistoryWindow:]
	}
	return msgs
}

// attachmentParts renders attachments as content parts. Documents without
// extracted text contribute nothing.
func attachmentParts(text string, files []model.Attachment) []cloud.Part {
	parts := make([]cloud.Part, 0, len(files)+1)
	if strings.TrimSpace(text) != "" {
		parts = append(parts, cloud.TextPart(text))
	}
	for _, f := range files {
		switch {
		case f.IsImage():
			parts = append(parts, cloud.ImagePart(f.Data))
		case f.ExtractedText == "":
			continue
		case f.IsPDF():
			parts = append(parts, cloud.TextPart(fmt.Sprintf("[PDF Document: %s]\n\nExtracted Content:\n%s", f.Name, f.ExtractedText)))
		default:
			parts = append(parts, cloud.TextPart(fmt.Sprintf("[Document: %s]\n\nExtracted Content:\n%s", f.Name, f.ExtractedText)))
		}
	}
	return parts
}

// flatten joins parts into one text payload, images becoming placeholders.
func flatten(parts []cloud.Part) string {
	texts := make([]string, len(parts))
	for i, p := range parts {
		switch {
		case p.IsImage() && p.ImageURL != "":
			texts[i] = "[Image: attached]"
		case p.IsImage():
			texts[i] = "[Image: unavailable]"
		default:
			texts[i] = p.Text
		}
	}
	return strings.Join(texts, "\n\n")
}

// CurrentTurn encodes the user's message. With attachments it is multi-part
// for multimodal decisions and flattened text otherwise.
func CurrentTurn(d router.Decision, text string, files []model.Attachment) cloud.Message {
	if len(files) == 0 {
		return cloud.NewUserMessage(text)
	}
	parts := attachmentParts(text, files)
	if d.Multimodal {
		return cloud.Message{Role: cloud.RoleUser, Parts: parts}
	}
	return cloud.NewUserMessage(flatten(parts))
}

// Compose builds the full request for one turn: system framing, the
// bounded history window and the current turn.
func Compose(d router.Decision, s Settings, history []model.Message, text string, files []model.Attachment) cloud.Request {
	msgs := make([]cloud.Message, 0, model.HistoryWindow+2)
	msgs = append(msgs, cloud.NewSystemMessage(SystemPrompt(d)))
	msgs = append(msgs, Window(history)...)
	msgs = append(msgs, CurrentTurn(d, text, files))
	return cloud.Request{
		Model:       d.Model,
		Messages:    msgs,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	}
}
