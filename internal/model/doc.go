// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// These are the records persisted locally and mirrored to the remote store,
// so their JSON field names are part of the on-disk and on-wire format.
//
// # Key Types
//
//   - Conversation: integer-keyed chat with title, messages and timestamps
//   - Message: one user or assistant turn, with optional search results and attachments
//   - Attachment: an uploaded file carried inline as a data URL
//   - SearchResult: one web search hit {title, url, snippet}
//
// # Usage
//
//	conv := model.Conversation{ID: model.NextID(existing), Title: "Capital cities"}
//	conv.Append(model.NewMessage(model.RoleUser, "What is the capital of France?"))
package model
