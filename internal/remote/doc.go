// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package remote mirrors conversations to a per-user document collection.
//
// One document per conversation is stored under the user's collection,
// keyed by the conversation id as a decimal string, with the fields
// {title, messages, createdAt, updatedAt}. Watch delivers realtime
// added/modified/removed batches so other devices' writes flow back in.
//
// Two backends implement Remote:
//
//   - MongoRemote: a MongoDB collection per user, realtime via change streams
//   - DirRemote: a shared directory (e.g. a synced folder), realtime via fsnotify
//
// Remote storage is a best-effort mirror. Callers treat every error as
// loggable and keep local state authoritative.
package remote
