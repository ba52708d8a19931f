// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the in-memory conversation list and its durability.
//
// Local state is authoritative: every mutation is persisted locally before
// it returns. When a remote is attached, mutations are mirrored to it by a
// background worker whose failures are only logged, and realtime change
// batches from the remote are applied against the current list under the
// store's lock.
//
// # Usage
//
//	s := store.New(local)
//	s.LoadLocal()
//	s.AttachRemote(r)
//	_ = s.LoadRemote(ctx)
//	_ = s.StartWatch(ctx)
//	conv, err := s.Create(func(id int) model.Conversation { ... })
package store
