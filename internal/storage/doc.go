// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists dischat's local state.
//
// Local state is a small string key/value map: the full conversation list as
// a JSON array, the active conversation id, the API key and provider, the
// theme and a few UI flags. Three Backend drivers hold it:
//
//   - file:   one JSON object written atomically (default)
//   - sqlite: a single kv table in a pure Go SQLite database
//   - bolt:   a bbolt bucket
//
// Local wraps a Backend with typed accessors. Reads never fail the caller:
// absent or corrupt values yield zero values so the client always starts.
//
// # Usage
//
//	b, err := storage.Open("sqlite", path)
//	local := storage.NewLocal(b)
//	convs := local.Conversations()
package storage
