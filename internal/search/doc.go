// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search resolves free-text queries to web results and folds them
// back into a grounded completion.
//
// Lookup order:
//
//  1. DuckDuckGo instant-answer API: an abstract becomes one result, else
//     up to three related topics.
//  2. The rendered DuckDuckGo results page, fetched through a CORS relay
//     proxy (or directly when no proxy is configured) and parsed with
//     goquery, up to five results.
//
// Both stages are best-effort: failures produce an empty result set and
// are only logged. Nothing is retried.
package search
