// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator turns a user turn into completion requests and a
// displayable answer.
//
// A turn runs strictly in order: compose the request (history window,
// attachments, system framing), dispatch it, look for an embedded
// [SEARCH]query[/SEARCH] directive and, when present, replace the reply
// with an answer grounded in web results. Reasoning segments wrapped in
// <think> tags are split out for collapsed display.
package orchestrator
