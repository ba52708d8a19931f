// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversations as Markdown, JSON or standalone HTML.
//
// # Key Types
//
//   - Exporter: Converts a conversation to one format
//   - Options: Metadata, timestamp, reasoning and theme switches
//
// # Usage
//
//	exp, err := export.ForFormat("html", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	err = export.ToFile(conv, exp, export.Filename(conv, exp))
//
// Reasoning segments are stripped from assistant replies unless
// Options.IncludeReasoning is set. JSON exports are always complete.
package export
