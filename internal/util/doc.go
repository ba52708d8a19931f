// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across dischat.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for terminal columns
//   - FirstWords: leading whitespace-separated words of a string
//
// Formatting:
//   - FormatFileSize: human readable byte counts ("1.5 KB")
//   - DataURL: base64 data URL for attachment payloads
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	display := util.TruncateWidth(title, 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
