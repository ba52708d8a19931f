// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the terminal front end for
// dischat.
//
// The package turns os.Args into a Command and Args, renders conversations
// with glamour and lipgloss, and drives an app.App for both the one-shot
// commands and the interactive chat loop.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global and command-specific flags
//   - Runner: Executes a command against an initialized app
//   - Renderer: Markdown, reasoning and source rendering for messages
//   - ChatCLI: Line editor with history and slash-command completion
//
// # Usage
//
//	cmd, args := cli.Parse()
//	a := app.New(cfg)
//	if err := a.Init(ctx); err != nil {
//	    return err
//	}
//	defer a.Close()
//	return cli.NewRunner(a, args).Run(ctx, cmd)
//
// # Commands Overview
//
// Conversation Commands:
//   - chat: Interactive chat session (default)
//   - ask: Single question in a new conversation
//   - search: Web search answered in the current conversation
//   - regen: Regenerate a reply
//   - list, find, show, delete, export: Conversation management
//
// Setup Commands:
//   - setup: Provider and API key entry
//   - config: Configuration management
//   - status: Provider, storage and sync state
//
// Most commands support --json for scripting.
package cli
