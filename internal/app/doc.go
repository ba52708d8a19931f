// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app ties the conversation store, the completion orchestrator and
// the search gateway together behind one coordinator.
//
// An App owns the process-wide state of a dischat session: the local state
// backend, the optional sync remote, the active provider and key. The CLI
// drives it through a small set of operations:
//
//	a := app.New(cfg)
//	if err := a.Init(ctx); err != nil { ... }
//	defer a.Close()
//
//	reply, err := a.Send(ctx, "Hello", nil)
//
// Send runs a full turn: it creates the conversation on the first exchange,
// dispatches the completion, runs any requested web search and persists the
// reply locally and, when sync is enabled, remotely. Provider failures never
// abort a turn; they are recorded as an apology message.
package app
