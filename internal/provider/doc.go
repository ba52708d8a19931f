// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider describes the hosted completion services dischat can talk
// to.
//
// The set of providers is closed: each ID maps to exactly one Provider value
// carrying its endpoint, the headers it expects and a fixed model catalogue.
// Adding a provider means adding an ID and its catalogue entry here.
//
// # Usage
//
//	p, err := provider.Parse("openrouter")
//	model := p.VisionModel // model id forced by image attachments
package provider
