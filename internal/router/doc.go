// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router picks the model that serves a user turn.
//
// Attachments decide first: images force the provider's vision model,
// documents force its document model, and a mix prefers the provider's
// combined model when it defines one. Without attachments the user's chosen
// model is used.
//
// # Key Types
//
//   - Modality: attachment classification (None, Image, Document, Mixed)
//   - Decision: selected model with the reason it was chosen
//
// # Usage
//
//	d := router.Route(p, chosenModel, attachments)
//	req.Model = d.Model
//	if d.Multimodal { ... }
package router
