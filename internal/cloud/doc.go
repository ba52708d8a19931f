// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud sends chat completion requests to an OpenAI-compatible
// provider.
//
// One Client is bound to one provider and API key. Requests carry either
// plain text or multi-part content (text plus image data URLs); the reply
// is the text of the first choice. There are no retries and no client-side
// timeout beyond the caller's context.
//
// # Key Types
//
//   - Client: completion transport for a provider
//   - Request, Message, Part: provider-neutral request shape
//   - ProviderError: a non-success response, carrying the provider's message
//
// # Usage
//
//	client := cloud.New(provider.Get(provider.Groq), apiKey, cloud.Options{})
//	text, err := client.Complete(ctx, cloud.Request{
//	    Model:    "llama3-70b-8192",
//	    Messages: []cloud.Message{cloud.NewUserMessage("Hello")},
//	})
//
// # Security
//
// API keys are never logged; a short SHA-256 fingerprint identifies the key
// in log output instead.
package cloud
