// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "net/http"

var groq = Provider{
	ID:       Groq,
	Name:     "Groq",
	BaseURL:  "https://api.groq.com/openai/v1",
	Endpoint: "https://api.groq.com/openai/v1/chat/completions",
	KeyURL:   "https://console.groq.com/keys",
	Models: []Model{
		{ID: "meta-llama/llama-4-scout-17b-16e-instruct", Name: "Llama 4 Scout (Vision)", Category: CategoryVision},
		{ID: "deepseek-r1-distill-llama-70b", Name: "DeepSeek R1 Distill 70B", Category: CategoryReasoning},
		{ID: "llama3-70b-8192", Name: "Llama 3 70B", Category: CategoryGeneral},
		{ID: "llama3-8b-8192", Name: "Llama 3 8B", Category: CategoryGeneral},
		{ID: "gemma2-9b-it", Name: "Gemma 2 9B", Category: CategoryGeneral},
	},
	VisionModel:    "meta-llama/llama-4-scout-17b-16e-instruct",
	DocumentModel:  "deepseek-r1-distill-llama-70b",
	TitleModel:     "llama3-8b-8192",
	GroundingModel: "llama3-70b-8192",
}

var openRouter = Provider{
	ID:       OpenRouter,
	Name:     "OpenRouter",
	BaseURL:  "https://openrouter.ai/api/v1",
	Endpoint: "https://openrouter.ai/api/v1/chat/completions",
	KeyURL:   "https://openrouter.ai/keys",
	Models: []Model{
		{ID: "openai/gpt-4o", Name: "GPT-4o (Vision)", Category: CategoryVision},
		{ID: "deepseek/deepseek-r1", Name: "DeepSeek R1", Category: CategoryReasoning},
		{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Category: CategoryGeneral},
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini", Category: CategoryGeneral},
		{ID: "google/gemini-flash-1.5", Name: "Gemini Flash 1.5", Category: CategoryGeneral},
		{ID: "meta-llama/llama-3.1-405b-instruct", Name: "Llama 3.1 405B", Category: CategoryGeneral},
		{ID: "meta-llama/llama-3.1-70b-instruct", Name: "Llama 3.1 70B", Category: CategoryGeneral},
		{ID: "meta-llama/llama-3.1-8b-instruct", Name: "Llama 3.1 8B", Category: CategoryGeneral},
	},
	VisionModel:    "openai/gpt-4o",
	DocumentModel:  "openai/gpt-4o",
	MixedModel:     "openai/gpt-4o",
	TitleModel:     "meta-llama/llama-3.1-8b-instruct",
	GroundingModel: "meta-llama/llama-3.1-70b-instruct",
	extraHeaders: func(h http.Header, opts HeaderOptions) {
		// Attribution headers used for OpenRouter app rankings
		if opts.Referer != "" {
			h.Set("HTTP-Referer", opts.Referer)
		}
		if opts.AppName != "" {
			h.Set("X-Title", opts.AppName)
		}
	},
}
