// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnknownProvider is returned by Parse for names outside the catalogue.
var ErrUnknownProvider = errors.New("unknown provider")

// =============================================================================
// PROVIDER ID
// =============================================================================

// ID identifies a completion provider.
type ID int

const (
	// Groq is the default provider.
	Groq ID = iota
	// OpenRouter fronts many upstream model vendors.
	OpenRouter
)

// String returns the persisted name of the provider.
func (id ID) String() string {
	switch id {
	case Groq:
		return "groq"
	case OpenRouter:
		return "openrouter"
	default:
		return fmt.Sprintf("provider(%d)", int(id))
	}
}

// =============================================================================
// MODEL CATALOGUE
// =============================================================================

// Category tags what a model is suited for.
type Category string

const (
	CategoryVision    Category = "vision"
	CategoryReasoning Category = "reasoning"
	CategoryGeneral   Category = "general"
)

// Model is one entry in a provider's catalogue.
type Model struct {
	ID       string
	Name     string
	Category Category
}

// =============================================================================
// PROVIDER
// =============================================================================

// Provider carries everything needed to address one completion service.
type Provider struct {
	ID   ID
	Name string

	// BaseURL is the OpenAI-compatible API root; Endpoint is the full
	// chat completions URL under it.
	BaseURL  string
	Endpoint string

	Models []Model

	// Fixed model choices for attachment-driven and auxiliary requests.
	VisionModel    string
	DocumentModel  string
	MixedModel     string
	TitleModel     string
	GroundingModel string

	// KeyURL is where users obtain an API key.
	KeyURL string

	// extraHeaders adds provider-specific request headers.
	extraHeaders func(h http.Header, opts HeaderOptions)
}

// HeaderOptions supplies values some providers send with every request.
type HeaderOptions struct {
	Referer string
	AppName string
}

// Headers returns the full header set for a request authenticated with key.
func (p *Provider) Headers(key string, opts HeaderOptions) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	if key != "" {
		h.Set("Authorization", "Bearer "+key)
	}
	if p.extraHeaders != nil {
		p.extraHeaders(h, opts)
	}
	return h
}

// DefaultModel is the first catalogue entry.
func (p *Provider) DefaultModel() string {
	if len(p.Models) == 0 {
		return ""
	}
	return p.Models[0].ID
}

// Model looks up a catalogue entry by id.
func (p *Provider) Model(id string) (Model, bool) {
	for _, m := range p.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// HasModel reports whether id is in the catalogue.
func (p *Provider) HasModel(id string) bool {
	_, ok := p.Model(id)
	return ok
}

// ModelsIn returns the catalogue entries with the given category.
func (p *Provider) ModelsIn(c Category) []Model {
	var out []Model
	for _, m := range p.Models {
		if m.Category == c {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// LOOKUP
// =============================================================================

// Get returns the provider for id. Unknown ids fall back to Groq.
func Get(id ID) *Provider {
	switch id {
	case OpenRouter:
		return &openRouter
	default:
		return &groq
	}
}

// All returns every provider in display order.
func All() []*Provider {
	return []*Provider{&groq, &openRouter}
}

// Parse resolves a provider by name, case-insensitively.
func Parse(name string) (*Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "groq":
		return &groq, nil
	case "openrouter":
		return &openRouter, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// Names lists the provider names accepted by Parse.
func Names() []string {
	return []string{Groq.String(), OpenRouter.String()}
}
