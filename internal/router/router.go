// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/provider"
)

// visionHints are substrings of model ids known to accept image parts.
var visionHints = []string{"scout", "vision", "gpt-4o", "claude"}

// Route selects the model for a turn and decides how it is encoded.
func Route(p *provider.Provider, chosen string, files []model.Attachment) Decision {
	mod := Classify(files)
	d := Decision{Modality: mod}

	switch mod {
	case ModalityImage:
		d.Model = p.VisionModel
		d.Reason = "image attachment requires vision model"
	case ModalityDocument:
		d.Model = p.DocumentModel
		d.Reason = "document attachment routed to document model"
	case ModalityMixed:
		if p.MixedModel != "" {
			d.Model = p.MixedModel
			d.Reason = "mixed attachments routed to combined model"
		} else {
			d.Model = p.VisionModel
			d.Reason = "mixed attachments require vision model"
		}
	default:
		d.Model = chosen
		d.Reason = "user selected model"
		if d.Model == "" || !p.HasModel(d.Model) {
			d.Model = p.DefaultModel()
			d.Reason = "provider default model"
		}
	}

	d.Multimodal = IsMultimodal(p, d.Model, mod.HasImages()) && mod.HasImages()
	d.Reasoning = IsReasoning(p, d.Model)
	return d
}

// IsMultimodal reports whether modelID accepts structured image parts.
// OpenRouter forwards image parts for any model when images are attached.
func IsMultimodal(p *provider.Provider, modelID string, hasImages bool) bool {
	if m, ok := p.Model(modelID); ok && m.Category == provider.CategoryVision {
		return true
	}
	id := strings.ToLower(modelID)
	for _, hint := range visionHints {
		if strings.Contains(id, hint) {
			return true
		}
	}
	return p.ID == provider.OpenRouter && hasImages
}

// IsReasoning reports whether modelID belongs to a reasoning family that
// wraps its intermediate thoughts in <think> tags.
func IsReasoning(p *provider.Provider, modelID string) bool {
	if m, ok := p.Model(modelID); ok && m.Category == provider.CategoryReasoning {
		return true
	}
	return strings.Contains(strings.ToLower(modelID), "deepseek")
}
