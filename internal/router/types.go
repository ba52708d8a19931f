// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"fmt"

	"github.com/jeranaias/dischat/internal/model"
)

// ============================================================================
// MODALITY TYPE
// ============================================================================

// Modality classifies the attachments of a turn.
type Modality int

const (
	// ModalityNone means no attachments.
	ModalityNone Modality = iota
	// ModalityImage means only images.
	ModalityImage
	// ModalityDocument means only documents.
	ModalityDocument
	// ModalityMixed means both images and documents.
	ModalityMixed
)

// String returns the human-readable name of the modality.
func (m Modality) String() string {
	switch m {
	case ModalityNone:
		return "none"
	case ModalityImage:
		return "image"
	case ModalityDocument:
		return "document"
	case ModalityMixed:
		return "mixed"
	default:
		return fmt.Sprintf("Modality(%d)", int(m))
	}
}

// HasImages reports whether the modality includes images.
func (m Modality) HasImages() bool {
	return m == ModalityImage || m == ModalityMixed
}

// HasDocuments reports whether the modality includes documents.
func (m Modality) HasDocuments() bool {
	return m == ModalityDocument || m == ModalityMixed
}

// Classify inspects attachments and returns their combined modality.
// Attachments that are neither images nor recognised documents count as
// documents so their extracted text still reaches the model.
func Classify(files []model.Attachment) Modality {
	var images, docs bool
	for _, f := range files {
		if f.IsImage() {
			images = true
		} else {
			docs = true
		}
	}
	switch {
	case images && docs:
		return ModalityMixed
	case images:
		return ModalityImage
	case docs:
		return ModalityDocument
	default:
		return ModalityNone
	}
}

// ============================================================================
// DECISION
// ============================================================================

// Decision is the outcome of routing one turn.
type Decision struct {
	Model    string
	Modality Modality

	// Multimodal is true when the turn must be sent as structured parts.
	Multimodal bool

	// Reasoning is true for models that emit a <think> segment.
	Reasoning bool

	Reason string
}

// String returns a one-line description for logging.
func (d Decision) String() string {
	return fmt.Sprintf("%s (%s): %s", d.Model, d.Modality, d.Reason)
}
