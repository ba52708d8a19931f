// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/jeranaias/dischat/internal/model"
)

// Merge reconciles the remote and local lists once at sync attach time.
//
// Remote entries win whenever an id exists on both sides. Local entries the
// remote lacks are normalized and returned in uploads so the caller can push
// them. The merged list is sorted newest first by createdAt. Neither input
// is modified.
func Merge(remote, local []model.Conversation) (merged, uploads []model.Conversation) {
	seen := make(map[int]bool, len(remote))
	merged = make([]model.Conversation, 0, len(remote)+len(local))

	for _, c := range remote {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		merged = append(merged, c.Clone())
	}

	for _, c := range local {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		cp := c.Clone()
		cp.Normalize()
		merged = append(merged, cp)
		uploads = append(uploads, cp.Clone())
	}

	model.SortByCreatedDesc(merged)
	return merged, uploads
}

// NeedsRerender is the count heuristic used to decide whether a displayed
// transcript is far enough from the stored one to redraw it: only a
// difference of more than one message counts.
func NeedsRerender(displayed, stored int) bool {
	d := displayed - stored
	if d < 0 {
		d = -d
	}
	return d > 1
}
