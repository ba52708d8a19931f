// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/dischat/internal/model"
)

// =============================================================================
// INTERFACE
// =============================================================================

// Remote is a per-user conversation collection.
type Remote interface {
	// LoadAll returns every conversation in the collection.
	LoadAll(ctx context.Context) ([]model.Conversation, error)
	// Upsert writes one conversation, stamping updatedAt.
	Upsert(ctx context.Context, conv model.Conversation) error
	// Delete removes one conversation by id.
	Delete(ctx context.Context, id int) error
	// Watch streams change batches until ctx is done; the channel is then closed.
	Watch(ctx context.Context) (<-chan []Change, error)
	Close(ctx context.Context) error
}

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown sync backend")

// =============================================================================
// CHANGE EVENTS
// =============================================================================

// ChangeKind is the type of a realtime change.
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Removed
)

// String returns the name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change is one realtime event. For Removed only Conversation.ID is set.
type Change struct {
	Kind         ChangeKind
	Conversation model.Conversation
}

// =============================================================================
// DOCUMENT HELPERS
// =============================================================================

// DocumentID converts a conversation id to its remote key.
func DocumentID(id int) string {
	return strconv.Itoa(id)
}

// ParseDocumentID converts a remote key back to a conversation id.
func ParseDocumentID(key string) (int, error) {
	id, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("non-numeric document id %q: %w", key, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", key)
	}
	return id, nil
}

// prepare fills the fields every remote document carries and stamps
// updatedAt with the current time.
func prepare(conv model.Conversation) model.Conversation {
	if conv.Title == "" {
		conv.Title = model.UntitledTitle
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	now := model.Now()
	if conv.CreatedAt == "" {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	return conv
}

// sanitizeUserID keeps collection and directory names safe.
func sanitizeUserID(uid string) string {
	var sb strings.Builder
	for _, r := range uid {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "anonymous"
	}
	return sb.String()
}

// =============================================================================
// FACTORY
// =============================================================================

// Options selects and configures a backend.
type Options struct {
	Backend  string
	MongoURI string
	Database string
	Dir      string
	UserID   string
}

// Open connects the configured backend for the given user.
func Open(ctx context.Context, opts Options) (Remote, error) {
	switch opts.Backend {
	case "mongo":
		return OpenMongo(ctx, opts.MongoURI, opts.Database, opts.UserID)
	case "dir":
		return OpenDir(opts.Dir, opts.UserID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
