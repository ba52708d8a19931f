// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role is the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// roleLegacyAI is how older clients stored assistant messages.
	roleLegacyAI Role = "ai"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "DisChat"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// UnmarshalJSON accepts the legacy "ai" sender and maps it to RoleAssistant.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if Role(s) == roleLegacyAI {
		s = string(RoleAssistant)
	}
	*r = Role(s)
	return nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat turn.
type Message struct {
	Sender    Role   `json:"sender" bson:"sender"`
	Text      string `json:"text" bson:"text"`
	Timestamp string `json:"timestamp" bson:"timestamp"`

	// Only on assistant messages produced by the search path
	SearchResults []SearchResult `json:"searchResults,omitempty" bson:"searchResults,omitempty"`

	// Only on user messages with uploads
	AttachedFiles []Attachment `json:"attachedFiles,omitempty" bson:"attachedFiles,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(sender Role, text string) Message {
	return Message{
		Sender:    sender,
		Text:      text,
		Timestamp: Now(),
	}
}

// IsUser reports whether the message was sent by the user.
func (m Message) IsUser() bool {
	return m.Sender == RoleUser
}

// IsAssistant reports whether the message was produced by the model.
func (m Message) IsAssistant() bool {
	return m.Sender == RoleAssistant
}

// HasAttachments reports whether the message carries uploaded files.
func (m Message) HasAttachments() bool {
	return len(m.AttachedFiles) > 0
}

// Time parses the message timestamp. A zero time is returned when the
// timestamp is missing or malformed.
func (m Message) Time() time.Time {
	return ParseTime(m.Timestamp)
}

// =============================================================================
// SEARCH RESULT
// =============================================================================

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title" bson:"title"`
	URL     string `json:"url" bson:"url"`
	Snippet string `json:"snippet" bson:"snippet"`
}

// Link returns URL as an absolute link. Scraped results often carry a bare
// host and path.
func (r SearchResult) Link() string {
	if strings.HasPrefix(r.URL, "http") {
		return r.URL
	}
	return "https://" + r.URL
}

// =============================================================================
// ATTACHMENT
// =============================================================================

// Attachment is an uploaded file. Data holds the file as a base64 data URL.
type Attachment struct {
	Name          string `json:"name" bson:"name"`
	Type          string `json:"type" bson:"type"`
	Size          int64  `json:"size" bson:"size"`
	Data          string `json:"data,omitempty" bson:"data,omitempty"`
	ExtractedText string `json:"extractedText,omitempty" bson:"extractedText,omitempty"`
}

// IsImage reports whether the attachment is an image.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.Type, "image/")
}

// IsPDF reports whether the attachment is a PDF document.
func (a Attachment) IsPDF() bool {
	return a.Type == "application/pdf"
}

// IsDocument reports whether the attachment is a text-bearing document.
func (a Attachment) IsDocument() bool {
	return a.IsPDF() || strings.HasPrefix(a.Type, "text/")
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

// Now returns the current time as an ISO-8601 string in UTC with
// millisecond precision.
func Now() string {
	return FormatTime(time.Now())
}

// FormatTime renders t in the persisted timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseTime parses a persisted timestamp. Malformed or empty values yield the
// zero time.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
