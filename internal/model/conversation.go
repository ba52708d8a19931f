// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/dischat/internal/util"
)

// UntitledTitle is used for conversations that never received a title.
const UntitledTitle = "Untitled Chat"

// HistoryWindow is the number of prior messages sent with each request.
const HistoryWindow = 10

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a named chat. ID is the join key between local storage and
// the remote collection, where it is stored as a decimal string.
type Conversation struct {
	ID        int       `json:"id" bson:"-"`
	Title     string    `json:"title" bson:"title"`
	Messages  []Message `json:"messages" bson:"messages"`
	CreatedAt string    `json:"createdAt,omitempty" bson:"createdAt"`
	UpdatedAt string    `json:"updatedAt,omitempty" bson:"updatedAt"`
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// LastMessage returns the most recent message, if any.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// FirstUserMessage returns the text of the first user message.
func (c *Conversation) FirstUserMessage() string {
	for _, msg := range c.Messages {
		if msg.IsUser() {
			return msg.Text
		}
	}
	return ""
}

// Created parses CreatedAt. A missing value yields the zero time.
func (c *Conversation) Created() time.Time {
	return ParseTime(c.CreatedAt)
}

// Clone returns a deep copy whose message slice can be modified freely.
func (c Conversation) Clone() Conversation {
	out := c
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		for i, msg := range c.Messages {
			cp := msg
			if msg.SearchResults != nil {
				cp.SearchResults = append([]SearchResult(nil), msg.SearchResults...)
			}
			if msg.AttachedFiles != nil {
				cp.AttachedFiles = append([]Attachment(nil), msg.AttachedFiles...)
			}
			out.Messages[i] = cp
		}
	}
	return out
}

// Normalize fills fields that older or partial records may lack: createdAt
// defaults to now, the title to UntitledTitle and messages to an empty list.
// It reports whether anything changed.
func (c *Conversation) Normalize() bool {
	changed := false
	if c.CreatedAt == "" {
		c.CreatedAt = Now()
		changed = true
	}
	if strings.TrimSpace(c.Title) == "" {
		c.Title = UntitledTitle
		changed = true
	}
	if c.Messages == nil {
		c.Messages = []Message{}
		changed = true
	}
	return changed
}

// Matches reports whether the title or any message text contains query,
// ignoring case. An empty query matches everything.
func (c *Conversation) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(c.Title), q) {
		return true
	}
	for _, msg := range c.Messages {
		if strings.Contains(strings.ToLower(msg.Text), q) {
			return true
		}
	}
	return false
}

// Preview returns the first user message on one line, truncated for listings.
func (c *Conversation) Preview(maxRunes int) string {
	return util.TruncateRunes(util.SingleLine(c.FirstUserMessage()), maxRunes)
}

// =============================================================================
// LIST HELPERS
// =============================================================================

// NextID returns max(existing ids)+1, or 1 for an empty list.
//
// Two devices computing this offline can pick the same id; the remote store
// then keeps whichever write lands last.
func NextID(convs []Conversation) int {
	max := 0
	for _, c := range convs {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1
}

// IndexOf returns the position of id in convs, or -1.
func IndexOf(convs []Conversation, id int) int {
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// SortByCreatedDesc orders convs newest first. Records with equal or missing
// timestamps keep their relative order.
func SortByCreatedDesc(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].Created().After(convs[j].Created())
	})
}

// FallbackTitle derives a title without a model call: the first three
// space-separated words, with "..." appended when there were more. The
// result never exceeds MaxTitleLength runes.
func FallbackTitle(text string) string {
	words, more := util.FirstWords(text, 3)
	title := strings.Join(words, " ")
	if more {
		title += "..."
	}
	return ClampTitle(title)
}

// ClampTitle cuts title down to MaxTitleLength runes.
func ClampTitle(title string) string {
	return util.TruncateRunes(title, MaxTitleLength)
}
