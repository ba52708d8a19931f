// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxTitleLength bounds stored titles, in runes.
const MaxTitleLength = 200

var errBadTimestamp = errors.New("must be an ISO-8601 timestamp")

// timestamp accepts empty values and anything ParseTime understands.
var timestamp = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if ParseTime(s).IsZero() {
		return errBadTimestamp
	}
	return nil
})

// Validate checks a conversation record before it is written to storage.
func (c Conversation) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required, validation.Min(1)),
		validation.Field(&c.Title, validation.RuneLength(0, MaxTitleLength)),
		validation.Field(&c.CreatedAt, timestamp),
		validation.Field(&c.UpdatedAt, timestamp),
		validation.Field(&c.Messages),
	)
}

// Validate checks a single message.
func (m Message) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Sender, validation.Required, validation.In(RoleUser, RoleAssistant)),
		validation.Field(&m.Timestamp, timestamp),
		validation.Field(&m.AttachedFiles),
	)
}

// Validate checks an attachment descriptor.
func (a Attachment) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Type, validation.Required),
		validation.Field(&a.Size, validation.Min(int64(0))),
	)
}
