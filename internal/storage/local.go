// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/model"
)

// =============================================================================
// KEYS
// =============================================================================

// Persisted local state keys. The names match the keys older clients wrote
// so existing state carries over.
const (
	KeyChats            = "chats"
	KeyCurrentChatID    = "currentChatId"
	KeyAPIKey           = "apiKey"
	KeyAPIProvider      = "apiProvider"
	KeyTheme            = "color-theme"
	KeySidebarCollapsed = "sidebar-collapsed"
	KeyHasSeenLogin     = "hasSeenLogin"
	KeyGuestUserID      = "guestUserId"

	// keyLegacyGroqAPIKey predates multi-provider support.
	keyLegacyGroqAPIKey = "groqApiKey"
)

// DefaultProvider is used when no provider was ever stored.
const DefaultProvider = "groq"

// DefaultTheme is used when no theme was ever stored.
const DefaultTheme = "default"

// =============================================================================
// LOCAL STATE
// =============================================================================

// Local gives typed access to the persisted local state.
type Local struct {
	b Backend
}

// NewLocal wraps a backend.
func NewLocal(b Backend) *Local {
	return &Local{b: b}
}

// Close closes the underlying backend.
func (l *Local) Close() error {
	return l.b.Close()
}

// get reads a key, logging and swallowing backend errors.
func (l *Local) get(key string) (string, bool) {
	v, ok, err := l.b.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read local state")
		return "", false
	}
	return v, ok
}

// Conversations returns the stored conversation list. Absent or corrupt
// data yields an empty list.
func (l *Local) Conversations() []model.Conversation {
	raw, ok := l.get(KeyChats)
	if !ok || raw == "" {
		return []model.Conversation{}
	}
	var convs []model.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		log.Warn().Err(err).Msg("stored conversations are corrupt, starting empty")
		return []model.Conversation{}
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	return convs
}

// SaveConversations replaces the stored conversation list.
func (l *Local) SaveConversations(convs []model.Conversation) error {
	if convs == nil {
		convs = []model.Conversation{}
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	return l.b.Set(KeyChats, string(data))
}

// CurrentChatID returns the stored active conversation id.
func (l *Local) CurrentChatID() (int, bool) {
	raw, ok := l.get(KeyCurrentChatID)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetCurrentChatID stores the active conversation id. Zero clears it.
func (l *Local) SetCurrentChatID(id int) error {
	if id == 0 {
		return l.b.Delete(KeyCurrentChatID)
	}
	return l.b.Set(KeyCurrentChatID, strconv.Itoa(id))
}

// APIKey returns the stored API key.
func (l *Local) APIKey() string {
	v, _ := l.get(KeyAPIKey)
	return v
}

// SetAPIKey stores the API key and the provider it belongs to.
func (l *Local) SetAPIKey(key, provider string) error {
	if err := l.b.Set(KeyAPIKey, key); err != nil {
		return err
	}
	return l.b.Set(KeyAPIProvider, provider)
}

// Provider returns the stored provider name, defaulting to groq.
func (l *Local) Provider() string {
	if v, ok := l.get(KeyAPIProvider); ok && v != "" {
		return v
	}
	return DefaultProvider
}

// SetProvider stores the provider name.
func (l *Local) SetProvider(name string) error {
	return l.b.Set(KeyAPIProvider, name)
}

// MigrateLegacyKey moves a key stored under the old single-provider name to
// the generalized key/provider pair and removes the old entry. It reports
// whether a migration happened.
func (l *Local) MigrateLegacyKey() (bool, error) {
	legacy, ok := l.get(keyLegacyGroqAPIKey)
	if !ok {
		return false, nil
	}
	if legacy != "" && l.APIKey() == "" {
		if err := l.SetAPIKey(legacy, "groq"); err != nil {
			return false, err
		}
	}
	if err := l.b.Delete(keyLegacyGroqAPIKey); err != nil {
		return false, err
	}
	return true, nil
}

// Theme returns the stored color theme.
func (l *Local) Theme() string {
	if v, ok := l.get(KeyTheme); ok && v != "" {
		return v
	}
	return DefaultTheme
}

// SetTheme stores the color theme.
func (l *Local) SetTheme(theme string) error {
	return l.b.Set(KeyTheme, theme)
}

// SidebarCollapsed returns the stored sidebar flag.
func (l *Local) SidebarCollapsed() bool {
	v, _ := l.get(KeySidebarCollapsed)
	return v == "true"
}

// SetSidebarCollapsed stores the sidebar flag.
func (l *Local) SetSidebarCollapsed(collapsed bool) error {
	return l.b.Set(KeySidebarCollapsed, strconv.FormatBool(collapsed))
}

// FirstRun reports whether the welcome flow has never been completed.
func (l *Local) FirstRun() bool {
	v, _ := l.get(KeyHasSeenLogin)
	return v != "true"
}

// MarkSeen records that the welcome flow was completed.
func (l *Local) MarkSeen() error {
	return l.b.Set(KeyHasSeenLogin, "true")
}

// GuestUserID returns a stable per-install user id, generating one on
// first use.
func (l *Local) GuestUserID() string {
	if v, ok := l.get(KeyGuestUserID); ok && v != "" {
		return v
	}
	id := "guest-" + uuid.NewString()
	if err := l.b.Set(KeyGuestUserID, id); err != nil {
		log.Warn().Err(err).Msg("failed to persist guest user id")
	}
	return id
}
