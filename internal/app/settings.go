// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/logging"
	"github.com/jeranaias/dischat/internal/provider"
)

// =============================================================================
// PROVIDER AND CREDENTIALS
// =============================================================================

// SetProvider switches the completion provider and persists the choice.
// A chosen model outside the new catalogue is reset to its default.
func (a *App) SetProvider(name string) error {
	p, err := provider.Parse(name)
	if err != nil {
		return err
	}
	if err := a.local.SetProvider(p.ID.String()); err != nil {
		return fmt.Errorf("save provider: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.provider = p
	if !p.HasModel(a.model) {
		a.model = ""
	}
	a.rebuildLocked()
	log.Info().Str("provider", p.Name).Msg("provider changed")
	return nil
}

// SetAPIKey stores key for the active provider.
func (a *App) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrNoAPIKey
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// SECURITY: only the fingerprint is logged.
	if err := a.local.SetAPIKey(key, a.provider.ID.String()); err != nil {
		return fmt.Errorf("save API key: %w", err)
	}
	a.apiKey = key
	a.rebuildLocked()
	log.Info().Str("provider", a.provider.Name).Str("key", logging.Fingerprint(key)).Msg("API key updated")
	return nil
}

// SetCredentials switches provider and stores its key in one step.
func (a *App) SetCredentials(providerName, key string) error {
	if err := a.SetProvider(providerName); err != nil {
		return err
	}
	return a.SetAPIKey(key)
}

// KeyFingerprint identifies the configured key without revealing it.
func (a *App) KeyFingerprint() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return logging.Fingerprint(a.apiKey)
}

// SetModel chooses the model for turns without attachments. An empty id
// restores the provider default.
func (a *App) SetModel(id string) error {
	id = strings.TrimSpace(id)

	a.mu.Lock()
	defer a.mu.Unlock()
	if id != "" && !a.provider.HasModel(id) {
		return fmt.Errorf("%w: %q for %s", ErrUnknownModel, id, a.provider.Name)
	}
	a.model = id
	a.rebuildLocked()
	return nil
}

// =============================================================================
// PRESENTATION
// =============================================================================

// Theme returns the persisted color theme.
func (a *App) Theme() string {
	return a.local.Theme()
}

// SetTheme persists the color theme.
func (a *App) SetTheme(theme string) error {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return fmt.Errorf("theme name is empty")
	}
	return a.local.SetTheme(theme)
}

// SidebarCollapsed reports whether the conversation list is hidden.
func (a *App) SidebarCollapsed() bool {
	return a.local.SidebarCollapsed()
}

// ToggleSidebar flips and persists the conversation list visibility and
// returns the new collapsed state.
func (a *App) ToggleSidebar() (bool, error) {
	collapsed := !a.local.SidebarCollapsed()
	if err := a.local.SetSidebarCollapsed(collapsed); err != nil {
		return !collapsed, err
	}
	return collapsed, nil
}
