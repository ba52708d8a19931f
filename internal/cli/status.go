// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation for dischat.
//
// Command: status
//
// Status Sections:
//
//	Provider:  provider, model, whether a key is configured
//	Storage:   local driver and path, conversation count, active chat
//	Sync:      remote backend, user id, attached or not
//
// Flags:
//
//	--json              Output in JSON format
package cli

import (
	"fmt"

	"github.com/jeranaias/dischat/internal/config"
)

// StatusInfo is the --json shape of the status command.
type StatusInfo struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	HasAPIKey     bool   `json:"has_api_key"`
	Fingerprint   string `json:"key_fingerprint,omitempty"`
	StorageDriver string `json:"storage_driver"`
	StatePath     string `json:"state_path"`
	Conversations int    `json:"conversations"`
	ActiveID      int    `json:"active_id"`
	SyncBackend   string `json:"sync_backend,omitempty"`
	SyncAttached  bool   `json:"sync_attached"`
	UserID        string `json:"user_id"`
	ConfigPath    string `json:"config_path"`
}

// collectStatus gathers a StatusInfo from the running app.
func (r *Runner) collectStatus() StatusInfo {
	cfg := r.App.Config()
	info := StatusInfo{
		Provider:      r.App.Provider().Name,
		Model:         r.App.Model(),
		HasAPIKey:     r.App.HasAPIKey(),
		StorageDriver: cfg.Storage.Driver,
		Conversations: r.App.Store().Len(),
		ActiveID:      r.App.Store().ActiveID(),
		SyncAttached:  r.App.SyncEnabled(),
		UserID:        r.App.UserID(),
	}
	if info.HasAPIKey {
		info.Fingerprint = r.App.KeyFingerprint()
	}
	if cfg.Sync.Enabled {
		info.SyncBackend = cfg.Sync.Backend
	}
	if p, err := cfg.StatePath(); err == nil {
		info.StatePath = p
	}
	if p, err := config.ConfigPathTOML(); err == nil {
		info.ConfigPath = p
	}
	return info
}

// Status prints provider, storage and sync state.
func (r *Runner) Status() error {
	info := r.collectStatus()
	if r.Args.JSON {
		return WriteJSON(r.Out, info)
	}

	key := r.Render.style("not set (run dischat setup)", WarningStyle.Render)
	if info.HasAPIKey {
		key = r.Render.style("set", SuccessStyle.Render) + " " + r.Render.style("("+info.Fingerprint+")", DimStyle.Render)
	}
	active := "none"
	if info.ActiveID > 0 {
		active = fmt.Sprintf("#%d", info.ActiveID)
	}
	sync := "off"
	switch {
	case info.SyncAttached:
		sync = r.Render.style(info.SyncBackend+" (attached)", SuccessStyle.Render)
	case info.SyncBackend != "":
		sync = r.Render.style(info.SyncBackend+" (unavailable, local only)", WarningStyle.Render)
	}

	r.printf("%s\n", r.Render.style("Provider", TitleStyle.Render))
	r.statusLine("Provider", info.Provider)
	r.statusLine("Model", info.Model)
	r.statusLine("API key", key)
	r.printf("\n%s\n", r.Render.style("Storage", TitleStyle.Render))
	r.statusLine("Driver", info.StorageDriver)
	r.statusLine("State", info.StatePath)
	r.statusLine("Conversations", fmt.Sprint(info.Conversations))
	r.statusLine("Active", active)
	r.printf("\n%s\n", r.Render.style("Sync", TitleStyle.Render))
	r.statusLine("Remote", sync)
	r.statusLine("User", info.UserID)
	r.statusLine("Config", info.ConfigPath)
	return nil
}

func (r *Runner) statusLine(label, value string) {
	if r.Render.opts.Plain {
		r.printf("  %-14s %s\n", label+":", value)
		return
	}
	r.printf("  %s %s\n", RenderLabel(label, 14), value)
}
