// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for dischat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ProviderConfig: completion provider, model and request parameters
//   - StorageConfig: local state driver (file, sqlite, bolt)
//   - SyncConfig: optional remote mirror (mongo, dir)
//   - SearchConfig: web search endpoints and throttling
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (DISCHAT_*), including values from .env files
//   - ~/.dischat/config.toml
//   - ~/.dischat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("config")
//	}
//	p, _ := provider.Parse(cfg.Provider.Name)
package config
