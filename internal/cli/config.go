// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for dischat.
//
// Command: config [subcommand]
//
// Subcommands:
//
//	show (default)      Display current configuration, secrets redacted
//	get <key>           Print one value (dot notation)
//	set <key> <value>   Set and save a value
//	keys                List every settable key
//	path                Show configuration file path
//
// Examples:
//
//	dischat config get provider.model
//	dischat config set provider.name openrouter
//	dischat config set sync.enabled true
//	dischat config set ui.show_thinking true
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/dischat/internal/config"
)

// secretKeys are never printed by "config get".
var secretKeys = map[string]bool{
	"provider.api_key": true,
	"sync.mongo_uri":   true,
}

// HandleConfig runs the config command against cfg, saving on set.
func HandleConfig(cfg *config.Config, args Args, out io.Writer) error {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		if args.JSON {
			_, err := fmt.Fprintln(out, cfg.String())
			return err
		}
		return showConfig(cfg, out)

	case "get":
		if args.ConfigKey == "" {
			return ErrMissingArgument("key", "dischat config get provider.model")
		}
		val, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return &ValidationError{Field: "key", Value: args.ConfigKey, Reason: err.Error(), Example: "dischat config keys"}
		}
		if secretKeys[strings.ToLower(args.ConfigKey)] && fmt.Sprint(val) != "" {
			val = "[REDACTED]"
		}
		if args.JSON {
			return WriteJSON(out, map[string]interface{}{"key": args.ConfigKey, "value": val})
		}
		_, err = fmt.Fprintln(out, val)
		return err

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return ErrMissingArgument("key and value", "dischat config set provider.temperature 0.3")
		}
		if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
			return &ValidationError{Field: "key", Value: args.ConfigKey, Reason: err.Error(), Example: "dischat config keys"}
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		_, err := fmt.Fprintf(out, "%s %s updated\n", SuccessStyle.Render("[OK]"), args.ConfigKey)
		return err

	case "keys":
		for _, k := range config.GetAllKeys() {
			if _, err := fmt.Fprintln(out, k); err != nil {
				return err
			}
		}
		return nil

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, path)
		return err

	default:
		return &ValidationError{
			Field:   "subcommand",
			Value:   args.Subcommand,
			Reason:  "unknown config subcommand",
			Example: "dischat config [show|get|set|keys|path]",
		}
	}
}

func showConfig(cfg *config.Config, out io.Writer) error {
	safe := cfg.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	if safe.Sync.MongoURI != "" {
		safe.Sync.MongoURI = "[REDACTED]"
	}

	fmt.Fprintln(out, TitleStyle.Render("Configuration"))
	var nested []string
	for _, key := range config.GetAllKeys() {
		if !strings.Contains(key, ".") {
			printConfigValue(out, safe, key)
			continue
		}
		nested = append(nested, key)
	}

	var section string
	for _, key := range nested {
		head, _, _ := strings.Cut(key, ".")
		if head != section {
			section = head
			fmt.Fprintln(out)
			fmt.Fprintln(out, TitleStyle.Render("["+section+"]"))
		}
		printConfigValue(out, safe, key)
	}

	if path, err := config.ConfigPathTOML(); err == nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, DimStyle.Render("File: "+path))
	}
	return nil
}

func printConfigValue(out io.Writer, cfg *config.Config, key string) {
	val, err := cfg.Get(key)
	if err != nil {
		return
	}
	fmt.Fprintf(out, "  %s %v\n", RenderLabel(key, 28), val)
}
