// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/dischat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete dischat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Provider ProviderConfig `toml:"provider" json:"provider"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	Sync     SyncConfig     `toml:"sync" json:"sync"`
	Search   SearchConfig   `toml:"search" json:"search"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Logging  LoggingConfig  `toml:"logging" json:"logging"`
}

// ProviderConfig selects the completion provider and request parameters.
type ProviderConfig struct {
	// Name is "groq" or "openrouter". Empty means use the stored choice.
	Name string `toml:"name" json:"name"`
	// APIKey overrides the key kept in local state when set.
	APIKey string `toml:"api_key" json:"api_key,omitempty"`
	// Model is the model used when a turn has no attachments.
	Model       string  `toml:"model" json:"model"`
	Temperature float64 `toml:"temperature" json:"temperature"`
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens"`
	// Referer and AppTitle are sent to providers that want attribution.
	Referer  string `toml:"referer" json:"referer"`
	AppTitle string `toml:"app_title" json:"app_title"`
}

// StorageConfig selects where local state is kept.
type StorageConfig struct {
	// Driver is "file", "sqlite" or "bolt".
	Driver string `toml:"driver" json:"driver"`
	// Path overrides the default location under the config directory.
	Path string `toml:"path" json:"path"`
}

// SyncConfig controls mirroring conversations to a remote store.
type SyncConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Backend is "mongo" or "dir".
	Backend  string `toml:"backend" json:"backend"`
	MongoURI string `toml:"mongo_uri" json:"mongo_uri,omitempty"`
	Database string `toml:"database" json:"database"`
	// Dir is the shared directory used by the "dir" backend.
	Dir string `toml:"dir" json:"dir"`
	// UserID scopes the remote collection. Empty means a generated guest id.
	UserID string `toml:"user_id" json:"user_id"`
}

// SearchConfig configures the web search gateway.
type SearchConfig struct {
	InstantURL        string  `toml:"instant_url" json:"instant_url"`
	ProxyURL          string  `toml:"proxy_url" json:"proxy_url"`
	ResultsURL        string  `toml:"results_url" json:"results_url"`
	TimeoutSecs       int     `toml:"timeout_secs" json:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	MaxResults        int     `toml:"max_results" json:"max_results"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Theme is a glamour style name or "auto".
	Theme string `toml:"theme" json:"theme"`
	// ShowThinking expands reasoning segments instead of collapsing them.
	ShowThinking bool `toml:"show_thinking" json:"show_thinking"`
	WordWrap     int  `toml:"word_wrap" json:"word_wrap"`
	// PlainText disables markdown rendering.
	PlainText bool `toml:"plain_text" json:"plain_text"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
	// Dir holds log files. Empty logs to stderr.
	Dir  string `toml:"dir" json:"dir"`
	Keep int    `toml:"keep" json:"keep"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Provider: ProviderConfig{
			Temperature: 0.7,
			MaxTokens:   1024,
			Referer:     "https://github.com/jeranaias/dischat",
			AppTitle:    "DisChat",
		},
		Storage: StorageConfig{
			Driver: "file",
		},
		Sync: SyncConfig{
			Backend:  "mongo",
			Database: "dischat",
		},
		Search: SearchConfig{
			InstantURL:        "https://api.duckduckgo.com/",
			ProxyURL:          "https://api.allorigins.win/raw",
			ResultsURL:        "https://html.duckduckgo.com/html/",
			TimeoutSecs:       15,
			RequestsPerSecond: 1,
			MaxResults:        5,
		},
		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 80,
		},
		Logging: LoggingConfig{
			Level: "warn",
			Keep:  10,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the dischat configuration directory path.
// DISCHAT_HOME overrides the default ~/.dischat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("DISCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".dischat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StatePath returns the local state location for the configured driver.
func (c *Config) StatePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	switch c.Storage.Driver {
	case "sqlite":
		return filepath.Join(dir, "state.db"), nil
	case "bolt":
		return filepath.Join(dir, "state.bolt"), nil
	default:
		return filepath.Join(dir, "state.json"), nil
	}
}

// HistoryPath returns the REPL line history file.
func HistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files may hold API keys and should be 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv reads ~/.dischat/.env and ./.env into the process environment.
// Variables that are already set are never overwritten.
func LoadDotEnv() {
	var files []string
	if dir, err := ConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	files = append(files, ".env")
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", f, err)
		}
	}
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	LoadDotEnv()

	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish applies env overrides, migration, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# dischat configuration file\n")
	sb.WriteString("# Generated by dischat - edit with care\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// SECURITY: 0600 so a configured API key stays private
	if err := util.AtomicWriteFileWithDir(path, []byte(sb.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Provider.Name != "" {
		valid := map[string]bool{"groq": true, "openrouter": true}
		if !valid[strings.ToLower(c.Provider.Name)] {
			errs = append(errs, ValidationError{
				Field:   "provider.name",
				Message: fmt.Sprintf("invalid provider '%s', must be one of: groq, openrouter", c.Provider.Name),
			})
		}
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "provider.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %v", c.Provider.Temperature),
		})
	}
	if c.Provider.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "provider.max_tokens",
			Message: fmt.Sprintf("must be positive, got %d", c.Provider.MaxTokens),
		})
	}

	validDrivers := map[string]bool{"file": true, "sqlite": true, "bolt": true}
	if !validDrivers[c.Storage.Driver] {
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: file, sqlite, bolt", c.Storage.Driver),
		})
	}

	validBackends := map[string]bool{"mongo": true, "dir": true}
	if !validBackends[c.Sync.Backend] {
		errs = append(errs, ValidationError{
			Field:   "sync.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: mongo, dir", c.Sync.Backend),
		})
	}
	if c.Sync.Enabled && c.Sync.Backend == "mongo" && c.Sync.MongoURI == "" {
		errs = append(errs, ValidationError{
			Field:   "sync.mongo_uri",
			Message: "required when sync is enabled with the mongo backend",
		})
	}
	if c.Sync.Enabled && c.Sync.Backend == "dir" && c.Sync.Dir == "" {
		errs = append(errs, ValidationError{
			Field:   "sync.dir",
			Message: "required when sync is enabled with the dir backend",
		})
	}

	for field, raw := range map[string]string{
		"search.instant_url": c.Search.InstantURL,
		"search.proxy_url":   c.Search.ProxyURL,
		"search.results_url": c.Search.ResultsURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL '%s'", raw)})
		}
	}
	if c.Search.RequestsPerSecond <= 0 {
		errs = append(errs, ValidationError{
			Field:   "search.requests_per_second",
			Message: "must be positive",
		})
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > 20 {
		errs = append(errs, ValidationError{
			Field:   "search.max_results",
			Message: fmt.Sprintf("must be 1-20, got %d", c.Search.MaxResults),
		})
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s'", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return errs
	}
	return nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Provider.Temperature == 0 {
		c.Provider.Temperature = d.Provider.Temperature
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = d.Provider.MaxTokens
	}
	if c.Provider.AppTitle == "" {
		c.Provider.AppTitle = d.Provider.AppTitle
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = d.Storage.Driver
	}
	if c.Sync.Backend == "" {
		c.Sync.Backend = d.Sync.Backend
	}
	if c.Sync.Database == "" {
		c.Sync.Database = d.Sync.Database
	}
	if c.Search.InstantURL == "" {
		c.Search.InstantURL = d.Search.InstantURL
	}
	if c.Search.ProxyURL == "" {
		c.Search.ProxyURL = d.Search.ProxyURL
	}
	if c.Search.ResultsURL == "" {
		c.Search.ResultsURL = d.Search.ResultsURL
	}
	if c.Search.TimeoutSecs == 0 {
		c.Search.TimeoutSecs = d.Search.TimeoutSecs
	}
	if c.Search.RequestsPerSecond == 0 {
		c.Search.RequestsPerSecond = d.Search.RequestsPerSecond
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = d.Search.MaxResults
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Keep == 0 {
		c.Logging.Keep = d.Logging.Keep
	}
}

// Migrate handles migration from old configuration formats to new ones.
func (c *Config) Migrate() error {
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	c.Sync.Backend = strings.ToLower(c.Sync.Backend)

	// "json" was the original name of the file driver
	if c.Storage.Driver == "json" {
		c.Storage.Driver = "file"
	}
	// "firestore" configs predate the mongo backend
	if c.Sync.Backend == "firestore" {
		c.Sync.Backend = "mongo"
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - DISCHAT_PROVIDER: overrides provider.name
//   - DISCHAT_API_KEY: overrides provider.api_key
//   - DISCHAT_MODEL: overrides provider.model
//   - DISCHAT_STORAGE_DRIVER: overrides storage.driver
//   - DISCHAT_SYNC: set to "1" or "true" to enable sync
//   - DISCHAT_SYNC_BACKEND: overrides sync.backend
//   - DISCHAT_MONGO_URI: overrides sync.mongo_uri
//   - DISCHAT_SYNC_DIR: overrides sync.dir
//   - DISCHAT_USER_ID: overrides sync.user_id
//   - DISCHAT_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DISCHAT_PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv("DISCHAT_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("DISCHAT_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("DISCHAT_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("DISCHAT_SYNC"); v != "" {
		c.Sync.Enabled = parseBool(v)
	}
	if v := os.Getenv("DISCHAT_SYNC_BACKEND"); v != "" {
		c.Sync.Backend = v
	}
	if v := os.Getenv("DISCHAT_MONGO_URI"); v != "" {
		c.Sync.MongoURI = v
	}
	if v := os.Getenv("DISCHAT_SYNC_DIR"); v != "" {
		c.Sync.Dir = v
	}
	if v := os.Getenv("DISCHAT_USER_ID"); v != "" {
		c.Sync.UserID = v
	}
	if v := os.Getenv("DISCHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "provider.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks a dotted key down the struct tree.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation, sorted.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	sort.Strings(keys)
	return keys
}

// Clone creates a copy of the configuration. Config holds only value
// fields so a struct copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON representation with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	if safe.Sync.MongoURI != "" {
		safe.Sync.MongoURI = redactURI(safe.Sync.MongoURI)
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// redactURI strips the password from a connection string.
func redactURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "REDACTED")
	}
	return u.String()
}
