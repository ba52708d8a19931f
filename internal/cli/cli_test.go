// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dischat/internal/app"
	"github.com/jeranaias/dischat/internal/config"
	"github.com/jeranaias/dischat/internal/provider"
	"github.com/jeranaias/dischat/internal/store"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "flag with value",
			args:    []string{"export", "3", "--output", "chat.md"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("output") != "chat.md" {
					t.Errorf("Flag(output) = %q, want %q", p.Flag("output"), "chat.md")
				}
				if p.Positional(1) != "3" {
					t.Errorf("Positional(1) = %q, want %q", p.Positional(1), "3")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"ask", "--model=llama-3.3-70b-versatile", "hi"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("model") != "llama-3.3-70b-versatile" {
					t.Errorf("Flag(model) = %q", p.Flag("model"))
				}
			},
		},
		{
			name:    "equals true is a boolean",
			args:    []string{"list", "--json=true"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "trailing boolean flag",
			args:    []string{"list", "--json"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "multiple positional args",
			args:    []string{"search", "golang", "generics", "tutorial"},
			wantSub: "search",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 4 {
					t.Errorf("PositionalCount() = %d, want 4", p.PositionalCount())
				}
				joined := JoinPositionalArgs(p, 1)
				if joined != "golang generics tutorial" {
					t.Errorf("JoinPositionalArgs = %q", joined)
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"ask", "--", "--not-a-flag", "-x"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.HasFlag("not-a-flag") {
					t.Error("flag after -- should be positional")
				}
				if got := JoinPositionalArgs(p, 1); got != "--not-a-flag -x" {
					t.Errorf("JoinPositionalArgs = %q", got)
				}
			},
		},
		{
			name:    "lone dash is positional",
			args:    []string{"ask", "-"},
			wantSub: "ask",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "-" {
					t.Errorf("Positional(1) = %q, want -", p.Positional(1))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_RepeatableFlags(t *testing.T) {
	p := NewArgParserWithSpec(
		[]string{"ask", "-f", "a.png", "--file", "b.txt", "--file=c.pdf", "describe"},
		ArgSpec{Aliases: map[string]string{"f": "file"}},
	)

	assert.Equal(t, []string{"a.png", "b.txt", "c.pdf"}, p.FlagValues("file"))
	assert.Equal(t, "c.pdf", p.Flag("file"), "Flag returns the last value")
	assert.Equal(t, []string{"a.png", "b.txt", "c.pdf"}, p.FlagValues("-f"), "aliases resolve on lookup")
	assert.Equal(t, "describe", p.Positional(1))
}

func TestArgParser_DeclaredBoolKeepsPositional(t *testing.T) {
	spec := ArgSpec{Bool: []string{"json"}}

	p := NewArgParserWithSpec([]string{"ask", "--json", "question"}, spec)
	assert.True(t, p.BoolFlag("json"))
	assert.Equal(t, "question", p.Positional(1))

	// Without the declaration the next word is taken as the value
	p = NewArgParser([]string{"ask", "--json", "question"})
	assert.False(t, p.BoolFlag("json"))
	assert.Equal(t, "question", p.Flag("json"))
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{[]string{"list", "--limit", "5"}, 5},
		{[]string{"list", "--limit", "abc"}, 10},
		{[]string{"list"}, 10},
	}
	for _, tt := range tests {
		p := NewArgParser(tt.args)
		if got := p.FlagIntOrDefault("limit", 10); got != tt.want {
			t.Errorf("FlagIntOrDefault(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	if p.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", p.Subcommand())
	}
	if p.PositionalCount() != 0 {
		t.Errorf("PositionalCount() = %d, want 0", p.PositionalCount())
	}
	if got := p.PositionalFrom(3); len(got) != 0 {
		t.Errorf("PositionalFrom(3) = %v, want empty", got)
	}
}

func TestParseBoolString(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"YES", true, false},
		{"on", true, false},
		{"1", true, false},
		{"false", false, false},
		{"n", false, false},
		{"off", false, false},
		{"maybe", false, true},
		{"", false, true},
	}
	for _, tt := range tests {
		got, err := ParseBoolString(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBoolString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBoolString(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{"", 0, true},
		{"0", 0, true},
		{"-2", 0, true},
		{"three", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.input, "id")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntWithValidation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{
			name:    "no args starts chat",
			argv:    nil,
			wantCmd: CmdChat,
		},
		{
			name:    "ask joins the question",
			argv:    []string{"ask", "--json", "what", "is", "go"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.Equal(t, "what is go", a.Query)
			},
		},
		{
			name:    "ask with files",
			argv:    []string{"ask", "describe", "-f", "a.png", "--file", "b.txt"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "describe", a.Query)
				assert.Equal(t, []string{"a.png", "b.txt"}, a.Files)
			},
		},
		{
			name:    "global flags before command",
			argv:    []string{"-p", "openrouter", "-m", "openai/gpt-4o", "-q", "chat"},
			wantCmd: CmdChat,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "openrouter", a.Provider)
				assert.Equal(t, "openai/gpt-4o", a.Model)
				assert.True(t, a.Quiet)
			},
		},
		{
			name:    "ls alias",
			argv:    []string{"ls"},
			wantCmd: CmdList,
		},
		{
			name:    "show with hash id",
			argv:    []string{"show", "#3"},
			wantCmd: CmdShow,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, 3, a.ID)
			},
		},
		{
			name:    "open with bad id",
			argv:    []string{"open", "abc"},
			wantCmd: CmdShow,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, 0, a.ID)
			},
		},
		{
			name:    "delete with yes",
			argv:    []string{"rm", "7", "-y"},
			wantCmd: CmdDelete,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, 7, a.ID)
				assert.True(t, a.Yes)
			},
		},
		{
			name:    "regen defaults to last reply",
			argv:    []string{"regen"},
			wantCmd: CmdRegen,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, -1, a.Index)
			},
		},
		{
			name:    "regenerate with index",
			argv:    []string{"regenerate", "2"},
			wantCmd: CmdRegen,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, 2, a.Index)
			},
		},
		{
			name:    "export with output",
			argv:    []string{"export", "4", "-o", "out.md"},
			wantCmd: CmdExport,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, 4, a.ID)
				assert.Equal(t, "out.md", a.Output)
			},
		},
		{
			name:    "export with format",
			argv:    []string{"export", "4", "--format", "html"},
			wantCmd: CmdExport,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "html", a.Format)
				assert.Empty(t, a.Output)
			},
		},
		{
			name:    "setup with provider",
			argv:    []string{"login", "groq"},
			wantCmd: CmdSetup,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "groq", a.Subcommand)
			},
		},
		{
			name:    "config set joins the value",
			argv:    []string{"config", "set", "provider.app_title", "My", "Chat"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "set", a.Subcommand)
				assert.Equal(t, "provider.app_title", a.ConfigKey)
				assert.Equal(t, "My Chat", a.ConfigVal)
			},
		},
		{
			name:    "status",
			argv:    []string{"info"},
			wantCmd: CmdStatus,
		},
		{
			name:    "version flag",
			argv:    []string{"ask", "--version"},
			wantCmd: CmdVersion,
		},
		{
			name:    "help flag",
			argv:    []string{"-h"},
			wantCmd: CmdHelp,
		},
		{
			name:    "unknown command",
			argv:    []string{"lsit"},
			wantCmd: CmdHelp,
			validate: func(t *testing.T, a Args) {
				assert.Equal(t, "lsit", a.Unknown)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Fatalf("ParseArgs(%v) command = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestCommand_NeedsApp(t *testing.T) {
	for _, c := range []Command{CmdConfig, CmdVersion, CmdHelp} {
		if c.NeedsApp() {
			t.Errorf("%v.NeedsApp() = true, want false", c)
		}
	}
	for _, c := range []Command{CmdChat, CmdAsk, CmdList, CmdStatus, CmdSetup} {
		if !c.NeedsApp() {
			t.Errorf("%v.NeedsApp() = false, want true", c)
		}
	}
	if got := Command(99).String(); got != "command(99)" {
		t.Errorf("Command(99).String() = %q", got)
	}
}

// =============================================================================
// SUGGESTIONS (suggest.go)
// =============================================================================

func TestSuggestCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"lsit", "list"},
		{"serch", "search"},
		{"exprot", "export"},
		{"list", ""},
		{"x", ""},
		{"completelydifferent", ""},
	}
	for _, tt := range tests {
		if got := SuggestCommand(tt.input); got != tt.want {
			t.Errorf("SuggestCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuggestSlashCommand(t *testing.T) {
	assert.Equal(t, "/theme", SuggestSlashCommand("/them"))
	assert.Equal(t, "/search", SuggestSlashCommand("/serch"))
	assert.Equal(t, "", SuggestSlashCommand("/help"))
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"list", "list", 0},
		{"lsit", "list", 2},
	}
	for _, tt := range tests {
		if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

// =============================================================================
// ERRORS (errors.go)
// =============================================================================

type fakeNetErr struct{ timeout bool }

func (e fakeNetErr) Error() string   { return "net failure" }
func (e fakeNetErr) Timeout() bool   { return e.timeout }
func (e fakeNetErr) Temporary() bool { return false }

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", &ValidationError{Field: "id", Reason: "missing"}, ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "chat"}, ExitUsageError},
		{"no key", fmt.Errorf("send: %w", app.ErrNoAPIKey), ExitAuthError},
		{"not found", fmt.Errorf("%w: #3", store.ErrNotFound), ExitNotFoundError},
		{"no active chat", app.ErrNoActiveChat, ExitNotFoundError},
		{"unknown provider", provider.ErrUnknownProvider, ExitConfigError},
		{"unknown model", app.ErrUnknownModel, ExitConfigError},
		{"deadline", fmt.Errorf("completion failed: %w", context.DeadlineExceeded), ExitTimeoutError},
		{"net timeout", fakeNetErr{timeout: true}, ExitTimeoutError},
		{"net error", fmt.Errorf("wrap: %w", fakeNetErr{}), ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "file", Value: "x.bin", Reason: "unsupported type", Example: "use a PNG"}
	msg := err.Error()
	for _, want := range []string{"invalid file", "unsupported type", "(got: x.bin)", "Example: use a PNG"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

// =============================================================================
// HELPERS (helpers.go)
// =============================================================================

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, "-"},
		{now.Add(-30 * time.Second), "30s ago"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-50 * time.Hour), "2d ago"},
		{now.Add(time.Minute), "0s ago"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.t, now); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestFormatDurationShort(t *testing.T) {
	assert.Equal(t, "250ms", formatDurationShort(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDurationShort(1500*time.Millisecond))
	assert.Equal(t, "2m5s", formatDurationShort(125*time.Second))
}

// =============================================================================
// THEMES (styles.go)
// =============================================================================

func TestLookupTheme(t *testing.T) {
	for _, name := range ThemeNames() {
		th, ok := LookupTheme(strings.ToUpper(name))
		if !ok || th.Name != name {
			t.Errorf("LookupTheme(%q) = %v, %v", strings.ToUpper(name), th.Name, ok)
		}
	}
	if _, ok := LookupTheme("solarized"); ok {
		t.Error("LookupTheme(solarized) should fail")
	}
	assert.Equal(t, []string{"dark", "default", "light"}, ThemeNames())
}

func TestThemeFor(t *testing.T) {
	tests := []struct {
		configured, persisted, want string
	}{
		{"auto", "light", "light"},
		{"dark", "light", "dark"},
		{"", "", DefaultThemeName},
		{"auto", "neon", DefaultThemeName},
	}
	for _, tt := range tests {
		if got := themeFor(tt.configured, tt.persisted).Name; got != tt.want {
			t.Errorf("themeFor(%q, %q) = %q, want %q", tt.configured, tt.persisted, got, tt.want)
		}
	}
}

// =============================================================================
// CONFIG COMMAND (config.go)
// =============================================================================

func TestHandleConfig_GetRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Provider.APIKey = "gsk_secret"
	cfg.Provider.Model = "llama-3.3-70b-versatile"

	var out bytes.Buffer
	require.NoError(t, HandleConfig(cfg, Args{Subcommand: "get", ConfigKey: "provider.model"}, &out))
	assert.Equal(t, "llama-3.3-70b-versatile\n", out.String())

	out.Reset()
	require.NoError(t, HandleConfig(cfg, Args{Subcommand: "get", ConfigKey: "provider.api_key"}, &out))
	assert.Equal(t, "[REDACTED]\n", out.String())

	err := HandleConfig(cfg, Args{Subcommand: "get", ConfigKey: "nope.key"}, &out)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestHandleConfig_SetSaves(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DISCHAT_HOME", dir)

	cfg := config.Default()
	var out bytes.Buffer
	require.NoError(t, HandleConfig(cfg, Args{Subcommand: "set", ConfigKey: "provider.max_tokens", ConfigVal: "2048"}, &out))
	assert.Equal(t, 2048, cfg.Provider.MaxTokens)
	assert.Contains(t, out.String(), "provider.max_tokens updated")

	path, err := config.ConfigPathTOML()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_tokens = 2048")
	assert.Equal(t, filepath.Join(dir, filepath.Base(path)), path)
}

func TestHandleConfig_Errors(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer

	err := HandleConfig(cfg, Args{Subcommand: "set", ConfigKey: "provider.model"}, &out)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = HandleConfig(cfg, Args{Subcommand: "frobnicate"}, &out)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleConfig_Keys(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, HandleConfig(config.Default(), Args{Subcommand: "keys"}, &out))
	keys := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Contains(t, keys, "provider.model")
	assert.Contains(t, keys, "ui.theme")
}
