// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command table and argument parsing for dischat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdList
	CmdShow
	CmdDelete
	CmdFind
	CmdSearch
	CmdRegen
	CmdExport
	CmdSetup
	CmdConfig
	CmdStatus
	CmdVersion
	CmdHelp
)

var commandNames = map[Command]string{
	CmdChat:    "chat",
	CmdAsk:     "ask",
	CmdList:    "list",
	CmdShow:    "show",
	CmdDelete:  "delete",
	CmdFind:    "find",
	CmdSearch:  "search",
	CmdRegen:   "regen",
	CmdExport:  "export",
	CmdSetup:   "setup",
	CmdConfig:  "config",
	CmdStatus:  "status",
	CmdVersion: "version",
	CmdHelp:    "help",
}

// String returns the command name as typed on the command line.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "command(" + strconv.Itoa(int(c)) + ")"
}

// NeedsApp reports whether the command works on conversations or
// credentials and so needs an initialized app.
func (c Command) NeedsApp() bool {
	switch c {
	case CmdConfig, CmdVersion, CmdHelp:
		return false
	}
	return true
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	JSON     bool
	Model    string
	Provider string

	// Command-specific
	Query      string
	Files      []string
	ID         int
	Index      int // message index for regen; -1 is the last reply
	Output     string
	Format     string
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Yes        bool

	// Unknown holds an unrecognized command word.
	Unknown string

	// Raw args after the command word
	Raw []string
}

var argSpec = ArgSpec{
	Bool: []string{"quiet", "verbose", "json", "help", "yes", "version"},
	Aliases: map[string]string{
		"q": "quiet",
		"v": "verbose",
		"h": "help",
		"y": "yes",
		"m": "model",
		"p": "provider",
		"f": "file",
		"o": "output",
	},
}

const usageText = `dischat - chat with hosted LLMs from the terminal

Usage:
  dischat                          Start interactive chat (default)
  dischat chat                     Start interactive chat
  dischat ask "question"           Ask a single question in a new conversation
  dischat list                     List conversations, newest first
  dischat show <id>                Print a conversation
  dischat delete <id>              Delete a conversation
  dischat find <text>              Search conversation titles and messages
  dischat search <query>           Search the web and answer from the results
  dischat regen [index]            Regenerate a reply in the current conversation
  dischat export <id> [-o file]    Export a conversation (md, json, html)
  dischat setup                    Choose a provider and enter an API key
  dischat config [show|get|set]    View or change configuration
  dischat status                   Show provider, storage and sync state
  dischat version                  Show version information

Global Flags:
  -m, --model ID       Model for turns without attachments
  -p, --provider NAME  Provider for this run (groq, openrouter)
  -f, --file PATH      Attach a file (repeatable; ask and chat)
  -o, --output PATH    Export destination (format from extension)
  --format FMT         Export format: md, json, html
  --json               Output in JSON format
  -q, --quiet          Minimal output
  -v, --verbose        Debug logging

Chat Commands:
  /new                 Start a new conversation
  /list                List conversations
  /switch <id>         Open a conversation
  /delete <id>         Delete a conversation
  /regen [index]       Regenerate the last (or given) reply
  /search <query>      Search the web
  /attach <path>       Attach a file to the next message
  /model [id]          Show or choose the model
  /provider [name]     Show or choose the provider
  /thinking            Toggle display of model reasoning
  /copy                Copy the last code block to the clipboard
  /theme <name>        Set the color theme (default, dark, light)
  /help                Show chat commands
  /quit                Exit

Examples:
  dischat ask "What is the capital of France?"
  dischat ask "Describe this picture" --file photo.png
  dischat search golang generics
  dischat config set provider.temperature 0.3
  dischat export 3 -o chat.html

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("dischat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name) into a command and its
// arguments. Flags may appear anywhere on the line.
func ParseArgs(argv []string) (Command, Args) {
	p := NewArgParserWithSpec(argv, argSpec)

	args := Args{
		Quiet:    p.BoolFlag("quiet"),
		Verbose:  p.BoolFlag("verbose"),
		JSON:     p.BoolFlag("json"),
		Yes:      p.BoolFlag("yes"),
		Model:    p.Flag("model"),
		Provider: p.Flag("provider"),
		Files:    p.FlagValues("file"),
		Output:   p.Flag("output"),
		Format:   p.Flag("format"),
		Index:    -1,
		Raw:      p.PositionalFrom(1),
	}

	if p.BoolFlag("version") {
		return CmdVersion, args
	}
	if p.BoolFlag("help") {
		return CmdHelp, args
	}

	word := strings.ToLower(p.Subcommand())
	switch word {
	case "", "chat":
		return CmdChat, args

	case "ask":
		args.Query = JoinPositionalArgs(p, 1)
		return CmdAsk, args

	case "list", "ls":
		return CmdList, args

	case "show", "open":
		args.ID = parseID(p.Positional(1))
		return CmdShow, args

	case "delete", "rm":
		args.ID = parseID(p.Positional(1))
		return CmdDelete, args

	case "find":
		args.Query = JoinPositionalArgs(p, 1)
		return CmdFind, args

	case "search":
		args.Query = JoinPositionalArgs(p, 1)
		return CmdSearch, args

	case "regen", "regenerate":
		if s := p.Positional(1); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n >= 0 {
				args.Index = n
			}
		}
		return CmdRegen, args

	case "export":
		args.ID = parseID(p.Positional(1))
		return CmdExport, args

	case "setup", "login":
		args.Subcommand = p.Positional(1)
		return CmdSetup, args

	case "config":
		args.Subcommand = p.Positional(1)
		args.ConfigKey = p.Positional(2)
		args.ConfigVal = JoinPositionalArgs(p, 3)
		return CmdConfig, args

	case "status", "info":
		return CmdStatus, args

	case "version":
		return CmdVersion, args

	case "help":
		return CmdHelp, args

	default:
		args.Unknown = p.Subcommand()
		return CmdHelp, args
	}
}

// parseID returns a conversation id, or 0 when s is not a positive integer.
func parseID(s string) int {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
