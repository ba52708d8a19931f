// args.go - Argument parsing shared by every dischat command.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgSpec describes the flags a parser should treat specially.
type ArgSpec struct {
	// Bool lists flags that never take a value, so "--json hello" keeps
	// "hello" as a positional argument.
	Bool []string

	// Aliases maps short names to long names ("f" -> "file").
	Aliases map[string]string
}

// ArgParser splits raw arguments into flags and positionals.
// It handles:
//   - Long flags: --flag value or --flag=value
//   - Short flags: -f value
//   - Boolean flags: --flag (no value needed)
//   - Repeated flags: --file a --file b
//   - "--" ends flag parsing; everything after it is positional
type ArgParser struct {
	subcommand string              // First positional arg
	flags      map[string][]string // String flags in order of appearance
	boolFlags  map[string]bool
	positional []string
	raw        []string
	spec       ArgSpec
}

// NewArgParser parses raw without any declared boolean flags or aliases.
//
// Example:
//
//	args := NewArgParser([]string{"show", "--limit", "5", "--since=2024-01-01"})
//	args.Subcommand()   // "show"
//	args.Flag("limit")  // "5"
//	args.Flag("since")  // "2024-01-01"
func NewArgParser(raw []string) *ArgParser {
	return NewArgParserWithSpec(raw, ArgSpec{})
}

// NewArgParserWithSpec parses raw according to spec.
func NewArgParserWithSpec(raw []string, spec ArgSpec) *ArgParser {
	p := &ArgParser{
		flags:      make(map[string][]string),
		boolFlags:  make(map[string]bool),
		positional: make([]string, 0),
		raw:        raw,
		spec:       spec,
	}

	isBool := make(map[string]bool, len(spec.Bool))
	for _, name := range spec.Bool {
		isBool[name] = true
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		// A lone "-" is a positional (conventionally stdin)
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		name = p.canonical(name)

		if hasValue {
			if v, err := ParseBoolString(value); err == nil && (isBool[name] || value == "true" || value == "false") {
				p.boolFlags[name] = v
			} else {
				p.flags[name] = append(p.flags[name], value)
			}
			continue
		}

		if !isBool[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = append(p.flags[name], raw[i+1])
			i++
			continue
		}
		p.boolFlags[name] = true
	}

	if len(p.positional) > 0 {
		p.subcommand = p.positional[0]
	}
	return p
}

func (p *ArgParser) canonical(name string) string {
	if long, ok := p.spec.Aliases[name]; ok {
		return long
	}
	return name
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the last value given for a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	vals := p.FlagValues(name)
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

// FlagValues returns every value given for a repeatable flag.
func (p *ArgParser) FlagValues(name string) []string {
	return p.flags[p.canonical(strings.TrimLeft(name, "-"))]
}

// FlagOrDefault returns the flag value or a default if not found.
func (p *ArgParser) FlagOrDefault(name, defaultValue string) string {
	if val := p.Flag(name); val != "" {
		return val
	}
	return defaultValue
}

// FlagInt returns the flag value as an integer.
func (p *ArgParser) FlagInt(name string) (int, error) {
	val := p.Flag(name)
	if val == "" {
		return 0, fmt.Errorf("flag %s not found", name)
	}
	return strconv.Atoi(val)
}

// FlagIntOrDefault returns the flag value as an integer, or defaultValue
// when it is missing or malformed.
func (p *ArgParser) FlagIntOrDefault(name string, defaultValue int) int {
	val, err := p.FlagInt(name)
	if err != nil {
		return defaultValue
	}
	return val
}

// BoolFlag returns the value of a boolean flag; false if absent.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[p.canonical(strings.TrimLeft(name, "-"))]
}

// Positional returns the positional argument at index, or "".
// Index 0 is the subcommand.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns all positional arguments starting from index.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return []string{}
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// HasFlag reports whether the flag was given in either form.
func (p *ArgParser) HasFlag(name string) bool {
	name = p.canonical(strings.TrimLeft(name, "-"))
	_, hasString := p.flags[name]
	_, hasBool := p.boolFlags[name]
	return hasString || hasBool
}

// Raw returns the original raw arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// =============================================================================
// HELPER FUNCTIONS FOR COMMON ARG PATTERNS
// =============================================================================

// ParseIntWithValidation parses a positive integer named fieldName.
func ParseIntWithValidation(s string, fieldName string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", fieldName)
	}

	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", fieldName, err)
	}

	if val <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", fieldName, val)
	}

	return val, nil
}

// ParseBoolString parses a boolean from various string representations.
// Accepts: true/false, yes/no, y/n, 1/0, on/off (case-insensitive)
func ParseBoolString(s string) (bool, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	switch s {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}

// JoinPositionalArgs joins positional arguments from startIndex into one
// string, for commands that take a multi-word query or message.
func JoinPositionalArgs(parser *ArgParser, startIndex int) string {
	return strings.Join(parser.PositionalFrom(startIndex), " ")
}
