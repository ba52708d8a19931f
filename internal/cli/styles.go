// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles and color themes for dischat output.
//
// USABILITY: TTY detection for proper terminal handling
//
// Colors are disabled for non-TTY output and when NO_COLOR is set;
// FORCE_COLOR overrides detection.
package cli

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// init configures lipgloss color profile based on terminal capabilities.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
	ApplyTheme(DefaultThemeName)
}

// =============================================================================
// THEMES
// =============================================================================

// DefaultThemeName follows the terminal background.
const DefaultThemeName = "default"

// Theme is a named palette for chat output.
type Theme struct {
	Name string

	Accent    lipgloss.Color
	User      lipgloss.Color
	Assistant lipgloss.Color
	Muted     lipgloss.Color

	// Glamour is the markdown style: "dark", "light" or "auto".
	Glamour string
}

var themes = map[string]Theme{
	"default": {
		Name:      "default",
		Accent:    lipgloss.Color("63"), // Blurple
		User:      lipgloss.Color("39"),
		Assistant: lipgloss.Color("42"),
		Muted:     lipgloss.Color("244"),
		Glamour:   "auto",
	},
	"dark": {
		Name:      "dark",
		Accent:    lipgloss.Color("111"),
		User:      lipgloss.Color("117"),
		Assistant: lipgloss.Color("120"),
		Muted:     lipgloss.Color("242"),
		Glamour:   "dark",
	},
	"light": {
		Name:      "light",
		Accent:    lipgloss.Color("55"),
		User:      lipgloss.Color("25"),
		Assistant: lipgloss.Color("28"),
		Muted:     lipgloss.Color("240"),
		Glamour:   "light",
	},
}

// ThemeNames lists the available themes, sorted.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupTheme returns the theme called name, ignoring case.
func LookupTheme(name string) (Theme, bool) {
	t, ok := themes[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// ApplyTheme switches the shared styles to the named theme and returns it.
// Unknown names fall back to the default theme.
func ApplyTheme(name string) Theme {
	t, ok := LookupTheme(name)
	if !ok {
		t = themes[DefaultThemeName]
	}

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	UserStyle = lipgloss.NewStyle().Bold(true).Foreground(t.User)
	AssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Assistant)
	PromptStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	DimStyle = lipgloss.NewStyle().Foreground(t.Muted)
	LabelStyle = lipgloss.NewStyle().Foreground(t.Muted).Width(20)
	return t
}

// GlamourStyle resolves the "auto" markdown style against the terminal
// background.
func (t Theme) GlamourStyle() string {
	if t.Glamour != "auto" {
		return t.Glamour
	}
	if !ColorsEnabled() {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// Themed; set by ApplyTheme
	TitleStyle     lipgloss.Style
	UserStyle      lipgloss.Style
	AssistantStyle lipgloss.Style
	PromptStyle    lipgloss.Style
	DimStyle       lipgloss.Style
	LabelStyle     lipgloss.Style

	// ValueStyle is used for regular values and text
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// WarningStyle is used for warnings and cautions
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// SeparatorStyle is used for visual separators
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// HighlightStyle marks the active conversation in listings
	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))
)

// =============================================================================
// HELPER FUNCTIONS FOR COMMON PATTERNS
// =============================================================================

// RenderSeparator renders a horizontal separator line of the specified width.
// Default width is 70 characters if not specified.
func RenderSeparator(width ...int) string {
	w := 70
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("-", w))
}

// RenderSeparatorAdaptive renders a separator sized to the terminal.
func RenderSeparatorAdaptive() string {
	width := GetTerminalWidth()
	if width > 4 {
		width -= 4
	}
	if width > 80 {
		width = 80
	}
	return RenderSeparator(width)
}

// RenderLabel renders a label with consistent width.
func RenderLabel(label string, width ...int) string {
	if len(width) > 0 && width[0] > 0 {
		return LabelStyle.Width(width[0]).Render(label)
	}
	return LabelStyle.Render(label)
}
