// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Terminal rendering of conversations and replies.
//
// USABILITY: Markdown rendering for better CLI experience
package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/orchestrator"
	"github.com/jeranaias/dischat/internal/util"
)

// =============================================================================
// RENDERER
// =============================================================================

// RenderOptions controls how replies are drawn.
type RenderOptions struct {
	Theme Theme
	// Width is the markdown word-wrap column; 0 uses the terminal width.
	Width int
	// Plain disables markdown rendering and colors, for pipes.
	Plain bool
	// ShowThinking prints reasoning segments instead of collapsing them.
	ShowThinking bool
}

// Renderer turns messages into terminal text.
type Renderer struct {
	md           *glamour.TermRenderer
	opts         RenderOptions
	ShowThinking bool
}

// NewRenderer builds a renderer. If glamour cannot be initialized output
// falls back to plain text.
func NewRenderer(opts RenderOptions) *Renderer {
	r := &Renderer{opts: opts, ShowThinking: opts.ShowThinking}
	if opts.Plain {
		return r
	}

	width := opts.Width
	if width <= 0 {
		width = GetTerminalWidth() - 4
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(opts.Theme.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Debug().Err(err).Msg("markdown renderer unavailable, using plain text")
		return r
	}
	r.md = md
	return r
}

// SetTheme rebuilds the markdown renderer for theme.
func (r *Renderer) SetTheme(theme Theme) {
	opts := r.opts
	opts.Theme = theme
	opts.ShowThinking = r.ShowThinking
	*r = *NewRenderer(opts)
}

// Markdown renders content, returning it unchanged when rendering is off
// or fails.
func (r *Renderer) Markdown(content string) string {
	if r.md == nil {
		return strings.TrimRight(content, "\n") + "\n"
	}
	rendered, err := r.md.Render(content)
	if err != nil {
		return content + "\n"
	}
	return rendered
}

func (r *Renderer) style(s string, render func(...string) string) string {
	if r.opts.Plain {
		return s
	}
	return render(s)
}

// =============================================================================
// MESSAGES
// =============================================================================

// Message renders one message with its header, attachments, reasoning and
// sources.
func (r *Renderer) Message(msg model.Message) string {
	var sb strings.Builder

	header := msg.Sender.DisplayName()
	if msg.IsUser() {
		header = r.style(header, UserStyle.Render)
	} else {
		header = r.style(header, AssistantStyle.Render)
	}
	sb.WriteString(header)
	if t := msg.Time(); !t.IsZero() {
		sb.WriteString(" " + r.style(t.Local().Format("15:04"), DimStyle.Render))
	}
	sb.WriteString("\n")

	for _, f := range msg.AttachedFiles {
		sb.WriteString(r.style("  + "+describeAttachment(f), DimStyle.Render) + "\n")
	}

	if msg.IsUser() {
		sb.WriteString(msg.Text + "\n")
		return sb.String()
	}

	reasoning := orchestrator.ParseReasoning(msg.Text)
	sb.WriteString(r.Reasoning(reasoning))
	sb.WriteString(r.Markdown(reasoning.Main))
	sb.WriteString(r.Sources(msg.SearchResults))
	return sb.String()
}

// Reasoning renders a reply's reasoning segment: the full text when
// ShowThinking is set, otherwise a one-line summary.
func (r *Renderer) Reasoning(rs orchestrator.Reasoning) string {
	if !rs.Found {
		return ""
	}
	summary := ThinkingSummary(rs.Seconds)
	if !r.ShowThinking {
		return r.style("> "+summary+" (/thinking to show)", DimStyle.Render) + "\n"
	}
	var sb strings.Builder
	sb.WriteString(r.style("> "+summary, DimStyle.Render) + "\n")
	for _, line := range strings.Split(rs.Thinking, "\n") {
		sb.WriteString(r.style("  "+line, DimStyle.Render) + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// ThinkingSummary is the collapsed reasoning label.
func ThinkingSummary(seconds int) string {
	if seconds == 1 {
		return "Thought for 1 second"
	}
	return "Thought for " + strconv.Itoa(seconds) + " seconds"
}

// Sources renders search results as a numbered list.
func (r *Renderer) Sources(results []model.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(r.style("Sources:", TitleStyle.Render) + "\n")
	for i, res := range results {
		title := strings.TrimSpace(res.Title)
		if title == "" {
			title = res.Link()
		}
		fmt.Fprintf(&sb, "  [%d] %s\n", i+1, title)
		sb.WriteString("      " + r.style(res.Link(), DimStyle.Render) + "\n")
	}
	return sb.String()
}

// Conversation renders a full transcript.
func (r *Renderer) Conversation(conv model.Conversation) string {
	var sb strings.Builder
	sb.WriteString(r.style(conv.Title, TitleStyle.Render))
	sb.WriteString(r.style(fmt.Sprintf("  #%d", conv.ID), DimStyle.Render) + "\n")
	if len(conv.Messages) == 0 {
		sb.WriteString(r.style("(no messages)", DimStyle.Render) + "\n")
	}
	for i, msg := range conv.Messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(r.Message(msg))
	}
	return sb.String()
}

// =============================================================================
// LISTINGS
// =============================================================================

const (
	listTitleWidth   = 32
	listPreviewWidth = 36
)

// ConversationList renders one line per conversation, marking activeID.
func (r *Renderer) ConversationList(convs []model.Conversation, activeID int, now time.Time) string {
	if len(convs) == 0 {
		return r.style("No conversations yet. Start one with 'dischat chat'.", DimStyle.Render) + "\n"
	}

	idWidth := len(strconv.Itoa(convs[0].ID))
	for _, c := range convs {
		if w := len(strconv.Itoa(c.ID)); w > idWidth {
			idWidth = w
		}
	}

	var sb strings.Builder
	for _, c := range convs {
		marker := "  "
		if c.ID == activeID {
			marker = r.style("* ", HighlightStyle.Render)
		}
		id := fmt.Sprintf("%*d", idWidth, c.ID)
		title := util.PadWidth(util.TruncateWidth(c.Title, listTitleWidth), listTitleWidth)
		age := fmt.Sprintf("%-8s", formatAge(c.Created(), now))
		preview := util.TruncateWidth(c.Preview(200), listPreviewWidth)

		sb.WriteString(marker)
		sb.WriteString(r.style(id, DimStyle.Render) + "  ")
		sb.WriteString(title + "  ")
		sb.WriteString(r.style(age, DimStyle.Render) + "  ")
		sb.WriteString(r.style(preview, DimStyle.Render))
		sb.WriteString("\n")
	}
	return sb.String()
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

var codeBlockRegex = regexp.MustCompile("(?s)```[^\\n`]*\\n(.*?)```")

// LastCodeBlock returns the body of the last fenced code block in text.
func LastCodeBlock(text string) (string, bool) {
	matches := codeBlockRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	return strings.TrimRight(matches[len(matches)-1][1], "\n"), true
}

// LastCodeBlockIn searches assistant messages from newest to oldest.
func LastCodeBlockIn(conv model.Conversation) (string, bool) {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if !msg.IsAssistant() {
			continue
		}
		if code, ok := LastCodeBlock(orchestrator.ParseReasoning(msg.Text).Main); ok {
			return code, true
		}
	}
	return "", false
}
