// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv model.Conversation) ([]byte, error) {
	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "id: %d\n", conv.ID)
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(conv.Title))
		if conv.CreatedAt != "" {
			fmt.Fprintf(&sb, "date: %s\n", conv.CreatedAt)
		}
		if conv.UpdatedAt != "" {
			fmt.Fprintf(&sb, "updated: %s\n", conv.UpdatedAt)
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(conv.Messages))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: dischat\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(conv.Title))
	if len(conv.Messages) == 0 {
		sb.WriteString("*No messages.*\n")
		return []byte(sb.String()), nil
	}

	for i, msg := range conv.Messages {
		label := msg.Sender.DisplayName()
		if t := msg.Time(); e.options.IncludeTimestamps && !t.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(t))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		for _, f := range msg.AttachedFiles {
			fmt.Fprintf(&sb, "> Attachment: %s (%s)\n", f.Name, util.FormatFileSize(f.Size))
		}
		if msg.HasAttachments() {
			sb.WriteString("\n")
		}

		sb.WriteString(replyText(msg, e.options))
		sb.WriteString("\n\n")

		if len(msg.SearchResults) > 0 {
			sb.WriteString("**Sources**\n\n")
			for n, r := range msg.SearchResults {
				fmt.Fprintf(&sb, "%d. [%s](%s)\n", n+1, escapeMarkdown(r.Title), r.Link())
			}
			sb.WriteString("\n")
		}

		// Separator between messages (except last)
		if i < len(conv.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("---\n\n")
	fmt.Fprintf(&sb, "*Exported from DisChat on %s*\n", e.options.now().Format("January 2, 2006 at 3:04 PM"))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in titles
// and link text.
func escapeMarkdown(s string) string {
	return strings.NewReplacer(
		"#", "\\#",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
	).Replace(s)
}

// escapeYAML quotes a value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return "\"" + s + "\""
	}
	return s
}
