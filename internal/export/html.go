// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/util"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a single self-contained HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

var (
	htmlCodeBlockRegex  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	htmlInlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv model.Conversation) ([]byte, error) {
	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}
	title := html.EscapeString(conv.Title)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", title)
	sb.WriteString("<meta name=\"generator\" content=\"dischat\">\n")
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s\">\n<div class=\"container\">\n", theme)

	sb.WriteString("<header>\n")
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", title)
	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "<p class=\"meta\">#%d &middot; Created %s &middot; %d messages</p>\n",
			conv.ID, formatTimestamp(conv.Created()), len(conv.Messages))
	}
	sb.WriteString("</header>\n<main>\n")

	for _, msg := range conv.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	if len(conv.Messages) == 0 {
		sb.WriteString("<p class=\"meta\">No messages.</p>\n")
	}

	sb.WriteString("</main>\n")
	fmt.Fprintf(&sb, "<footer>Exported from <strong>DisChat</strong> on %s</footer>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<section class=\"message %s\">\n", html.EscapeString(msg.Sender.String()))
	fmt.Fprintf(&sb, "<div class=\"who\">%s", html.EscapeString(msg.Sender.DisplayName()))
	if t := msg.Time(); e.options.IncludeTimestamps && !t.IsZero() {
		fmt.Fprintf(&sb, " <time datetime=\"%s\">%s</time>", t.Format(time.RFC3339), formatShortTimestamp(t))
	}
	sb.WriteString("</div>\n")

	if msg.HasAttachments() {
		sb.WriteString("<ul class=\"files\">\n")
		for _, f := range msg.AttachedFiles {
			fmt.Fprintf(&sb, "<li>%s (%s)</li>\n", html.EscapeString(f.Name), util.FormatFileSize(f.Size))
		}
		sb.WriteString("</ul>\n")
	}

	sb.WriteString("<div class=\"body\">\n")
	sb.WriteString(formatContent(replyText(msg, e.options)))
	sb.WriteString("\n</div>\n")

	if len(msg.SearchResults) > 0 {
		sb.WriteString("<ol class=\"sources\">\n")
		for _, r := range msg.SearchResults {
			fmt.Fprintf(&sb, "<li><a href=\"%s\" rel=\"noopener noreferrer\">%s</a></li>\n",
				html.EscapeString(r.Link()), html.EscapeString(r.Title))
		}
		sb.WriteString("</ol>\n")
	}

	sb.WriteString("</section>\n")
	return sb.String()
}

// formatContent escapes text and turns fenced code, inline code and blank
// line separated paragraphs into HTML.
// SECURITY: everything is escaped before any markup is added
func formatContent(content string) string {
	content = html.EscapeString(content)

	// Code blocks are swapped for placeholders so paragraph splitting
	// leaves their blank lines alone.
	blocks := make(map[string]string)
	content = htmlCodeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := htmlCodeBlockRegex.FindStringSubmatch(match)
		lang := ""
		if parts[1] != "" {
			lang = fmt.Sprintf(" class=\"language-%s\"", parts[1])
		}
		key := fmt.Sprintf("\x00%d\x00", len(blocks))
		blocks[key] = fmt.Sprintf("<pre><code%s>%s</code></pre>", lang, strings.TrimRight(parts[2], "\n"))
		return "\n\n" + key + "\n\n"
	})

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if block, ok := blocks[para]; ok {
			out = append(out, block)
			continue
		}
		para = htmlInlineCodeRegex.ReplaceAllString(para, "<code>$1</code>")
		out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>\n")+"</p>")
	}
	return strings.Join(out, "\n")
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const htmlCSS = `<style>
* { box-sizing: border-box; margin: 0; padding: 0; }
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
body.dark { --bg: #1e1f22; --panel: #2b2d31; --text: #dbdee1; --muted: #949ba4; --accent: #5865f2; --user: #383a40; }
body.light { --bg: #f2f3f5; --panel: #ffffff; --text: #2e3338; --muted: #5c5e66; --accent: #5865f2; --user: #e3e5e8; }
body { background: var(--bg); color: var(--text); }
.container { max-width: 860px; margin: 0 auto; padding: 32px 16px; }
header { border-bottom: 2px solid var(--accent); margin-bottom: 24px; padding-bottom: 12px; }
.meta, footer, time, .files { color: var(--muted); font-size: 0.85em; }
.message { background: var(--panel); border-radius: 8px; margin-bottom: 16px; padding: 16px; }
.message.user { background: var(--user); }
.who { font-weight: 600; margin-bottom: 8px; }
.body p { margin-bottom: 8px; }
pre { background: #111214; color: #e6e6e6; border-radius: 6px; margin: 8px 0; overflow-x: auto; padding: 12px; }
code { font-family: "Fira Code", Menlo, Consolas, monospace; font-size: 0.9em; }
.files, .sources { margin: 8px 0 8px 24px; }
a { color: var(--accent); }
footer { margin-top: 32px; text-align: center; }
</style>
`
