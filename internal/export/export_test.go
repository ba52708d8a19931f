// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/dischat/internal/model"
)

var exportTime = time.Date(2025, 3, 1, 15, 4, 0, 0, time.UTC)

func sampleConversation() model.Conversation {
	return model.Conversation{
		ID:        7,
		Title:     "Capitals: Europe",
		CreatedAt: "2025-03-01T14:00:00.000Z",
		Messages: []model.Message{
			{
				Sender: model.RoleUser,
				Text:   "What is the capital of France?",
				AttachedFiles: []model.Attachment{
					{Name: "map.png", Type: "image/png", Size: 2048},
				},
			},
			{
				Sender: model.RoleAssistant,
				Text:   "<think>Easy one.</think>Paris.\n\n```sh\necho <paris>\n```",
				SearchResults: []model.SearchResult{
					{Title: "Paris", URL: "en.wikipedia.org/wiki/Paris"},
				},
			},
		},
	}
}

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = exportTime
	return opts
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"", ".md"},
		{"markdown", ".md"},
		{".json", ".json"},
		{"HTML", ".html"},
	}
	for _, tt := range tests {
		exp, err := ForFormat(tt.format, nil)
		if err != nil {
			t.Fatalf("ForFormat(%q) error = %v", tt.format, err)
		}
		if exp.FileExtension() != tt.ext {
			t.Errorf("ForFormat(%q).FileExtension() = %q, want %q", tt.format, exp.FileExtension(), tt.ext)
		}
	}

	if _, err := ForFormat("pdf", nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ForFormat(pdf) error = %v, want ErrUnknownFormat", err)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]string{
		"chat.json":  "json",
		"chat.HTML":  "html",
		"chat.md":    "md",
		"chat":       "md",
		"notes.text": "md",
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"id: 7\n",
		"title: \"Capitals: Europe\"\n",
		"messages: 2\n",
		"generator: dischat\n",
		"# Capitals: Europe\n",
		"### You\n",
		"### DisChat\n",
		"> Attachment: map.png (2 KB)\n",
		"Paris.\n",
		"1. [Paris](https://en.wikipedia.org/wiki/Paris)\n",
		"*Exported from DisChat on March 1, 2025 at 3:04 PM*\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "Easy one.") {
		t.Error("reasoning should be stripped by default")
	}
}

func TestMarkdownExport_Reasoning(t *testing.T) {
	opts := testOptions()
	opts.IncludeReasoning = true
	opts.IncludeMetadata = false

	out, err := NewMarkdownExporter(opts).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	md := string(out)
	if !strings.Contains(md, "<think>Easy one.</think>") {
		t.Error("reasoning should be kept when requested")
	}
	if strings.HasPrefix(md, "---") {
		t.Error("frontmatter written without IncludeMetadata")
	}
}

func TestMarkdownExport_Empty(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(model.Conversation{ID: 1, Title: "Untitled Chat"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(string(out), "*No messages.*") {
		t.Errorf("empty export = %q", out)
	}
}

func TestJSONExport_RoundTrip(t *testing.T) {
	conv := sampleConversation()
	out, err := NewJSONExporter(nil).Export(conv)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var back model.Conversation
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.ID != conv.ID || back.Title != conv.Title || len(back.Messages) != 2 {
		t.Errorf("round trip = %+v", back)
	}
	if back.Messages[1].Text != conv.Messages[1].Text {
		t.Error("JSON export should keep reasoning")
	}
}

func TestHTMLExport(t *testing.T) {
	opts := testOptions()
	opts.Theme = "light"
	out, err := NewHTMLExporter(opts).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	page := string(out)

	for _, want := range []string{
		"<title>Capitals: Europe</title>",
		"<body class=\"light\">",
		"<section class=\"message user\">",
		"<li>map.png (2 KB)</li>",
		"<p>Paris.</p>",
		"<pre><code class=\"language-sh\">echo &lt;paris&gt;</code></pre>",
		"<a href=\"https://en.wikipedia.org/wiki/Paris\" rel=\"noopener noreferrer\">Paris</a>",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(page, "<paris>") {
		t.Error("content must be escaped")
	}
}

func TestFormatContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"paragraphs", "one\ntwo\n\nthree", "<p>one<br>\ntwo</p>\n<p>three</p>"},
		{"inline code", "run `go test` now", "<p>run <code>go test</code> now</p>"},
		{"escaping", "<script>alert(1)</script>", "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>"},
		{"code keeps blank lines", "```\na\n\nb\n```", "<pre><code>a\n\nb</code></pre>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatContent(tt.in); got != tt.want {
				t.Errorf("formatContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Capitals: Europe", "Capitals-_Europe"},
		{"a/b\\c", "a-b-c"},
		{"   ", "conversation"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToFile(t *testing.T) {
	conv := sampleConversation()
	exp := NewMarkdownExporter(testOptions())
	path := filepath.Join(t.TempDir(), Filename(conv, exp))

	if err := ToFile(conv, exp, path); err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	if filepath.Base(path) != "conversation_7_Capitals-_Europe.md" {
		t.Errorf("Filename = %q", filepath.Base(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}
