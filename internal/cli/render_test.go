// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dischat/internal/model"
)

func plainRenderer() *Renderer {
	t, _ := LookupTheme(DefaultThemeName)
	return NewRenderer(RenderOptions{Theme: t, Plain: true})
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

func TestRenderer_UserMessage(t *testing.T) {
	r := plainRenderer()
	msg := model.Message{
		Sender: model.RoleUser,
		Text:   "What is in this picture?",
		AttachedFiles: []model.Attachment{
			{Name: "cat.png", Type: "image/png", Size: 2048},
		},
	}

	out := r.Message(msg)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "You", lines[0])
	assert.Equal(t, "  + cat.png (image, 2 KB)", lines[1])
	assert.Equal(t, "What is in this picture?", lines[2])
}

func TestRenderer_AssistantReasoning(t *testing.T) {
	msg := model.Message{
		Sender: model.RoleAssistant,
		Text:   "<think>The user wants a greeting.</think>Hello there!",
	}

	r := plainRenderer()
	out := r.Message(msg)
	assert.Contains(t, out, "> Thought for 1 second (/thinking to show)\n")
	assert.Contains(t, out, "Hello there!\n")
	assert.NotContains(t, out, "The user wants a greeting.")
	assert.NotContains(t, out, "<think>")

	r.ShowThinking = true
	out = r.Message(msg)
	assert.Contains(t, out, "> Thought for 1 second\n")
	assert.Contains(t, out, "  The user wants a greeting.\n")
	assert.Contains(t, out, "Hello there!\n")
}

func TestRenderer_Sources(t *testing.T) {
	r := plainRenderer()
	msg := model.Message{
		Sender: model.RoleAssistant,
		Text:   "Go 1.18 added generics.",
		SearchResults: []model.SearchResult{
			{Title: "Go 1.18 Release Notes", URL: "go.dev/doc/go1.18"},
			{Title: "", URL: "https://example.com/generics"},
		},
	}

	out := r.Message(msg)
	assert.Contains(t, out, "Sources:\n")
	assert.Contains(t, out, "  [1] Go 1.18 Release Notes\n")
	assert.Contains(t, out, "      https://go.dev/doc/go1.18\n")
	assert.Contains(t, out, "  [2] https://example.com/generics\n")

	assert.Equal(t, "", r.Sources(nil))
}

func TestThinkingSummary(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{1, "Thought for 1 second"},
		{2, "Thought for 2 seconds"},
		{15, "Thought for 15 seconds"},
	}
	for _, tt := range tests {
		if got := ThinkingSummary(tt.seconds); got != tt.want {
			t.Errorf("ThinkingSummary(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRenderer_EmptyConversation(t *testing.T) {
	out := plainRenderer().Conversation(model.Conversation{ID: 4, Title: "Empty"})
	assert.Equal(t, "Empty  #4\n(no messages)\n", out)
}

func TestRenderer_ConversationList(t *testing.T) {
	r := plainRenderer()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	convs := []model.Conversation{
		{
			ID:        12,
			Title:     "Capital of France",
			CreatedAt: model.FormatTime(now.Add(-2 * time.Hour)),
			Messages:  []model.Message{{Sender: model.RoleUser, Text: "What is the capital\nof France?"}},
		},
		{
			ID:    3,
			Title: "Old chat",
		},
	}

	out := r.ConversationList(convs, 12, now)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "* 12  Capital of France"), "got %q", lines[0])
	assert.Contains(t, lines[0], "2h ago")
	assert.Contains(t, lines[0], "What is the capital of France?")
	assert.True(t, strings.HasPrefix(lines[1], "   3  Old chat"), "got %q", lines[1])
	assert.Contains(t, lines[1], "-")

	empty := r.ConversationList(nil, 0, now)
	assert.Contains(t, empty, "No conversations yet")
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

func TestLastCodeBlock(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"none", "just prose", "", false},
		{"single", "Try:\n```go\nfmt.Println(1)\n```\n", "fmt.Println(1)", true},
		{"last wins", "```\na\n```\ntext\n```sh\nls -la\necho hi\n```", "ls -la\necho hi", true},
		{"unterminated", "```go\nfunc main() {", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LastCodeBlock(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("LastCodeBlock() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLastCodeBlockIn(t *testing.T) {
	conv := model.Conversation{Messages: []model.Message{
		{Sender: model.RoleAssistant, Text: "```py\nprint(1)\n```"},
		{Sender: model.RoleUser, Text: "```js\nuser code\n```"},
		{Sender: model.RoleAssistant, Text: "<think>```x\nscratch\n```</think>No code this time."},
	}}

	code, ok := LastCodeBlockIn(conv)
	require.True(t, ok)
	assert.Equal(t, "print(1)", code, "user messages and reasoning are skipped")

	_, ok = LastCodeBlockIn(model.Conversation{})
	assert.False(t, ok)
}

// =============================================================================
// TRANSCRIPT VIEW
// =============================================================================

func convWith(id, n int) model.Conversation {
	c := model.Conversation{ID: id, Title: "t"}
	for i := 0; i < n; i++ {
		c.Messages = append(c.Messages, model.Message{Sender: model.RoleUser, Text: "m"})
	}
	return c
}

func TestTranscriptView_Refresh(t *testing.T) {
	var v transcriptView

	action, _ := v.Refresh(convWith(1, 2), true)
	assert.Equal(t, refreshFull, action, "first conversation is drawn in full")

	v.Set(convWith(1, 2))
	action, from := v.Refresh(convWith(1, 3), true)
	assert.Equal(t, refreshAppend, action)
	assert.Equal(t, 2, from)

	action, _ = v.Refresh(convWith(1, 3), true)
	assert.Equal(t, refreshNone, action, "nothing new")

	action, _ = v.Refresh(convWith(1, 5), true)
	assert.Equal(t, refreshFull, action, "more than one message apart")

	action, _ = v.Refresh(convWith(2, 5), true)
	assert.Equal(t, refreshFull, action, "different conversation")

	action, _ = v.Refresh(model.Conversation{}, false)
	assert.Equal(t, refreshClosed, action)

	action, _ = v.Refresh(model.Conversation{}, false)
	assert.Equal(t, refreshNone, action, "already closed")
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestNewAttachment(t *testing.T) {
	t.Run("image becomes data url", func(t *testing.T) {
		att, err := NewAttachment("cat.png", pngHeader)
		require.NoError(t, err)
		assert.Equal(t, "image/png", att.Type)
		assert.True(t, strings.HasPrefix(att.Data, "data:image/png;base64,"))
		assert.True(t, att.IsImage())
		assert.Equal(t, int64(len(pngHeader)), att.Size)
	})

	t.Run("text carries extracted text", func(t *testing.T) {
		att, err := NewAttachment("notes.txt", []byte("meeting at noon\nbring slides\n"))
		require.NoError(t, err)
		assert.Equal(t, "text/plain", att.Type)
		assert.Equal(t, "meeting at noon\nbring slides\n", att.ExtractedText)
		assert.Empty(t, att.Data)
		assert.True(t, att.IsDocument())
	})

	t.Run("pdf is metadata only", func(t *testing.T) {
		att, err := NewAttachment("paper.pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n"))
		require.NoError(t, err)
		assert.True(t, att.IsPDF())
		assert.Empty(t, att.Data)
		assert.Empty(t, att.ExtractedText)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewAttachment("empty.txt", nil)
		assert.Equal(t, ExitUsageError, GetExitCode(err))
	})

	t.Run("oversized image", func(t *testing.T) {
		data := append(append([]byte{}, pngHeader...), make([]byte, MaxImageSize)...)
		_, err := NewAttachment("huge.png", data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit for images")
	})

	t.Run("unsupported binary", func(t *testing.T) {
		_, err := NewAttachment("blob.bin", []byte{0x00, 0x01, 0x02, 0xfe, 0xff, 0x00})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported type")
	})
}

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "todo.md")
	require.NoError(t, os.WriteFile(path, []byte("- [ ] ship it\n"), 0600))

	att, err := LoadAttachment(path)
	require.NoError(t, err)
	assert.Equal(t, "todo.md", att.Name)
	assert.Equal(t, "- [ ] ship it\n", att.ExtractedText)

	_, err = LoadAttachment(filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "file not found")

	_, err = LoadAttachment(dir)
	assert.ErrorContains(t, err, "is a directory")
}

func TestDescribeAttachment(t *testing.T) {
	assert.Equal(t, "a.pdf (pdf, 1 KB)", describeAttachment(model.Attachment{Name: "a.pdf", Type: "application/pdf", Size: 1024}))
	assert.Equal(t, "b.txt (text, 10 Bytes)", describeAttachment(model.Attachment{Name: "b.txt", Type: "text/plain", Size: 10, ExtractedText: "0123456789"}))
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatusLine_Plain(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Out: &out, Render: plainRenderer()}
	r.statusLine("Model", "llama")
	assert.Equal(t, "  Model:         llama\n", out.String())
}
