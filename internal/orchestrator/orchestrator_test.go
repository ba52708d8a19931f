// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dischat/internal/cloud"
	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/provider"
	"github.com/jeranaias/dischat/internal/router"
)

// =============================================================================
// FAKES
// =============================================================================

type reply struct {
	text string
	err  error
}

type fakeCompleter struct {
	replies []reply
	got     []cloud.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req cloud.Request) (string, error) {
	f.got = append(f.got, req)
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.text, r.err
}

type fakeSearcher struct {
	results []model.SearchResult
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) []model.SearchResult {
	f.queries = append(f.queries, query)
	if f.results == nil {
		return []model.SearchResult{}
	}
	return f.results
}

func newOrch(p provider.ID, replies ...reply) (*Orchestrator, *fakeCompleter, *fakeSearcher) {
	fc := &fakeCompleter{replies: replies}
	fs := &fakeSearcher{}
	s := DefaultSettings()
	s.Model = "llama3-70b-8192"
	if p == provider.OpenRouter {
		s.Model = "anthropic/claude-3.5-sonnet"
	}
	return New(provider.Get(p), fc, fs, s), fc, fs
}

func history(n int) []model.Message {
	msgs := make([]model.Message, n)
	for i := range msgs {
		sender := model.RoleUser
		if i%2 == 1 {
			sender = model.RoleAssistant
		}
		msgs[i] = model.NewMessage(sender, fmt.Sprintf("m%d", i))
	}
	return msgs
}

var (
	png = model.Attachment{Name: "shot.png", Type: "image/png", Size: 4, Data: "data:image/png;base64,AAAA"}
	pdf = model.Attachment{Name: "paper.pdf", Type: "application/pdf", Size: 10, Data: "data:application/pdf;base64,AA", ExtractedText: "Abstract text"}
)

// =============================================================================
// COMPOSE
// =============================================================================

func TestCompose_BoundedHistory(t *testing.T) {
	d := router.Route(provider.Get(provider.Groq), "llama3-70b-8192", nil)
	req := Compose(d, DefaultSettings(), history(15), "now", nil)

	require.Len(t, req.Messages, 1+10+1)
	assert.Equal(t, cloud.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, "m5", req.Messages[1].Content, "window starts at the 10th most recent message")
	assert.Equal(t, "m14", req.Messages[10].Content)
	assert.Equal(t, cloud.Message{Role: cloud.RoleUser, Content: "now"}, req.Messages[11])
	assert.Equal(t, "llama3-70b-8192", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.Equal(t, 1024, req.MaxTokens)
}

func TestCompose_ShortHistory(t *testing.T) {
	d := router.Route(provider.Get(provider.Groq), "", nil)
	req := Compose(d, DefaultSettings(), history(3), "now", nil)
	assert.Len(t, req.Messages, 1+3+1)
	assert.Equal(t, cloud.RoleAssistant, req.Messages[2].Role)
}

func TestCompose_ImageIsMultiPart(t *testing.T) {
	p := provider.Get(provider.Groq)
	d := router.Route(p, "llama3-70b-8192", []model.Attachment{png})
	req := Compose(d, DefaultSettings(), nil, "what is this?", []model.Attachment{png})

	assert.Equal(t, p.VisionModel, req.Model)
	assert.Equal(t, visionPrompt, req.Messages[0].Content)
	turn := req.Messages[len(req.Messages)-1]
	require.Len(t, turn.Parts, 2)
	assert.Equal(t, "what is this?", turn.Parts[0].Text)
	assert.Equal(t, png.Data, turn.Parts[1].ImageURL)
}

func TestCompose_DocumentIsFlattened(t *testing.T) {
	p := provider.Get(provider.Groq)
	d := router.Route(p, "llama3-70b-8192", []model.Attachment{pdf})
	req := Compose(d, DefaultSettings(), nil, "summarize", []model.Attachment{pdf})

	assert.Equal(t, p.DocumentModel, req.Model)
	assert.True(t, strings.HasPrefix(req.Messages[0].Content, documentPrompt))
	assert.Contains(t, req.Messages[0].Content, "DEEPSEEK THINKING FORMAT", "document model is a reasoning model")
	turn := req.Messages[len(req.Messages)-1]
	assert.Empty(t, turn.Parts)
	assert.Equal(t, "summarize\n\n[PDF Document: paper.pdf]\n\nExtracted Content:\nAbstract text", turn.Content)
}

func TestCurrentTurn_FlattenedImagePlaceholder(t *testing.T) {
	d := router.Decision{Modality: router.ModalityImage, Multimodal: false}
	msg := CurrentTurn(d, "", []model.Attachment{png, {Name: "notes.txt", Type: "text/plain", ExtractedText: "hello"}})
	assert.Equal(t, "[Image: attached]\n\n[Document: notes.txt]\n\nExtracted Content:\nhello", msg.Content)
}

func TestCurrentTurn_DocumentWithoutTextOmitted(t *testing.T) {
	d := router.Decision{Modality: router.ModalityDocument}
	scanned := model.Attachment{Name: "scan.pdf", Type: "application/pdf"}
	msg := CurrentTurn(d, "read this", []model.Attachment{scanned})
	assert.Equal(t, "read this", msg.Content)
}

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		name string
		d    router.Decision
		want string
		addn bool
	}{
		{"general", router.Decision{}, generalPrompt, false},
		{"vision", router.Decision{Modality: router.ModalityImage}, visionPrompt, false},
		{"mixed", router.Decision{Modality: router.ModalityMixed}, visionPrompt, false},
		{"document", router.Decision{Modality: router.ModalityDocument}, documentPrompt, false},
		{"reasoning", router.Decision{Reasoning: true}, generalPrompt, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SystemPrompt(tt.d)
			assert.True(t, strings.HasPrefix(got, tt.want))
			assert.Equal(t, tt.addn, strings.HasSuffix(got, reasoningAddendum))
		})
	}
	assert.Contains(t, generalPrompt, "```html filename=\"example.html\"")
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseDirective(t *testing.T) {
	q, ok := ParseDirective("[SEARCH]foo[/SEARCH]bar")
	assert.True(t, ok)
	assert.Equal(t, "foo", q)

	q, ok = ParseDirective("Sure.\n[SEARCH] multi\nline [/SEARCH]\ntrailing")
	assert.True(t, ok)
	assert.Equal(t, "multi\nline", q)

	_, ok = ParseDirective("no directive [SEARCH] unterminated")
	assert.False(t, ok)
}

func TestParseReasoning(t *testing.T) {
	thinking := strings.TrimSpace(strings.Repeat("word ", 50))
	r := ParseReasoning("<think>\n" + thinking + "\n</think>\n\nThe answer is 4.")

	assert.True(t, r.Found)
	assert.Equal(t, thinking, r.Thinking)
	assert.Equal(t, "The answer is 4.", r.Main)
	assert.Equal(t, 3, r.Seconds, "50 words / 20 = 2.5 rounds to 3")

	plain := ParseReasoning("Just text")
	assert.False(t, plain.Found)
	assert.Equal(t, "Just text", plain.Main)
}

func TestThinkingSeconds(t *testing.T) {
	tests := []struct{ words, want int }{
		{0, 1}, {1, 1}, {10, 1}, {29, 1}, {30, 2}, {40, 2}, {49, 2}, {50, 3}, {200, 10},
	}
	for _, tt := range tests {
		if got := ThinkingSeconds(tt.words); got != tt.want {
			t.Errorf("ThinkingSeconds(%d) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

// =============================================================================
// RESPOND
// =============================================================================

func TestRespond_PlainReply(t *testing.T) {
	o, fc, fs := newOrch(provider.Groq, reply{text: "Hi there!"})

	res, err := o.Respond(context.Background(), Turn{Text: "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "Hi there!", res.Text)
	assert.Equal(t, "Hi there!", res.Reasoning.Main)
	assert.False(t, res.Searched)
	assert.Nil(t, res.SearchResults)
	assert.Len(t, fc.got, 1)
	assert.Empty(t, fs.queries)
}

func TestRespond_SearchDirectiveGrounded(t *testing.T) {
	o, fc, fs := newOrch(provider.Groq,
		reply{text: "[SEARCH]capital of France[/SEARCH]Let me check."},
		reply{text: "The capital of France is Paris [SOURCE 1]."},
	)
	fs.results = []model.SearchResult{{Title: "Paris", URL: "https://en.wikipedia.org/wiki/Paris", Snippet: "Paris is the capital of France."}}

	res, err := o.Respond(context.Background(), Turn{Text: "What is the capital of France?"})
	require.NoError(t, err)

	assert.Equal(t, []string{"capital of France"}, fs.queries)
	assert.True(t, res.Searched)
	assert.Equal(t, "capital of France", res.Query)
	assert.Equal(t, "The capital of France is Paris [SOURCE 1].", res.Text)
	assert.NotContains(t, res.Text, "Let me check.")
	assert.Equal(t, fs.results, res.SearchResults)

	require.Len(t, fc.got, 2)
	grounded := fc.got[1]
	assert.Equal(t, o.Provider().GroundingModel, grounded.Model)
	assert.Contains(t, grounded.Messages[1].Content, `User Question: "What is the capital of France?"`)
	assert.Contains(t, grounded.Messages[1].Content, "[SOURCE 1]\nTITLE: Paris")
}

func TestRespond_SearchWithoutResults(t *testing.T) {
	o, fc, _ := newOrch(provider.OpenRouter, reply{text: "[SEARCH]zzqx[/SEARCH]One moment."})

	res, err := o.Respond(context.Background(), Turn{Text: "zzqx?"})
	require.NoError(t, err)

	assert.Equal(t, NoResultsText("zzqx"), res.Text)
	assert.NotNil(t, res.SearchResults)
	assert.Empty(t, res.SearchResults)
	assert.Len(t, fc.got, 1, "no grounded call without results")
}

func TestRespond_GroundingFailure(t *testing.T) {
	o, _, fs := newOrch(provider.Groq,
		reply{text: "[SEARCH]q[/SEARCH]"},
		reply{err: errors.New("rate limited")},
	)
	fs.results = []model.SearchResult{{Title: "t", URL: "u", Snippet: "s"}}

	res, err := o.Respond(context.Background(), Turn{Text: "q?"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Text, "I found some search results but had trouble processing them. Please try asking your question differently."))
	assert.Contains(t, res.Text, `I searched for "q?"`)
}

func TestRespond_ReasoningSplit(t *testing.T) {
	o, _, _ := newOrch(provider.Groq, reply{text: "<think>a b c</think>Answer"})
	res, err := o.Respond(context.Background(), Turn{Text: "q"})
	require.NoError(t, err)
	assert.Equal(t, "<think>a b c</think>Answer", res.Text, "persisted text stays raw")
	assert.Equal(t, "Answer", res.Reasoning.Main)
	assert.Equal(t, 1, res.Reasoning.Seconds)
}

func TestRespond_DispatchError(t *testing.T) {
	perr := &cloud.ProviderError{Provider: "Groq", Status: 401, Message: "Invalid API Key"}
	o, _, _ := newOrch(provider.Groq, reply{err: perr})

	_, err := o.Respond(context.Background(), Turn{Text: "q"})
	assert.ErrorIs(t, err, perr)
}

func TestRespond_AttachmentRouting(t *testing.T) {
	o, fc, _ := newOrch(provider.OpenRouter, reply{text: "ok"})
	res, err := o.Respond(context.Background(), Turn{Text: "look", Attachments: []model.Attachment{png, pdf}})
	require.NoError(t, err)

	assert.Equal(t, "openai/gpt-4o", fc.got[0].Model)
	assert.Equal(t, router.ModalityMixed, res.Decision.Modality)
	assert.Len(t, fc.got[0].Messages[len(fc.got[0].Messages)-1].Parts, 3)
}

// =============================================================================
// WEB SEARCH
// =============================================================================

func TestWebSearch(t *testing.T) {
	o, fc, fs := newOrch(provider.Groq, reply{text: "Grounded."})
	fs.results = []model.SearchResult{{Title: "t", URL: "u", Snippet: "s"}}

	res := o.WebSearch(context.Background(), " go 1.24 release ")
	assert.Equal(t, "Grounded.", res.Text)
	assert.Equal(t, "go 1.24 release", res.Query)
	assert.Equal(t, []string{"go 1.24 release"}, fs.queries)
	require.Len(t, fc.got, 1)
	assert.Equal(t, o.Provider().GroundingModel, fc.got[0].Model)

	empty, _, _ := newOrch(provider.Groq)
	res = empty.WebSearch(context.Background(), "nothing")
	assert.Equal(t, ManualNoResultsText("nothing"), res.Text)
	assert.Equal(t, "Search the web for: nothing", WebSearchMessage("nothing"))
}

// =============================================================================
// REGENERATION
// =============================================================================

func regenConv() model.Conversation {
	return model.Conversation{
		ID:    1,
		Title: "t",
		Messages: []model.Message{
			model.NewMessage(model.RoleUser, "first"),
			model.NewMessage(model.RoleAssistant, "reply one"),
			model.NewMessage(model.RoleUser, "second"),
			model.NewMessage(model.RoleAssistant, "reply two"),
		},
	}
}

func TestRegenerate(t *testing.T) {
	o, fc, _ := newOrch(provider.Groq, reply{text: "better reply"})
	conv := regenConv()

	out, res, err := o.Regenerate(context.Background(), conv, 3)
	require.NoError(t, err)

	assert.Equal(t, "better reply", res.Text)
	assert.Equal(t, "better reply", out.Messages[3].Text)
	assert.Equal(t, "reply two", conv.Messages[3].Text, "input untouched")
	assert.Len(t, out.Messages, 4)

	req := fc.got[0]
	require.Len(t, req.Messages, 1+2+1, "history truncated before the replayed user message")
	assert.Equal(t, "second", req.Messages[3].Content)
}

func TestRegenerate_FailureLeavesConversation(t *testing.T) {
	o, _, _ := newOrch(provider.Groq, reply{err: errors.New("network down")})
	conv := regenConv()

	out, _, err := o.Regenerate(context.Background(), conv, 1)
	require.Error(t, err)
	assert.Equal(t, conv, out)
}

func TestRegenerate_Errors(t *testing.T) {
	o, _, _ := newOrch(provider.Groq)
	conv := regenConv()

	_, _, err := o.Regenerate(context.Background(), conv, 2)
	assert.ErrorIs(t, err, ErrNotAssistant)

	_, _, err = o.Regenerate(context.Background(), conv, 9)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	orphan := model.Conversation{ID: 2, Messages: []model.Message{model.NewMessage(model.RoleAssistant, "hi")}}
	_, _, err = o.Regenerate(context.Background(), orphan, 0)
	assert.ErrorIs(t, err, ErrNoUserMessage)
}

func TestLastAssistantIndex(t *testing.T) {
	assert.Equal(t, 3, LastAssistantIndex(regenConv()))
	assert.Equal(t, -1, LastAssistantIndex(model.Conversation{}))
}

// =============================================================================
// TITLES
// =============================================================================

func TestGenerateTitle(t *testing.T) {
	o, fc, _ := newOrch(provider.Groq, reply{text: "  \"Greeting the Assistant\"\n"})
	assert.Equal(t, "Greeting the Assistant", o.GenerateTitle(context.Background(), "Hello"))

	req := fc.got[0]
	assert.Equal(t, "llama3-8b-8192", req.Model)
	assert.Equal(t, 20, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 1e-6)
	assert.Equal(t, "Hello", req.Messages[1].Content)
}

func TestGenerateTitle_ClampsLongTitles(t *testing.T) {
	long := strings.Repeat("word", 100)

	o, _, _ := newOrch(provider.Groq, reply{text: long})
	assert.Len(t, []rune(o.GenerateTitle(context.Background(), "Hello")), model.MaxTitleLength)

	o, _, _ = newOrch(provider.Groq, reply{err: errors.New("down")})
	title := o.GenerateTitle(context.Background(), "https://example.com/"+long+" summarize this")
	assert.Len(t, []rune(title), model.MaxTitleLength)
	assert.True(t, strings.HasPrefix(title, "https://example.com/"))
}

func TestGenerateTitle_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		reply   reply
		message string
		want    string
	}{
		{"error single word", reply{err: errors.New("down")}, "Hello", "Hello"},
		{"error long message", reply{err: errors.New("down")}, "how do goroutines really work", "how do goroutines..."},
		{"exactly three words", reply{err: errors.New("down")}, "one two three", "one two three"},
		{"blank title", reply{text: " '' "}, "plan my trip", "plan my trip"},
		{"empty message", reply{err: errors.New("down")}, "", model.UntitledTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _, _ := newOrch(provider.Groq, tt.reply)
			assert.Equal(t, tt.want, o.GenerateTitle(context.Background(), tt.message))
		})
	}
}
