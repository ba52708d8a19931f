// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Handlers for the one-shot dischat commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/app"
	"github.com/jeranaias/dischat/internal/export"
	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/store"
)

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes commands against an initialized app.
type Runner struct {
	App    *app.App
	Args   Args
	Out    io.Writer
	Render *Renderer
}

// NewRunner builds a runner writing to stdout, with rendering chosen from
// the config, the persisted theme and the terminal.
func NewRunner(a *app.App, args Args) *Runner {
	ui := a.Config().UI
	theme := themeFor(ui.Theme, a.Theme())
	ApplyTheme(theme.Name)

	return &Runner{
		App:  a,
		Args: args,
		Out:  os.Stdout,
		Render: NewRenderer(RenderOptions{
			Theme:        theme,
			Width:        ui.WordWrap,
			Plain:        ui.PlainText || args.JSON || !IsStdoutTTY(),
			ShowThinking: ui.ShowThinking,
		}),
	}
}

// themeFor picks the theme: an explicit config theme wins over the one
// chosen with /theme.
func themeFor(configured, persisted string) Theme {
	if t, ok := LookupTheme(configured); ok {
		return t
	}
	if t, ok := LookupTheme(persisted); ok {
		return t
	}
	t, _ := LookupTheme(DefaultThemeName)
	return t
}

// Run dispatches cmd.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	if r.Args.Model != "" {
		if err := r.App.SetModel(r.Args.Model); err != nil {
			return err
		}
	}

	switch cmd {
	case CmdChat:
		return r.Chat(ctx)
	case CmdAsk:
		return r.Ask(ctx)
	case CmdList:
		return r.List()
	case CmdShow:
		return r.Show()
	case CmdDelete:
		return r.Delete()
	case CmdFind:
		return r.Find()
	case CmdSearch:
		return r.Search(ctx)
	case CmdRegen:
		return r.Regen(ctx)
	case CmdExport:
		return r.Export()
	case CmdSetup:
		return r.Setup()
	case CmdStatus:
		return r.Status()
	default:
		return fmt.Errorf("command %s does not use a session", cmd)
	}
}

func (r *Runner) printf(format string, a ...interface{}) {
	fmt.Fprintf(r.Out, format, a...)
}

// =============================================================================
// TURN OUTPUT
// =============================================================================

// replyJSON is the --json shape of a turn.
type replyJSON struct {
	Success        bool                 `json:"success"`
	ConversationID int                  `json:"conversation_id"`
	Title          string               `json:"title"`
	Created        bool                 `json:"created"`
	Model          string               `json:"model,omitempty"`
	Text           string               `json:"text"`
	Thinking       string               `json:"thinking,omitempty"`
	Searched       bool                 `json:"searched"`
	Query          string               `json:"query,omitempty"`
	Sources        []model.SearchResult `json:"sources,omitempty"`
	DurationMS     int64                `json:"duration_ms"`
	Error          string               `json:"error,omitempty"`
}

// printReply renders a completed turn and returns the provider error behind
// an apology reply, if any.
func (r *Runner) printReply(reply app.Reply) error {
	if r.Args.JSON {
		out := replyJSON{
			Success:        !reply.Failed(),
			ConversationID: reply.Conversation.ID,
			Title:          reply.Conversation.Title,
			Created:        reply.Created,
			Model:          reply.Result.Decision.Model,
			Text:           reply.Result.Reasoning.Main,
			Thinking:       reply.Result.Reasoning.Thinking,
			Searched:       reply.Result.Searched,
			Query:          reply.Result.Query,
			Sources:        reply.Message.SearchResults,
			DurationMS:     reply.Result.Duration.Milliseconds(),
		}
		if reply.Failed() {
			out.Text = reply.Message.Text
			out.Error = reply.Err.Error()
		}
		if err := WriteJSON(r.Out, out); err != nil {
			return err
		}
		return replyError(reply)
	}

	if reply.Created && !r.Args.Quiet {
		r.printf("%s\n\n", r.Render.style(fmt.Sprintf("New conversation #%d: %s", reply.Conversation.ID, reply.Conversation.Title), DimStyle.Render))
	}
	r.printf("%s", r.Render.Message(reply.Message))
	if !r.Args.Quiet && !reply.Failed() {
		r.printf("%s\n", r.Render.style(turnFooter(reply), DimStyle.Render))
	}
	return replyError(reply)
}

func replyError(reply app.Reply) error {
	if reply.Failed() {
		return fmt.Errorf("completion failed: %w", reply.Err)
	}
	return nil
}

func turnFooter(reply app.Reply) string {
	parts := []string{}
	if m := reply.Result.Decision.Model; m != "" {
		parts = append(parts, m)
	}
	if reply.Result.Searched && reply.Result.Query != "" {
		parts = append(parts, fmt.Sprintf("searched %q", reply.Result.Query))
	}
	parts = append(parts, formatDurationShort(reply.Result.Duration))
	return "[" + strings.Join(parts, " | ") + "]"
}

// =============================================================================
// ASK / SEARCH / REGEN
// =============================================================================

// Ask sends one message in a new conversation.
func (r *Runner) Ask(ctx context.Context) error {
	query := strings.TrimSpace(r.Args.Query)
	if query == "" && len(r.Args.Files) == 0 {
		return ErrMissingArgument("question", `dischat ask "What is the capital of France?"`)
	}

	files, err := loadAttachments(r.Args.Files)
	if err != nil {
		return err
	}
	if err := r.App.NewChat(); err != nil {
		return err
	}

	reply, err := r.App.Send(ctx, query, files)
	if err != nil {
		return err
	}
	return r.printReply(reply)
}

// Search runs a manual web search in the current conversation.
func (r *Runner) Search(ctx context.Context) error {
	query := strings.TrimSpace(r.Args.Query)
	if query == "" {
		return ErrMissingArgument("query", "dischat search golang generics")
	}
	reply, err := r.App.WebSearch(ctx, query)
	if err != nil {
		return err
	}
	return r.printReply(reply)
}

// Regen regenerates a reply in the current conversation.
func (r *Runner) Regen(ctx context.Context) error {
	reply, err := r.App.Regenerate(ctx, r.Args.Index)
	if err != nil {
		return err
	}
	return r.printReply(reply)
}

func loadAttachments(paths []string) ([]model.Attachment, error) {
	files := make([]model.Attachment, 0, len(paths))
	for _, p := range paths {
		att, err := LoadAttachment(p)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("name", att.Name).Str("type", att.Type).Int64("size", att.Size).Msg("attachment loaded")
		files = append(files, att)
	}
	return files, nil
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// conversationSummary is the --json shape of a listing entry.
type conversationSummary struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	Messages  int    `json:"messages"`
	Active    bool   `json:"active"`
}

func summarize(convs []model.Conversation, activeID int) []conversationSummary {
	out := make([]conversationSummary, len(convs))
	for i, c := range convs {
		out[i] = conversationSummary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			Messages:  len(c.Messages),
			Active:    c.ID == activeID,
		}
	}
	return out
}

func (r *Runner) printList(convs []model.Conversation) error {
	activeID := r.App.Store().ActiveID()
	if r.Args.JSON {
		return WriteJSON(r.Out, summarize(convs, activeID))
	}
	r.printf("%s", r.Render.ConversationList(convs, activeID, time.Now()))
	return nil
}

// List prints all conversations, newest first.
func (r *Runner) List() error {
	return r.printList(r.App.Conversations())
}

// Find prints conversations whose title or messages contain the query.
func (r *Runner) Find() error {
	query := strings.TrimSpace(r.Args.Query)
	if query == "" {
		return ErrMissingArgument("text", "dischat find capital")
	}
	matches := r.App.Find(query)
	if len(matches) == 0 && !r.Args.JSON {
		r.printf("%s\n", r.Render.style(fmt.Sprintf("No conversations match %q.", query), DimStyle.Render))
		return nil
	}
	return r.printList(matches)
}

func (r *Runner) conversation() (model.Conversation, error) {
	if r.Args.ID <= 0 {
		return model.Conversation{}, ErrMissingArgument("id", "dischat show 3")
	}
	conv, ok := r.App.Store().Get(r.Args.ID)
	if !ok {
		return model.Conversation{}, fmt.Errorf("%w: #%d", store.ErrNotFound, r.Args.ID)
	}
	return conv, nil
}

// Show prints a conversation and makes it the active one.
func (r *Runner) Show() error {
	conv, err := r.conversation()
	if err != nil {
		return err
	}
	if _, err := r.App.Switch(conv.ID); err != nil {
		return err
	}
	if r.Args.JSON {
		return WriteJSON(r.Out, conv)
	}
	r.printf("%s", r.Render.Conversation(conv))
	return nil
}

// Delete removes a conversation after confirmation.
func (r *Runner) Delete() error {
	conv, err := r.conversation()
	if err != nil {
		return err
	}
	if !r.Args.Yes && !r.Args.JSON && IsTTY() {
		if !promptYesNo(fmt.Sprintf("Delete #%d %q?", conv.ID, conv.Title), false) {
			r.printf("Cancelled.\n")
			return nil
		}
	}

	active, err := r.App.Delete(conv.ID)
	if err != nil {
		return err
	}
	if r.Args.JSON {
		return WriteJSON(r.Out, map[string]interface{}{
			"success":   true,
			"deleted":   conv.ID,
			"active_id": active,
		})
	}
	r.printf("%s Deleted #%d %s\n", r.Render.style("[OK]", SuccessStyle.Render), conv.ID, conv.Title)
	return nil
}

// Export writes a conversation to --output or stdout. The format comes from
// --format, else the output file's extension, else Markdown.
func (r *Runner) Export() error {
	conv, err := r.conversation()
	if err != nil {
		return err
	}

	format := r.Args.Format
	if format == "" {
		format = export.FormatForPath(r.Args.Output)
	}
	opts := export.DefaultOptions()
	opts.IncludeReasoning = r.Render.ShowThinking
	opts.Theme = "dark"
	if r.Render.opts.Theme.Name == "light" {
		opts.Theme = "light"
	}
	exp, err := export.ForFormat(format, opts)
	if err != nil {
		return &ValidationError{Field: "format", Value: format, Reason: "unsupported export format", Example: "dischat export 3 --format html"}
	}

	if r.Args.Output == "" {
		doc, err := exp.Export(conv)
		if err != nil {
			return err
		}
		_, err = r.Out.Write(doc)
		return err
	}
	if err := export.ToFile(conv, exp, r.Args.Output); err != nil {
		return &CommandError{Command: "export", Action: "write", Reason: r.Args.Output, Err: err}
	}
	if !r.Args.Quiet {
		r.printf("%s Exported #%d to %s\n", r.Render.style("[OK]", SuccessStyle.Render), conv.ID, r.Args.Output)
	}
	return nil
}
