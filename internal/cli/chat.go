// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat for dischat.
//
// USABILITY: Markdown rendering and history for better CLI experience
//
// Command: chat (default)
//
// Interactive Commands (during chat):
//
//	/new                Start a new conversation
//	/list               List conversations
//	/switch <id>        Open a conversation
//	/delete [id]        Delete a conversation (default: the open one)
//	/regen [index]      Regenerate a reply
//	/search <query>     Search the web
//	/attach [path]      Attach a file to the next message, or list attachments
//	/model [id]         Show or switch model
//	/provider [name]    Show or switch provider
//	/thinking           Toggle reasoning display
//	/copy               Copy the last code block
//	/theme [name]       Show or set the color theme
//	/sidebar            Toggle the conversation list on startup
//	/status             Show provider, storage and sync state
//	/quit, /q           Exit chat
//	Ctrl+C              Cancel the current request
//	Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/app"
	"github.com/jeranaias/dischat/internal/config"
	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/store"
)

// welcomeRecent is how many conversations the welcome banner lists.
const welcomeRecent = 5

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads the saved input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeSlash)

	historyFile, err := config.HistoryPath()
	if err != nil {
		log.Debug().Err(err).Msg("input history disabled")
	}
	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	// SECURITY: history may contain private prompts
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

var slashCommands = []string{
	"/new", "/list", "/switch ", "/delete ", "/regen", "/search ", "/attach ",
	"/model", "/provider", "/thinking", "/copy", "/theme ", "/sidebar", "/status", "/help", "/quit",
}

func completeSlash(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, c := range slashCommands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	return out
}

// =============================================================================
// TRANSCRIPT VIEW
// =============================================================================

type refreshAction int

const (
	refreshNone refreshAction = iota
	refreshAppend
	refreshFull
	refreshClosed
)

// transcriptView tracks what the terminal shows of the active conversation
// so realtime updates redraw only when needed.
type transcriptView struct {
	mu    sync.Mutex
	id    int
	shown int
}

// Set records conv as fully displayed. The zero conversation clears it.
func (v *transcriptView) Set(conv model.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.id = conv.ID
	v.shown = len(conv.Messages)
}

// Refresh decides how to bring the display up to date with active. For
// refreshAppend, from is the first message not yet shown.
func (v *transcriptView) Refresh(active model.Conversation, ok bool) (action refreshAction, from int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !ok {
		closed := v.id != 0
		v.id, v.shown = 0, 0
		if closed {
			return refreshClosed, 0
		}
		return refreshNone, 0
	}

	stored := len(active.Messages)
	switch {
	case active.ID != v.id, store.NeedsRerender(v.shown, stored):
		action = refreshFull
	case stored > v.shown:
		action, from = refreshAppend, v.shown
	default:
		return refreshNone, 0
	}
	v.id, v.shown = active.ID, stored
	return action, from
}

// =============================================================================
// SESSION
// =============================================================================

type chatSession struct {
	*Runner
	input   *ChatCLI
	view    transcriptView
	pending []model.Attachment

	detachMu sync.Mutex
	detach   chan struct{}
	inflight sync.WaitGroup
}

// Chat runs the interactive REPL.
func (r *Runner) Chat(ctx context.Context) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	firstRun := r.App.Local().FirstRun()
	if !r.App.HasAPIKey() {
		r.printf("%s No API key configured.\n", r.Render.style("[!]", WarningStyle.Render))
		if promptYesNo("Set one up now?", true) {
			if err := r.Setup(); err != nil {
				return err
			}
		}
	}

	s := &chatSession{Runner: r}
	files, err := loadAttachments(r.Args.Files)
	if err != nil {
		return err
	}
	s.pending = files

	s.input = NewChatCLI()
	defer s.input.Close()

	r.App.OnRefresh(s.onRefresh)
	defer r.App.OnRefresh(nil)
	defer s.inflight.Wait()

	if !r.Args.Quiet {
		s.printWelcome()
		s.greetFirstRun(firstRun)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()
	go func() {
		for range sigChan {
			if s.detachRequest() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Detached]")+" The reply will be saved when it arrives.")
			}
		}
	}()

	for {
		input, err := s.input.ReadInput(s.prompt())
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("input closed")
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleSlashCommand(ctx, input)
			if err != nil {
				s.printError(err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := s.send(ctx, input); err != nil {
			s.printError(err)
		}
	}
}

func (s *chatSession) prompt() string {
	p := "dischat"
	if conv, ok := s.App.Active(); ok {
		p += fmt.Sprintf(" #%d", conv.ID)
	}
	if n := len(s.pending); n > 0 {
		p += fmt.Sprintf(" +%d", n)
	}
	// liner counts escape sequences as width, so the prompt stays plain
	return p + "> "
}

func (s *chatSession) printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
	if errors.Is(err, app.ErrNoAPIKey) {
		fmt.Fprintln(os.Stderr, DimStyle.Render("Run 'dischat setup' to add a key."))
	}
}

// errDetached is returned by request when Ctrl+C stops the wait. The
// request keeps running and its reply is saved when it arrives.
var errDetached = errors.New("stopped waiting for reply")

// request runs fn in the background and waits for its reply. Ctrl+C only
// detaches the prompt; a request that has been issued is never cancelled.
func (s *chatSession) request(ctx context.Context, fn func(context.Context) (app.Reply, error)) (app.Reply, error) {
	type outcome struct {
		reply app.Reply
		err   error
	}
	done := make(chan outcome, 1)
	detach := make(chan struct{})

	s.detachMu.Lock()
	s.detach = detach
	s.detachMu.Unlock()
	defer func() {
		s.detachMu.Lock()
		s.detach = nil
		s.detachMu.Unlock()
	}()

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		reply, err := fn(context.WithoutCancel(ctx))
		done <- outcome{reply: reply, err: err}
	}()

	if IsStdoutTTY() && !s.Args.Quiet {
		fmt.Fprint(s.Out, DimStyle.Render("Thinking..."))
		defer fmt.Fprint(s.Out, "\r\033[K")
	}
	select {
	case out := <-done:
		return out.reply, out.err
	case <-detach:
		return app.Reply{}, errDetached
	}
}

// detachRequest stops waiting for the current request, if any.
func (s *chatSession) detachRequest() bool {
	s.detachMu.Lock()
	defer s.detachMu.Unlock()
	if s.detach == nil {
		return false
	}
	close(s.detach)
	s.detach = nil
	return true
}

// finish prints a reply and marks its conversation as displayed.
func (s *chatSession) finish(reply app.Reply, err error) error {
	if errors.Is(err, errDetached) {
		return nil
	}
	if err != nil {
		return err
	}
	s.printf("\n")
	printErr := s.printReply(reply)
	s.printf("\n")
	s.view.Set(reply.Conversation)
	return printErr
}

func (s *chatSession) send(ctx context.Context, text string) error {
	files := s.pending
	reply, err := s.request(ctx, func(ctx context.Context) (app.Reply, error) {
		return s.App.Send(ctx, text, files)
	})
	if err == nil || errors.Is(err, errDetached) {
		s.pending = nil
	}
	return s.finish(reply, err)
}

// =============================================================================
// REALTIME UPDATES
// =============================================================================

func (s *chatSession) onRefresh(active model.Conversation, ok bool) {
	action, from := s.view.Refresh(active, ok)
	switch action {
	case refreshClosed:
		s.printf("\n%s\n", s.Render.style("[sync] The open conversation was deleted on another device.", WarningStyle.Render))
	case refreshFull:
		s.printf("\n%s\n", s.Render.style("[sync] Conversation updated", DimStyle.Render))
		s.printf("%s\n", s.Render.Conversation(active))
	case refreshAppend:
		s.printf("\n%s\n", s.Render.style("[sync] New messages", DimStyle.Render))
		for _, msg := range active.Messages[from:] {
			s.printf("%s\n", s.Render.Message(msg))
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs one slash command and reports whether the REPL
// should keep going.
func (s *chatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h", "/?":
		s.printHelp()

	case "/new", "/n":
		if err := s.App.NewChat(); err != nil {
			return true, err
		}
		s.view.Set(model.Conversation{})
		s.printf("%s\n", s.Render.style("New conversation. It is saved when you send the first message.", DimStyle.Render))

	case "/list", "/ls":
		return true, s.List()

	case "/switch", "/open":
		id := parseID(rest)
		if id == 0 {
			return true, ErrMissingArgument("id", "/switch 3")
		}
		conv, err := s.App.Switch(id)
		if err != nil {
			return true, err
		}
		s.printf("%s", s.Render.Conversation(conv))
		s.view.Set(conv)

	case "/delete", "/rm":
		return true, s.deleteConversation(rest)

	case "/regen", "/regenerate":
		index := -1
		if rest != "" {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 0 {
				return true, &ValidationError{Field: "index", Value: rest, Reason: "must be a message number", Example: "/regen 3"}
			}
			index = n
		}
		return true, s.finish(s.request(ctx, func(ctx context.Context) (app.Reply, error) {
			return s.App.Regenerate(ctx, index)
		}))

	case "/search", "/web":
		if rest == "" {
			return true, ErrMissingArgument("query", "/search golang generics")
		}
		return true, s.finish(s.request(ctx, func(ctx context.Context) (app.Reply, error) {
			return s.App.WebSearch(ctx, rest)
		}))

	case "/attach", "/a":
		return true, s.attach(rest)

	case "/model", "/m":
		return true, s.model(rest)

	case "/provider", "/p":
		return true, s.provider(rest)

	case "/thinking", "/think":
		s.Render.ShowThinking = !s.Render.ShowThinking
		state := "hidden"
		if s.Render.ShowThinking {
			state = "shown"
		}
		s.printf("Model reasoning is now %s.\n", state)

	case "/copy", "/c":
		return true, s.copyCode()

	case "/theme":
		return true, s.theme(rest)

	case "/sidebar":
		collapsed, err := s.App.ToggleSidebar()
		if err != nil {
			return true, err
		}
		if collapsed {
			s.printf("Conversation list hidden on startup.\n")
		} else {
			s.printf("Conversation list shown on startup.\n")
		}

	case "/status":
		return true, s.Status()

	default:
		example := "/help"
		if hint := SuggestSlashCommand(name); hint != "" {
			example = hint
		}
		return true, &ValidationError{Field: "command", Value: name, Reason: "unknown command", Example: example}
	}
	return true, nil
}

func (s *chatSession) deleteConversation(arg string) error {
	id := parseID(arg)
	if id == 0 {
		conv, ok := s.App.Active()
		if !ok {
			return ErrMissingArgument("id", "/delete 3")
		}
		id = conv.ID
	}
	conv, ok := s.App.Store().Get(id)
	if !ok {
		return fmt.Errorf("%w: #%d", store.ErrNotFound, id)
	}
	if !promptYesNo(fmt.Sprintf("Delete #%d %q?", conv.ID, conv.Title), false) {
		return nil
	}

	activeID, err := s.App.Delete(id)
	if err != nil {
		return err
	}
	s.printf("%s Deleted #%d\n", s.Render.style("[OK]", SuccessStyle.Render), id)
	if active, ok := s.App.Active(); ok && active.ID == activeID {
		s.printf("%s\n", s.Render.style(fmt.Sprintf("Now in #%d %s", active.ID, active.Title), DimStyle.Render))
		s.view.Set(active)
	} else {
		s.view.Set(model.Conversation{})
	}
	return nil
}

func (s *chatSession) attach(arg string) error {
	switch arg {
	case "":
		if len(s.pending) == 0 {
			s.printf("No attachments. Use /attach <path>.\n")
			return nil
		}
		for _, f := range s.pending {
			s.printf("  + %s\n", describeAttachment(f))
		}
		return nil
	case "clear":
		s.pending = nil
		s.printf("Attachments cleared.\n")
		return nil
	}

	att, err := LoadAttachment(expandHome(arg))
	if err != nil {
		return err
	}
	s.pending = append(s.pending, att)
	s.printf("%s Attached %s\n", s.Render.style("[+]", SuccessStyle.Render), describeAttachment(att))
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

func (s *chatSession) model(arg string) error {
	if arg != "" {
		if err := s.App.SetModel(arg); err != nil {
			return err
		}
		s.printf("%s Model: %s\n", s.Render.style("[OK]", SuccessStyle.Render), s.App.Model())
		return nil
	}

	current := s.App.Model()
	s.printf("%s\n", s.Render.style(s.App.Provider().Name+" models", TitleStyle.Render))
	for _, m := range s.App.Provider().Models {
		marker := "  "
		if m.ID == current {
			marker = s.Render.style("* ", HighlightStyle.Render)
		}
		s.printf("%s%-48s %s\n", marker, m.ID, s.Render.style(string(m.Category), DimStyle.Render))
	}
	s.printf("%s\n", s.Render.style("Attachments pick a vision or document model automatically.", DimStyle.Render))
	return nil
}

func (s *chatSession) provider(arg string) error {
	if arg == "" {
		s.printf("Provider: %s  key: %s\n", s.App.Provider().Name, s.App.KeyFingerprint())
		return nil
	}
	if err := s.App.SetProvider(arg); err != nil {
		return err
	}
	s.printf("%s Provider: %s, model: %s\n", s.Render.style("[OK]", SuccessStyle.Render), s.App.Provider().Name, s.App.Model())
	s.printf("%s\n", s.Render.style("Run 'dischat setup' if your key belongs to another provider.", DimStyle.Render))
	return nil
}

func (s *chatSession) copyCode() error {
	conv, ok := s.App.Active()
	if !ok {
		return app.ErrNoActiveChat
	}
	code, ok := LastCodeBlockIn(conv)
	if !ok {
		return errors.New("no code block in this conversation")
	}
	if clipboard.Unsupported {
		return errors.New("clipboard is not available on this system")
	}
	if err := clipboard.WriteAll(code); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	lines := strings.Count(code, "\n") + 1
	s.printf("%s Copied %d line(s)\n", s.Render.style("[OK]", SuccessStyle.Render), lines)
	return nil
}

func (s *chatSession) theme(arg string) error {
	if arg == "" {
		s.printf("Theme: %s (available: %s)\n", s.App.Theme(), strings.Join(ThemeNames(), ", "))
		return nil
	}
	t, ok := LookupTheme(arg)
	if !ok {
		return &ValidationError{Field: "theme", Value: arg, Reason: "unknown theme", Example: "/theme " + strings.Join(ThemeNames(), "|")}
	}
	if err := s.App.SetTheme(t.Name); err != nil {
		return err
	}
	ApplyTheme(t.Name)
	s.Render.SetTheme(t)
	s.printf("%s Theme: %s\n", s.Render.style("[OK]", SuccessStyle.Render), t.Name)
	return nil
}

// =============================================================================
// BANNERS
// =============================================================================

func (s *chatSession) printWelcome() {
	syncState := "off"
	if s.App.SyncEnabled() {
		syncState = "on (" + s.App.UserID() + ")"
	}
	s.printf("%s\n", s.Render.style("DisChat", TitleStyle.Render))
	s.printf("%s\n", s.Render.style(fmt.Sprintf("%s | %s | sync %s", s.App.Provider().Name, s.App.Model(), syncState), DimStyle.Render))

	if !s.App.SidebarCollapsed() {
		convs := s.App.Conversations()
		if len(convs) > welcomeRecent {
			convs = convs[:welcomeRecent]
		}
		if len(convs) > 0 {
			s.printf("\n%s", s.Render.ConversationList(convs, s.App.Store().ActiveID(), time.Now()))
		}
	}

	if conv, ok := s.App.Active(); ok {
		s.printf("\n%s\n", s.Render.style(fmt.Sprintf("Continuing #%d %s (%d messages)", conv.ID, conv.Title, len(conv.Messages)), DimStyle.Render))
		if last, ok := conv.LastMessage(); ok {
			s.printf("%s", s.Render.Message(last))
		}
		s.view.Set(conv)
	}
	for _, f := range s.pending {
		s.printf("  + %s\n", describeAttachment(f))
	}
	s.printf("\n%s\n\n", s.Render.style("Type /help for commands, Ctrl+D to exit.", DimStyle.Render))
}

// greetFirstRun shows the command list the first time chat opens and
// records that it was seen.
func (s *chatSession) greetFirstRun(firstRun bool) {
	if !firstRun {
		return
	}
	s.printHelp()
	s.printf("\n")
	if err := s.App.Local().MarkSeen(); err != nil {
		log.Debug().Err(err).Msg("could not record first run")
	}
}

func (s *chatSession) printHelp() {
	s.printf("%s\n", s.Render.style("Commands", TitleStyle.Render))
	rows := [][2]string{
		{"/new", "Start a new conversation"},
		{"/list", "List conversations"},
		{"/switch <id>", "Open a conversation"},
		{"/delete [id]", "Delete a conversation"},
		{"/regen [index]", "Regenerate the last (or given) reply"},
		{"/search <query>", "Search the web and answer from the results"},
		{"/attach [path|clear]", "Attach a file to the next message"},
		{"/model [id]", "Show or choose the model"},
		{"/provider [name]", "Show or choose the provider"},
		{"/thinking", "Toggle display of model reasoning"},
		{"/copy", "Copy the last code block to the clipboard"},
		{"/theme [name]", "Show or set the color theme"},
		{"/sidebar", "Toggle the conversation list on startup"},
		{"/status", "Show provider, storage and sync state"},
		{"/quit", "Exit"},
	}
	for _, row := range rows {
		s.printf("  %s %s\n", RenderLabel(row[0], 22), row[1])
	}
	s.printf("\n%s\n", s.Render.style(`Start a message with "search the web for:" to search explicitly.`, DimStyle.Render))
}
