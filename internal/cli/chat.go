// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marcusdavidalo/arda/internal/chat"
	"github.com/marcusdavidalo/arda/internal/completion"
	"github.com/marcusdavidalo/arda/internal/config"
	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/render"
	"github.com/marcusdavidalo/arda/internal/search"
	"github.com/marcusdavidalo/arda/internal/storage"
	"github.com/marcusdavidalo/arda/internal/ui"
)

type chatOptions struct {
	plain bool
	id    string
}

func newChatCommand(o *rootOptions) *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Start an interactive chat.

Opens the full-screen chat when stdin and stdout are terminals, otherwise
(or with --plain) a line-based session with these commands:

  /new             start a new conversation
  /list            list saved conversations
  /load N          open conversation N
  /rename N name   rename conversation N
  /delete N        delete conversation N
  /search query    search the web
  /copy [N]        copy code block N (default: last) of the last reply
  /quit            exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, o, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Use the line-based session instead of the full-screen chat")
	cmd.Flags().StringVar(&opts.id, "id", "", "Resume the conversation with this id")
	return cmd
}

func runChat(cmd *cobra.Command, o *rootOptions, opts chatOptions) error {
	app, err := o.app()
	if err != nil {
		return err
	}
	if opts.id != "" {
		if _, ok := app.Sessions.Load(opts.id); !ok {
			return fmt.Errorf("%s: %w", opts.id, storage.ErrConversationNotFound)
		}
	}

	if opts.plain || !IsTTY() || !IsStdoutTTY() {
		in, err := newLineReader(cmd.InOrStdin())
		if err != nil {
			return err
		}
		defer in.Close()
		r := newREPL(app, cmd.OutOrStdout())
		return r.run(cmd.Context(), in)
	}

	if err := o.initLogging(true); err != nil {
		return err
	}
	return ui.Run(app.Assistant, app.Sessions, ui.Options{
		Context: cmd.Context(),
		Style:   app.MarkdownStyle(),
		Stream:  app.Config.UI.Stream,
	})
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of input per prompt.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// newLineReader uses liner with persistent history on a terminal and a plain
// line scanner otherwise.
func newLineReader(in io.Reader) (lineReader, error) {
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTTY() {
		return NewChatCLI(), nil
	}
	return &scanReader{sc: bufio.NewScanner(in)}, nil
}

// ChatCLI provides input history and line editing for the chat session.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads the saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads a line. Non-blank lines are added to the history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history and restores the terminal.
func (c *ChatCLI) Close() error {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	return c.line.Close()
}

type scanReader struct {
	sc *bufio.Scanner
}

func (s *scanReader) Prompt(string) (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scanReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	app    *App
	out    io.Writer
	styled bool
	render func(string) string
}

func newREPL(app *App, out io.Writer) *repl {
	return &repl{
		app:    app,
		out:    out,
		styled: isTerminalWriter(out),
		render: markdownFor(out, app.MarkdownStyle()),
	}
}

func (r *repl) run(ctx context.Context, in lineReader) error {
	fmt.Fprintln(r.out, TitleStyle.Render("Arda")+DimStyle.Render("  /help for commands, /quit to exit"))
	fmt.Fprintln(r.out, DimStyle.Render(completion.Disclaimer))
	r.showConversation(r.app.Sessions.Active())

	for {
		line, err := in.Prompt(PromptStyle.Render("arda> "))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "/") {
			cont, err := r.command(ctx, trimmed)
			if err != nil {
				fmt.Fprintln(r.out, ErrorStyle.Render("[Error]")+" "+err.Error())
			}
			if !cont {
				return nil
			}
			continue
		}

		r.send(ctx, line)
	}
}

// send runs one exchange. Ctrl+C during the request cancels it.
func (r *repl) send(ctx context.Context, text string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var (
		reply    model.Turn
		err      error
		streamed bool
	)
	if r.app.Config.UI.Stream && r.styled {
		streamed = true
		fmt.Fprintln(r.out, r.label(model.RoleAssistant))
		reply, err = r.app.Assistant.SendStream(ctx, text, func(delta string) {
			fmt.Fprint(r.out, delta)
		})
		fmt.Fprintln(r.out)
	} else {
		reply, err = r.app.Assistant.Send(ctx, text)
	}

	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return
	case errors.Is(err, chat.ErrMessageTooLong):
		fmt.Fprintf(r.out, "%s message is longer than %d characters\n", ErrorStyle.Render("[Error]"), chat.MaxInputLength)
		return
	case errors.Is(err, chat.ErrCancelled):
		fmt.Fprintln(r.out, WarningStyle.Render("[Cancelled]"))
		return
	case err != nil:
		log.Debug().Err(err).Msg("Completion failed")
		fmt.Fprintln(r.out, ErrorStyle.Render(reply.Content))
		return
	}

	if !streamed {
		fmt.Fprintln(r.out, r.label(model.RoleAssistant))
		fmt.Fprintln(r.out, r.render(reply.Content))
	}
}

// command handles a slash command. It returns false when the session
// should end.
func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	sessions := r.app.Sessions

	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h":
		fmt.Fprintln(r.out, replHelp)

	case "/new", "/n":
		sessions.StartNew()
		fmt.Fprintln(r.out, SuccessStyle.Render("Started a new conversation."))
		r.showConversation(sessions.Active())

	case "/list", "/ls":
		fmt.Fprint(r.out, storage.FormatList(sessions.Conversations()))
		if sessions.Len() == 0 {
			fmt.Fprintln(r.out)
		}

	case "/load":
		conv, err := conversationAt(sessions.Conversations(), rest)
		if err != nil {
			return true, err
		}
		conv, _ = sessions.Load(conv.ID)
		r.showConversation(conv)

	case "/rename":
		idx, name, _ := strings.Cut(rest, " ")
		n, err := parseIndex(idx)
		if err != nil {
			return true, err
		}
		if err := sessions.Rename(n, name); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf("Renamed conversation %d.", n)))

	case "/delete", "/rm":
		n, err := parseIndex(rest)
		if err != nil {
			return true, err
		}
		if err := sessions.Delete(n); err != nil {
			return true, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf("Deleted conversation %d.", n)))

	case "/search":
		if rest == "" {
			return true, errors.New("usage: /search query")
		}
		items := r.app.Assistant.Search(ctx, rest)
		fmt.Fprintln(r.out, r.render(search.FormatMarkdown(rest, items)))

	case "/copy":
		return true, r.copy(rest)

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return true, nil
}

func (r *repl) copy(arg string) error {
	last, ok := r.app.Sessions.Active().LastAssistantTurn()
	if !ok {
		return errors.New("no reply to copy from")
	}
	var (
		block render.Block
		err   error
	)
	if arg == "" {
		block, err = render.CopyLastCodeBlock(last.Content)
	} else {
		n, perr := strconv.Atoi(arg)
		if perr != nil {
			return fmt.Errorf("invalid code block number %q", arg)
		}
		block, err = render.CopyCodeBlock(last.Content, n)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf("Copied %d lines to the clipboard.", strings.Count(block.Code, "\n")+1)))
	return nil
}

// showConversation prints the transcript, or the greeting when empty.
func (r *repl) showConversation(conv model.Conversation) {
	if conv.IsEmpty() {
		fmt.Fprintln(r.out, r.label(model.RoleAssistant))
		fmt.Fprintln(r.out, r.render(completion.Greeting))
		return
	}
	fmt.Fprintln(r.out, TitleStyle.Render(conv.Title()))
	for _, t := range conv.Messages {
		fmt.Fprintln(r.out, r.label(t.Role))
		switch {
		case t.Error:
			fmt.Fprintln(r.out, ErrorStyle.Render(t.Content))
		case t.Role == model.RoleAssistant:
			fmt.Fprintln(r.out, r.render(t.Content))
		default:
			fmt.Fprintln(r.out, t.Content)
		}
	}
}

func (r *repl) label(role model.Role) string {
	if role == model.RoleUser {
		return PromptStyle.Render(role.DisplayName() + ":")
	}
	return TitleStyle.Render(role.DisplayName() + ":")
}

const replHelp = `Commands:
  /new             start a new conversation
  /list            list saved conversations
  /load N          open conversation N
  /rename N name   rename conversation N
  /delete N        delete conversation N
  /search query    search the web
  /copy [N]        copy code block N (default: last) of the last reply
  /quit            exit`

// =============================================================================
// HELPERS
// =============================================================================

// markdownFor renders Markdown for terminal output and passes text through
// unchanged otherwise.
func markdownFor(w io.Writer, style string) func(string) string {
	if !isTerminalWriter(w) {
		return func(s string) string { return s }
	}
	r := render.NewRenderer(TerminalWidth(w), style)
	return r.Render
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid conversation number %q", s)
	}
	return n, nil
}

// conversationAt resolves a positional argument against convs.
func conversationAt(convs []model.Conversation, arg string) (model.Conversation, error) {
	n, err := parseIndex(arg)
	if err != nil {
		return model.Conversation{}, err
	}
	if n < 0 || n >= len(convs) {
		return model.Conversation{}, fmt.Errorf("conversation %d: %w", n, storage.ErrConversationNotFound)
	}
	return convs[n], nil
}
