// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/marcusdavidalo/arda/internal/chat"
	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/render"
	"github.com/marcusdavidalo/arda/internal/session"
	"github.com/marcusdavidalo/arda/internal/ui/styles"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
)

// Options configures the chat screen.
type Options struct {
	// Context bounds every request started from the screen.
	Context context.Context

	// Style is the glamour style. Empty means detect from the terminal.
	Style string

	// Stream shows the reply as it arrives.
	Stream bool

	Theme *styles.Theme
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx       context.Context
	assistant *chat.Assistant
	sessions  *session.Manager

	theme    *styles.Theme
	style    string
	renderer *render.Renderer
	keys     KeyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width  int
	height int

	// In-flight exchange. snapshot is the conversation as it was when the
	// message was sent.
	stream      bool
	pending     *chat.Pending
	partial     *streamBuffer
	snapshot    model.Conversation
	pendingText string

	notice    string
	noticeErr bool
	noticeGen int
}

// New creates the chat screen for the active conversation of sessions.
func New(assistant *chat.Assistant, sessions *session.Manager, opts Options) *Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Theme == nil {
		opts.Theme = styles.DefaultTheme()
	}
	if opts.Style == "" {
		opts.Style = render.DetectStyle()
	}

	ta := textarea.New()
	ta.Placeholder = "Message Arda..."
	ta.CharLimit = chat.MaxInputLength
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.SetHeight(inputHeight)
	ta.SetWidth(defaultWidth - 4)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.Typing

	m := &Model{
		ctx:       opts.Context,
		assistant: assistant,
		sessions:  sessions,
		theme:     opts.Theme,
		style:     opts.Style,
		renderer:  render.NewRenderer(defaultWidth-2, opts.Style),
		keys:      DefaultKeyMap(),
		viewport:  viewport.New(defaultWidth, defaultHeight-layoutChrome()),
		input:     ta,
		spinner:   sp,
		width:     defaultWidth,
		height:    defaultHeight,
		stream:    opts.Stream,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Run shows the chat screen until the user quits.
func Run(assistant *chat.Assistant, sessions *session.Manager, opts Options) error {
	m := New(assistant, sessions, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	if m.pending != nil {
		m.pending.Cancel()
		<-m.pending.Done()
	}
	return err
}

// Pending reports whether a reply is outstanding.
func (m *Model) Pending() bool {
	return m.pending != nil
}

// conversation returns what the transcript shows: the stored conversation,
// or the snapshot plus the in-flight turns while a reply is pending.
func (m *Model) conversation() (model.Conversation, string) {
	if m.pending == nil {
		return m.sessions.Active(), ""
	}
	conv := m.snapshot.WithTurn(model.UserTurn(m.pendingText))
	partial := ""
	if m.partial != nil {
		partial = m.partial.String()
	}
	return conv, partial
}

// layoutChrome is the number of rows taken by everything but the transcript.
func layoutChrome() int {
	// header, status line, bordered input, counter
	return 1 + 1 + (inputHeight + 2) + 1
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	vh := height - layoutChrome()
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.input.SetWidth(max(width-4, 10))

	if m.renderer.Width() != max(width-2, 20) {
		m.renderer = render.NewRenderer(width-2, m.style)
	}
	m.refresh()
}

// refresh redraws the transcript and scrolls to the newest turn.
func (m *Model) refresh() {
	m.redraw()
	m.viewport.GotoBottom()
}

// follow redraws the transcript and keeps the view pinned to the bottom only
// if it already was, so scrolling back survives a streaming reply.
func (m *Model) follow() {
	atBottom := m.viewport.AtBottom()
	m.redraw()
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) redraw() {
	conv, partial := m.conversation()
	m.viewport.SetContent(m.transcript(conv, partial))
}

func (m *Model) logSend(text string) {
	log.Debug().
		Str("conversation", m.sessions.Active().ID).
		Int("chars", len(text)).
		Bool("stream", m.stream).
		Msg("sending message")
}
