// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcusdavidalo/arda/internal/chat"
	"github.com/marcusdavidalo/arda/internal/render"
)

// noticeTimeout is how long a status notice stays visible.
const noticeTimeout = 4 * time.Second

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case replyMsg:
		return m, m.handleReply(msg)

	case streamTickMsg:
		if m.pending == nil {
			return m, nil
		}
		m.follow()
		return m, streamTick()

	case noticeClearMsg:
		if msg.gen == m.noticeGen {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.pending != nil {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.pending != nil {
			m.pending.Cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.pending != nil {
			m.pending.Cancel()
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m, m.startNew()

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCode()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		return m, m.send()
	}

	if m.pending != nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send starts an exchange with the text in the input box. Blank input does
// nothing.
func (m *Model) send() tea.Cmd {
	if m.pending != nil {
		return nil
	}
	text, err := chat.Normalize(m.input.Value())
	if errors.Is(err, chat.ErrEmptyMessage) {
		return nil
	}
	if err != nil {
		return m.setNotice(fmt.Sprintf("Message is too long (max %d characters)", chat.MaxInputLength), true)
	}

	m.logSend(text)
	m.snapshot = m.sessions.Active()
	m.pendingText = text
	m.partial = &streamBuffer{}
	if m.stream {
		m.pending = m.assistant.SendStreamAsync(m.ctx, text, m.partial.write)
	} else {
		m.pending = m.assistant.SendAsync(m.ctx, text)
	}

	m.input.Reset()
	m.input.Blur()
	m.notice = ""
	m.refresh()

	return tea.Batch(waitForReply(m.pending), m.spinner.Tick, streamTick())
}

func (m *Model) handleReply(msg replyMsg) tea.Cmd {
	m.pending = nil
	m.partial = nil
	m.pendingText = ""
	focus := m.input.Focus()
	m.refresh()

	switch {
	case msg.err == nil:
		return focus
	case errors.Is(msg.err, chat.ErrCancelled):
		return tea.Batch(focus, m.setNotice("Request cancelled", false))
	default:
		return tea.Batch(focus, m.setNotice(msg.err.Error(), true))
	}
}

func (m *Model) startNew() tea.Cmd {
	if m.pending != nil {
		return m.setNotice("Wait for the reply or press esc to cancel", true)
	}
	m.sessions.StartNew()
	m.input.Reset()
	m.refresh()
	return m.setNotice("Started a new conversation", false)
}

func (m *Model) copyCode() tea.Cmd {
	last, ok := m.sessions.Active().LastAssistantTurn()
	if !ok {
		return m.setNotice("No reply to copy from", true)
	}
	block, err := render.CopyLastCodeBlock(last.Content)
	switch {
	case errors.Is(err, render.ErrNoCodeBlock):
		return m.setNotice("No code block in the last reply", true)
	case err != nil:
		return m.setNotice(err.Error(), true)
	}
	n := len(render.CodeBlocks(last.Content))
	lang := block.Language
	if lang == "" {
		lang = "code"
	}
	return m.setNotice(fmt.Sprintf("Copied block %d (%s) to clipboard", n, lang), false)
}

// setNotice shows text in the status line and schedules its removal.
func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.noticeGen++
	m.notice = text
	m.noticeErr = isErr
	gen := m.noticeGen
	return tea.Tick(noticeTimeout, func(time.Time) tea.Msg {
		return noticeClearMsg{gen: gen}
	})
}
