// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/marcusdavidalo/arda/internal/chat"
	"github.com/marcusdavidalo/arda/internal/completion"
	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	header := m.renderHeader()
	status := m.renderStatus()
	input := m.renderInput()

	messages := m.viewport.View()
	avail := m.height - lipgloss.Height(header) - lipgloss.Height(status) - lipgloss.Height(input)
	if avail >= 1 && lipgloss.Height(messages) != avail {
		messages = lipgloss.NewStyle().
			Height(avail).
			MaxHeight(avail).
			Render(messages)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, messages, status, input)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// transcript renders conv followed by the partial reply, if any. An empty
// conversation shows the greeting, which is not part of the stored history.
func (m *Model) transcript(conv model.Conversation, partial string) string {
	turns := conv.Messages
	if len(turns) == 0 && m.pending == nil {
		turns = []model.Turn{model.AssistantTurn(completion.Greeting)}
	}

	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.renderTurn(t))
	}

	if m.pending != nil {
		sb.WriteString("\n")
		sb.WriteString(m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()))
		sb.WriteString("\n")
		if partial != "" {
			sb.WriteString(m.renderer.Render(partial))
		}
	}
	return sb.String()
}

func (m *Model) renderTurn(t model.Turn) string {
	ts := ""
	if !t.Timestamp.IsZero() {
		ts = " " + m.theme.Timestamp.Render(t.Timestamp.Format("15:04"))
	}

	switch {
	case t.Error:
		label := m.theme.ErrorLabel.Render(model.RoleAssistant.DisplayName())
		body := m.theme.ErrorBody.Width(max(m.width-2, 20)).Render(t.Content)
		return label + ts + "\n" + body + "\n"
	case t.Role == model.RoleUser:
		label := m.theme.UserLabel.Render(t.Role.DisplayName())
		body := lipgloss.NewStyle().Width(max(m.width-2, 20)).Render(t.Content)
		return label + ts + "\n" + body + "\n"
	default:
		label := m.theme.AssistantLabel.Render(t.Role.DisplayName())
		return label + ts + "\n" + m.renderer.Render(t.Content)
	}
}

// =============================================================================
// CHROME
// =============================================================================

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Arda")
	conv := m.sessions.Active()
	if m.pending != nil {
		conv = m.snapshot
	}
	name := util.TruncateWidth(conv.Title(), max(m.width-12, 10))
	sub := m.theme.Timestamp.Render(" | " + name)
	return m.theme.Header.Width(m.width).MaxHeight(1).Render(title + sub)
}

func (m *Model) renderStatus() string {
	var content string
	switch {
	case m.pending != nil:
		content = m.spinner.View() + m.theme.Typing.Render(" Arda is typing...") +
			m.theme.ShortcutDesc.Render("  (esc to cancel)")
	case m.notice != "" && m.noticeErr:
		content = m.theme.Failure.Render(m.notice)
	case m.notice != "":
		content = m.theme.Notice.Render(m.notice)
	default:
		content = m.renderHelp()
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(content)
}

func (m *Model) renderHelp() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(parts, m.theme.ShortcutDesc.Render(" · "))
}

func (m *Model) renderInput() string {
	box := m.theme.InputBorder.Render(m.input.View())
	n := util.RuneLen(m.input.Value())
	count := m.theme.CharCountStyle(n, chat.MaxInputLength).
		Render(fmt.Sprintf("%d/%d", n, chat.MaxInputLength))

	note := ""
	if room := m.width - lipgloss.Width(count) - 2; room > 10 {
		note = m.theme.ShortcutDesc.Render(util.TruncateWidth(completion.Disclaimer, room))
	}
	gap := max(m.width-lipgloss.Width(note)-lipgloss.Width(count), 1)
	footer := note + strings.Repeat(" ", gap) + count
	return lipgloss.JoinVertical(lipgloss.Left, box, footer)
}
