// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the styles used by the chat screen.
type Theme struct {
	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	// Turn labels and bodies
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorLabel     lipgloss.Style
	ErrorBody      lipgloss.Style
	Timestamp      lipgloss.Style

	// Input area
	InputBorder      lipgloss.Style
	CharCount        lipgloss.Style
	CharCountWarning lipgloss.Style
	CharCountDanger  lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	Typing       lipgloss.Style
	Notice       lipgloss.Style
	Failure      lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Code blocks
	CodeBox        lipgloss.Style
	CodeBadge      lipgloss.Style
	CodeLineNumber lipgloss.Style
	CodeDisclaimer lipgloss.Style
}

// DefaultTheme returns the theme built from the package palette.
func DefaultTheme() *Theme {
	return &Theme{
		Header: lipgloss.NewStyle().
			Background(SurfaceDim).
			Padding(0, 1),
		HeaderTitle: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true),

		UserLabel: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		AssistantLabel: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true),
		ErrorLabel: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true),
		ErrorBody: lipgloss.NewStyle().
			Foreground(Rose),
		Timestamp: lipgloss.NewStyle().
			Foreground(TextMuted),

		InputBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Overlay),
		CharCount: lipgloss.NewStyle().
			Foreground(TextMuted),
		CharCountWarning: lipgloss.NewStyle().
			Foreground(Amber),
		CharCountDanger: lipgloss.NewStyle().
			Foreground(Rose).
			Bold(true),

		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Padding(0, 1),
		Typing: lipgloss.NewStyle().
			Foreground(Purple).
			Italic(true),
		Notice: lipgloss.NewStyle().
			Foreground(Emerald),
		Failure: lipgloss.NewStyle().
			Foreground(Rose),
		ShortcutKey: lipgloss.NewStyle().
			Foreground(Cyan).
			Bold(true),
		ShortcutDesc: lipgloss.NewStyle().
			Foreground(TextMuted),

		CodeBox: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Overlay).
			Padding(0, 1),
		CodeBadge: lipgloss.NewStyle().
			Foreground(TextMuted).
			Background(OverlayDim).
			Padding(0, 1).
			Bold(true),
		CodeLineNumber: lipgloss.NewStyle().
			Foreground(TextMuted).
			Width(4).
			Align(lipgloss.Right).
			MarginRight(1),
		CodeDisclaimer: lipgloss.NewStyle().
			Foreground(TextMuted).
			Italic(true),
	}
}

// CharCountStyle picks the counter style for n of max characters.
func (t *Theme) CharCountStyle(n, max int) lipgloss.Style {
	switch {
	case n > max:
		return t.CharCountDanger
	case n*10 >= max*9:
		return t.CharCountWarning
	default:
		return t.CharCount
	}
}
