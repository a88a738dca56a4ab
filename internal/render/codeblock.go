// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/marcusdavidalo/arda/internal/ui/styles"
)

// Disclaimer is printed under every rendered code block.
const Disclaimer = "This code was generated by AI. Please review properly."

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock is a fenced block ready to draw.
type CodeBlock struct {
	Index     int
	Language  string
	Code      string
	MaxWidth  int
	Highlight bool
}

// Render draws the block: badge header, numbered lines, border and the
// disclaimer line.
func (c CodeBlock) Render(theme *styles.Theme) string {
	code := strings.TrimRight(c.Code, "\n")
	if c.Highlight {
		code = highlightCode(code, c.Language)
	}

	lines := strings.Split(code, "\n")
	rendered := make([]string, len(lines))
	for i, line := range lines {
		rendered[i] = theme.CodeLineNumber.Render(strconv.Itoa(i+1)) + line
	}

	header := theme.CodeBadge.Render("[copy " + strconv.Itoa(c.Index) + "]")
	if c.Language != "" {
		header += " " + theme.Timestamp.Render(c.Language)
	}

	maxWidth := c.MaxWidth
	if maxWidth < 20 {
		maxWidth = 20
	}

	box := theme.CodeBox.
		MaxWidth(maxWidth).
		Render(header + "\n" + strings.Join(rendered, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, box, theme.CodeDisclaimer.Render(Disclaimer))
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode applies terminal syntax highlighting, returning code
// unchanged if highlighting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
