// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"

	"github.com/marcusdavidalo/arda/internal/ui/styles"
)

// Glamour standard style names.
const (
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

var (
	detectOnce    sync.Once
	detectedStyle string
)

// DetectStyle picks a glamour style from the terminal: notty without color
// support, otherwise dark or light by background. The result is cached.
func DetectStyle() string {
	detectOnce.Do(func() {
		switch {
		case termenv.EnvColorProfile() == termenv.Ascii:
			detectedStyle = StyleNoTTY
		case termenv.HasDarkBackground():
			detectedStyle = StyleDark
		default:
			detectedStyle = StyleLight
		}
	})
	return detectedStyle
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer renders Markdown replies at a fixed width.
type Renderer struct {
	width int
	style string
	theme *styles.Theme

	prose *glamour.TermRenderer
}

// NewRenderer creates a renderer. An empty style means DetectStyle.
func NewRenderer(width int, style string) *Renderer {
	if width < 20 {
		width = 20
	}
	if style == "" {
		style = DetectStyle()
	}

	r := &Renderer{
		width: width,
		style: style,
		theme: styles.DefaultTheme(),
	}

	prose, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Warn().Err(err).Str("style", style).Msg("glamour unavailable, rendering plain text")
	} else {
		r.prose = prose
	}
	return r
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Markdown renders content at width with the detected style.
func Markdown(content string, width int) string {
	return NewRenderer(width, "").Render(content)
}

// Render renders prose with glamour and code blocks as numbered boxes.
func (r *Renderer) Render(content string) string {
	var parts []string
	index := 0

	for _, seg := range segments(content) {
		if seg.code {
			index++
			block := CodeBlock{
				Index:     index,
				Language:  seg.block.Language,
				Code:      seg.block.Code,
				MaxWidth:  r.width,
				Highlight: r.style != StyleNoTTY && r.style != "ascii",
			}
			parts = append(parts, block.Render(r.theme))
			continue
		}
		if strings.TrimSpace(seg.text) == "" {
			continue
		}
		parts = append(parts, r.renderProse(seg.text))
	}
	return strings.Join(parts, "\n")
}

func (r *Renderer) renderProse(md string) string {
	if r.prose == nil {
		return md
	}
	out, err := r.prose.Render(md)
	if err != nil {
		log.Debug().Err(err).Msg("glamour render failed")
		return md
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// SEGMENTS
// =============================================================================

type segment struct {
	code  bool
	block Block
	text  string
}

// segments cuts content into prose runs and the fenced code blocks found by
// CodeBlocks, so block n on screen is block n on the clipboard.
func segments(content string) []segment {
	lines := strings.Split(content, "\n")

	var segs []segment
	prose := func(from, to int) {
		if from < to {
			segs = append(segs, segment{text: strings.Join(lines[from:to], "\n")})
		}
	}

	next := 0
	for _, sp := range codeSpans(content) {
		prose(next, sp.start)
		segs = append(segs, segment{code: true, block: sp.block})
		next = sp.end + 1
	}
	prose(next, len(lines))
	return segs
}
