// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrNoCodeBlock is returned when a requested code block does not exist.
var ErrNoCodeBlock = errors.New("no such code block")

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Block is a fenced code block found in a reply.
type Block struct {
	Language string
	Code     string
}

// CodeBlocks returns the fenced code blocks of a Markdown document in order,
// including blocks nested in quotes and list items.
func CodeBlocks(content string) []Block {
	spans := codeSpans(content)
	blocks := make([]Block, 0, len(spans))
	for _, sp := range spans {
		blocks = append(blocks, sp.block)
	}
	return blocks
}

// codeSpan is a fenced block with the source lines it occupies, fences
// included. start and end are inclusive.
type codeSpan struct {
	block      Block
	start, end int
}

// codeSpans walks the goldmark AST for fenced code blocks and maps each one
// back to its source lines.
func codeSpans(content string) []codeSpan {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	lines := strings.Split(content, "\n")
	starts := make([]int, 0, len(lines))
	offset := 0
	for _, line := range lines {
		starts = append(starts, offset)
		offset += len(line) + 1
	}
	lineOf := func(pos int) int {
		return sort.Search(len(starts), func(i int) bool { return starts[i] > pos }) - 1
	}

	var spans []codeSpan
	next := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		segs := fenced.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			sb.Write(seg.Value(source))
		}

		var open int
		switch {
		case fenced.Info != nil:
			open = lineOf(fenced.Info.Segment.Start)
		case segs.Len() > 0:
			open = lineOf(segs.At(0).Start) - 1
		default:
			open = nextFence(lines, next)
		}
		if open < 0 {
			open = 0
		}
		if open < next && len(spans) > 0 {
			// The previous block was unclosed and its guessed closing
			// fence is this block's opening line.
			prev := &spans[len(spans)-1]
			prev.end = max(open-1, prev.start)
		}

		end := open
		if segs.Len() > 0 {
			end = lineOf(segs.At(segs.Len() - 1).Start)
		}
		if end+1 < len(lines) && isClosingFence(lines[end+1]) {
			end++
		}

		spans = append(spans, codeSpan{
			block: Block{
				Language: string(fenced.Language(source)),
				Code:     strings.TrimRight(sb.String(), "\n"),
			},
			start: open,
			end:   end,
		})
		next = end + 1
		return ast.WalkSkipChildren, nil
	})
	return spans
}

// stripContainer removes indentation and blockquote markers from line.
func stripContainer(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, " \t>"))
}

// nextFence returns the first line at or after from that opens a fence.
func nextFence(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		t := stripContainer(lines[i])
		if strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~") {
			return i
		}
	}
	return from
}

// isClosingFence reports whether line is a bare fence of three or more
// backticks or tildes.
func isClosingFence(line string) bool {
	t := stripContainer(line)
	if len(t) < 3 || (t[0] != '`' && t[0] != '~') {
		return false
	}
	return strings.Trim(t, t[:1]) == ""
}

// CopyCodeBlock copies code block n (1-based) of content to the system
// clipboard and returns it.
func CopyCodeBlock(content string, n int) (Block, error) {
	blocks := CodeBlocks(content)
	if n < 1 || n > len(blocks) {
		return Block{}, fmt.Errorf("code block %d of %d: %w", n, len(blocks), ErrNoCodeBlock)
	}
	block := blocks[n-1]
	if err := writeClipboard(block.Code); err != nil {
		return Block{}, fmt.Errorf("copy to clipboard: %w", err)
	}
	return block, nil
}

// CopyLastCodeBlock copies the final code block of content.
func CopyLastCodeBlock(content string) (Block, error) {
	return CopyCodeBlock(content, len(CodeBlocks(content)))
}
