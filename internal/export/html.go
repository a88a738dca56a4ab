// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/marcusdavidalo/arda/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page with
// embedded CSS. Turn content is rendered from Markdown; raw HTML in the
// content is omitted.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates an HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Export converts a conversation to HTML.
func (e *HTMLExporter) Export(conv model.Conversation) ([]byte, error) {
	if err := validate(conv); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}
	title := html.EscapeString(conv.Title())

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"arda\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", conv.CreatedAt.Format(time.RFC3339))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", title)
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(conv.CreatedAt))
		fmt.Fprintf(&sb, "                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", conv.MessageCount())
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range conv.Messages {
		body, err := e.renderMessage(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(body)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>arda</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderMessage(msg model.Turn) (string, error) {
	class := string(msg.Role) + "-message"
	if msg.Error {
		class += " error-message"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "            <div class=\"message %s\">\n", html.EscapeString(class))
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role\">%s</span>\n", html.EscapeString(msg.Role.DisplayName()))
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")

	if msg.Role == model.RoleUser || msg.Error {
		fmt.Fprintf(&sb, "<p>%s</p>\n", strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>\n"))
	} else {
		var buf bytes.Buffer
		if err := e.md.Convert([]byte(msg.Content), &buf); err != nil {
			return "", fmt.Errorf("render message: %w", err)
		}
		sb.Write(buf.Bytes())
	}

	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")
	return sb.String(), nil
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", Monaco, Inconsolata, "Fira Code", monospace;
        }
        .dark-theme {
            --bg-primary: #1e1e2e;
            --bg-secondary: #181825;
            --text-primary: #cdd6f4;
            --text-muted: #6c7086;
            --border-color: #313244;
            --user-accent: #22d3ee;
            --assistant-accent: #a78bfa;
            --error-accent: #fb7185;
            --code-bg: #11111b;
        }
        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f5f5f5;
            --text-primary: #1f2937;
            --text-muted: #9ca3af;
            --border-color: #e5e5e5;
            --user-accent: #0891b2;
            --assistant-accent: #7c3aed;
            --error-accent: #e11d48;
            --code-bg: #f3f4f6;
        }
        body {
            font-family: var(--font-sans);
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
        }
        .container { max-width: 900px; margin: 0 auto; padding: 2rem 1rem; }
        .header { border-bottom: 1px solid var(--border-color); padding-bottom: 1rem; margin-bottom: 2rem; }
        .metadata { color: var(--text-muted); font-size: 0.9rem; display: flex; gap: 1.5rem; margin-top: 0.5rem; }
        .message {
            background: var(--bg-secondary);
            border-left: 3px solid var(--assistant-accent);
            border-radius: 6px;
            padding: 1rem 1.25rem;
            margin-bottom: 1.25rem;
        }
        .user-message { border-left-color: var(--user-accent); }
        .error-message { border-left-color: var(--error-accent); color: var(--error-accent); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 0.5rem; }
        .role { font-weight: bold; }
        .timestamp { color: var(--text-muted); font-size: 0.85rem; }
        .message-content p { margin: 0.5rem 0; }
        .message-content pre {
            background: var(--code-bg);
            font-family: var(--font-mono);
            padding: 0.75rem 1rem;
            border-radius: 6px;
            overflow-x: auto;
            margin: 0.75rem 0;
        }
        .message-content code { font-family: var(--font-mono); }
        .footer { color: var(--text-muted); font-size: 0.85rem; text-align: center; margin-top: 2rem; }
    </style>
`
