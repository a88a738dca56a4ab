// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"fmt"
	"strings"
)

// FormatMarkdown renders items as a numbered Markdown list.
func FormatMarkdown(query string, items []Item) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### Search results for %q\n\n", query)

	if len(items) == 0 {
		sb.WriteString("_No results._\n")
		return sb.String()
	}

	for i, it := range items {
		title := it.Title
		if title == "" {
			title = it.Link
		}
		fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, title, it.Link)
		if it.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", it.Snippet)
		}
	}
	return sb.String()
}
