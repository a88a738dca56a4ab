// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strconv"
	"strings"

	"github.com/marcusdavidalo/arda/internal/model"
	"github.com/marcusdavidalo/arda/internal/util"
)

// =============================================================================
// SEARCH
// =============================================================================

// Match is a conversation that satisfied a search, with its position in the
// collection so callers can load, rename or delete it by index.
type Match struct {
	Index        int
	Conversation model.Conversation
}

// Search returns the conversations whose title or any turn contains query
// (case-insensitive), in collection order. An empty query matches all.
func Search(convs []model.Conversation, query string) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	var results []Match

	for i, conv := range convs {
		if query == "" || matches(conv, query) {
			results = append(results, Match{Index: i, Conversation: conv})
		}
	}
	return results
}

func matches(conv model.Conversation, query string) bool {
	if strings.Contains(strings.ToLower(conv.Title()), query) {
		return true
	}
	for _, msg := range conv.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList formats the collection as a table with the index used by the
// positional delete and rename commands.
func FormatList(convs []model.Conversation) string {
	if len(convs) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadWidth("#", 4) + " " + util.PadWidth("Updated", 17) + " " +
		util.PadWidth("Msgs", 5) + " Title\n")
	sb.WriteString(strings.Repeat("-", 60) + "\n")

	for i, c := range convs {
		updated := c.UpdatedAt
		if updated.IsZero() {
			updated = c.CreatedAt
		}
		sb.WriteString(util.PadWidth(strconv.Itoa(i), 4) + " " +
			util.PadWidth(updated.Format("2006-01-02 15:04"), 17) + " " +
			util.PadWidth(strconv.Itoa(c.MessageCount()), 5) + " " +
			util.TruncateWidth(c.Title(), 40) + "\n")
	}
	return sb.String()
}
