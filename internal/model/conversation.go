// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcusdavidalo/arda/internal/util"
)

// DefaultTitle is shown for conversations with no name and no user turns.
const DefaultTitle = "New conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a chat conversation: a stable ID, an optional display
// name, and its turns in creation order.
type Conversation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Messages  []Turn    `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation() Conversation {
	now := time.Now()
	return Conversation{
		ID:        NewID(),
		Messages:  []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewID returns a new random conversation identifier.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// WithTurn returns a copy of c with t appended.
func (c Conversation) WithTurn(t Turn) Conversation {
	out := c.Clone()
	out.Messages = append(out.Messages, t)
	out.UpdatedAt = time.Now()
	return out
}

// WithName returns a copy of c carrying the given display name.
func (c Conversation) WithName(name string) Conversation {
	out := c.Clone()
	out.Name = strings.TrimSpace(name)
	out.UpdatedAt = time.Now()
	return out
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Turn, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// History returns the turns that are replayed to the completion endpoint,
// in order, skipping error turns.
func (c Conversation) History() []Turn {
	history := make([]Turn, 0, len(c.Messages))
	for _, t := range c.Messages {
		if t.Replayable() {
			history = append(history, t)
		}
	}
	return history
}

// LastTurn returns the most recent turn and whether one exists.
func (c Conversation) LastTurn() (Turn, bool) {
	if len(c.Messages) == 0 {
		return Turn{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// LastAssistantTurn returns the most recent successful assistant turn.
func (c Conversation) LastAssistantTurn() (Turn, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if t := c.Messages[i]; t.Role == RoleAssistant && !t.Error {
			return t, true
		}
	}
	return Turn{}, false
}

// MessageCount returns the number of turns.
func (c Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no turns.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// DISPLAY HELPERS
// =============================================================================

// Title returns the display name: the explicit name if set, otherwise the
// first user turn truncated to 50 characters.
func (c Conversation) Title() string {
	if c.Name != "" {
		return c.Name
	}
	for _, t := range c.Messages {
		if t.Role == RoleUser && strings.TrimSpace(t.Content) != "" {
			return util.TruncateRunes(util.SingleLine(strings.TrimSpace(t.Content)), 50)
		}
	}
	return DefaultTitle
}

// Preview returns the first user turn truncated to 80 characters.
func (c Conversation) Preview() string {
	for _, t := range c.Messages {
		if t.Role == RoleUser && t.Content != "" {
			return util.TruncateRunes(util.SingleLine(t.Content), 80)
		}
	}
	return ""
}
